// Package cli implements felderactl, a developer tool for preparing the
// Feldera pipelines and Grafana provisioning the datasource works with.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"feldera-grafana-plugin/pkg/client"
	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix prefixes the environment variables bound to flags, e.g. FELDERA_API_KEY.
const envPrefix = "feldera"

// NewRootCommand builds the felderactl command tree. Commands create their
// Feldera client through factory.
func NewRootCommand(factory client.ClientFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "felderactl",
		Short:         "Manage Feldera pipelines for the Grafana datasource",
		Long:          `felderactl deploys and inspects Feldera pipelines, runs ad-hoc queries and prints Grafana provisioning for the Feldera datasource.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("url", utils.DefaultBaseURL, "Feldera base URL (FELDERA_URL)")
	root.PersistentFlags().String("api-key", "", "Feldera API key (FELDERA_API_KEY)")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "HTTP request timeout (FELDERA_TIMEOUT)")

	root.AddCommand(
		newPipelineCommand(factory),
		newQueryCommand(factory),
		newProvisionCommand(),
	)
	return root
}

// Execute runs felderactl against the live Feldera API.
func Execute() {
	ctx := context.Background()
	if err := NewRootCommand(&client.DefaultClientFactory{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig binds the command's flags to FELDERA_* environment variables.
// Flags set on the command line win over the environment.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

func newClient(cmd *cobra.Command, factory client.ClientFactory) (feldera.Client, *viper.Viper, error) {
	v, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	config := client.DefaultConfig()
	config.BaseURL = v.GetString("url")
	config.APIKey = v.GetString("api-key")
	if timeout := v.GetDuration("timeout"); timeout > 0 {
		config.Timeout = timeout
	}

	c, err := factory.CreateClient(config)
	if err != nil {
		return nil, nil, err
	}
	return c, v, nil
}

// requireString returns the named setting or an error naming its flag and variable.
func requireString(v *viper.Viper, key string) (string, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		env := strings.ToUpper(envPrefix + "_" + strings.ReplaceAll(key, "-", "_"))
		return "", fmt.Errorf("--%s (or %s) is required", key, env)
	}
	return value, nil
}
