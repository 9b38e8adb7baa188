package cli

import (
	"fmt"

	"feldera-grafana-plugin/pkg/models"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newProvisionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Print Grafana provisioning YAML for the Feldera datasource",
		Long: `The provision command prints a datasource provisioning file for Grafana's
provisioning/datasources directory. The API key is included only when given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			name, err := requireString(v, "name")
			if err != nil {
				return err
			}

			opts := models.DataSourceOptions{}.WithBaseURL(v.GetString("url"))
			if pipeline := v.GetString("pipeline"); pipeline != "" {
				opts = opts.WithPipeline(pipeline)
			}
			if apiKey := v.GetString("api-key"); apiKey != "" {
				opts = opts.WithAPIKey(apiKey)
			}

			out, err := yaml.Marshal(models.NewProvisioning(opts.Provision(name)))
			if err != nil {
				return fmt.Errorf("encoding provisioning: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().String("name", "Feldera", "Datasource name")
	cmd.Flags().String("pipeline", "", "Pipeline name (FELDERA_PIPELINE)")
	return cmd
}
