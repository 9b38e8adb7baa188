package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"feldera-grafana-plugin/pkg/client"
	"feldera-grafana-plugin/pkg/feldera"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newPipelineCommand(factory client.ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Deploy and list Feldera pipelines",
	}
	cmd.AddCommand(newDeployCommand(factory), newListCommand(factory))
	return cmd
}

func newDeployCommand(factory client.ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or replace a pipeline from a SQL file and start it",
		Long: `The deploy command uploads the SQL program of a pipeline, waits until Feldera
has compiled it and starts the pipeline, so Grafana can query its views.

Use --no-start to only upload and compile the program.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, v, err := newClient(cmd, factory)
			if err != nil {
				return err
			}
			name, err := requireString(v, "pipeline")
			if err != nil {
				return err
			}
			sqlFile, err := requireString(v, "sql-file")
			if err != nil {
				return err
			}

			program, err := os.ReadFile(sqlFile)
			if err != nil {
				return fmt.Errorf("reading program: %w", err)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			wait := v.GetDuration("wait")

			if _, err := c.PutPipeline(ctx, feldera.PipelineSpec{
				Name:          name,
				Description:   v.GetString("description"),
				ProgramCode:   string(program),
				RuntimeConfig: map[string]any{},
				ProgramConfig: map[string]any{},
			}); err != nil {
				return fmt.Errorf("uploading pipeline %q: %w", name, err)
			}
			pterm.Success.WithWriter(out).Printfln("Uploaded pipeline %s", name)

			pipeline, err := waitFor(ctx, c, name, wait, compiled)
			if err != nil {
				return fmt.Errorf("compiling pipeline %q: %w", name, err)
			}
			pterm.Success.WithWriter(out).Printfln("Compiled pipeline %s", name)

			if v.GetBool("no-start") {
				return nil
			}

			if !pipeline.IsRunning() {
				if err := c.StartPipeline(ctx, name); err != nil {
					return fmt.Errorf("starting pipeline %q: %w", name, err)
				}
				if _, err := waitFor(ctx, c, name, wait, running); err != nil {
					return fmt.Errorf("starting pipeline %q: %w", name, err)
				}
			}
			pterm.Success.WithWriter(out).Printfln("Pipeline %s is running", name)
			return nil
		},
	}

	cmd.Flags().String("pipeline", "", "Pipeline name (FELDERA_PIPELINE)")
	cmd.Flags().String("sql-file", "", "File holding the pipeline's SQL program")
	cmd.Flags().String("description", "", "Pipeline description")
	cmd.Flags().Bool("no-start", false, "Only upload and compile the program")
	cmd.Flags().Duration("wait", 5*time.Minute, "How long to wait for compilation and startup")
	return cmd
}

func newListCommand(factory client.ClientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pipelines and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient(cmd, factory)
			if err != nil {
				return err
			}

			pipelines, err := c.ListPipelines(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing pipelines: %w", err)
			}
			if len(pipelines) == 0 {
				pterm.Info.WithWriter(cmd.OutOrStdout()).Println("No pipelines")
				return nil
			}

			sort.Slice(pipelines, func(i, j int) bool { return pipelines[i].Name < pipelines[j].Name })
			rows := lo.Map(pipelines, func(p feldera.Pipeline, _ int) []string {
				return []string{p.Name, p.ProgramStatus, p.DeploymentStatus, p.Description}
			})

			data := append(pterm.TableData{{"Name", "Program", "Deployment", "Description"}}, rows...)
			return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	}
}
