package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"feldera-grafana-plugin/pkg/client"
	"feldera-grafana-plugin/pkg/formatter"

	"github.com/grafana/grafana-plugin-sdk-go/data"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newQueryCommand(factory client.ClientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run an ad-hoc SQL query against a pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, v, err := newClient(cmd, factory)
			if err != nil {
				return err
			}
			pipeline, err := requireString(v, "pipeline")
			if err != nil {
				return err
			}
			sql, err := requireString(v, "sql")
			if err != nil {
				return err
			}

			result, err := c.Query(cmd.Context(), pipeline, sql)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if result.Len() > 0 {
				frame, err := formatter.ToFrame("result", result)
				if err != nil {
					return err
				}
				if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(frameTable(frame)).Render(); err != nil {
					return err
				}
			}
			pterm.Info.WithWriter(out).Printfln("%d row(s)", result.Len())
			return nil
		},
	}

	cmd.Flags().String("pipeline", "", "Pipeline name (FELDERA_PIPELINE)")
	cmd.Flags().String("sql", "", "SQL to run")
	return cmd
}

// frameTable renders a frame as table rows under a header of field names.
func frameTable(frame *data.Frame) pterm.TableData {
	table := pterm.TableData{lo.Map(frame.Fields, func(f *data.Field, _ int) string { return f.Name })}
	rowLen, _ := frame.RowLen()
	for i := 0; i < rowLen; i++ {
		table = append(table, lo.Map(frame.Fields, func(f *data.Field, _ int) string {
			v, ok := f.ConcreteAt(i)
			if !ok {
				return "NULL"
			}
			return cellString(v)
		}))
	}
	return table
}

func cellString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case json.RawMessage:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
