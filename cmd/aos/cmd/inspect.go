package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/report"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/service/workflow"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <run-id|prefix>",
	Short: "Show a stored run",
	Long: `Show the manifest of a stored run. A prefix that matches exactly one
stored run may stand in for its full id.

Examples:
  # Styled summary
  aos inspect 3f2a

  # Markdown report
  aos inspect 3f2a --format markdown

  # Print the workflow.hello config block that reproduces the run
  aos inspect 3f2a --as-config`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectFormat   string
	inspectAsConfig bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", report.FormatText,
		"output format (text, markdown, json)")
	inspectCmd.Flags().BoolVar(&inspectAsConfig, "as-config", false,
		"print the workflow.hello config that reproduces the run")
}

func runInspect(cmd *cobra.Command, args []string) error {
	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := cmd.Context()
	runID, data, err := loadManifestByRef(ctx, env.store, args[0])
	if err != nil {
		return err
	}
	m, err := eventlog.DecodeManifest(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if inspectAsConfig {
		yml, err := config.WorkflowYAML(workflow.ConfigFromManifest(m))
		if err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
		_, err = out.Write(yml)
		return err
	}

	var schema *eventlog.Schema
	if loader, ok := env.store.(store.SchemaLoader); ok {
		if raw, err := loader.LoadSchema(ctx, runID); err == nil {
			var s eventlog.Schema
			if err := json.Unmarshal(raw, &s); err == nil {
				schema = &s
			} else {
				env.logger.Warn("ignoring unreadable event log schema", "run_id", runID, "error", err)
			}
		}
	}

	return report.RenderManifest(out, m, schema, report.Options{
		Format: inspectFormat,
		Color:  colorEnabled(out),
	})
}
