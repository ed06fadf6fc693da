package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/service/workflow"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a hello-workflow run",
	Long: `Run the hello workflow once under a recording clock with a freshly
locked seed, and store its manifest and event log.

The models, tools and policy decisions come from workflow.hello in the
configuration.

Examples:
  # Record with a generated run id
  aos record

  # Record into a SQLite store and print the manifest as JSON
  aos record --store-backend sqlite --json`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

var (
	recordRunID string
	recordJSON  bool
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVar(&recordRunID, "run-id", "",
		"run id to record under (default: generated)")
	recordCmd.Flags().BoolVar(&recordJSON, "json", false,
		"print the run id and manifest as JSON")
}

// recordOutput is printed by --json.
type recordOutput struct {
	RunID    string         `json:"runId"`
	Manifest *core.Manifest `json:"manifest"`
}

func runRecord(cmd *cobra.Command, _ []string) error {
	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	recorder := workflow.NewRecorder(env.store, workflow.WithRecorderLogger(env.logger))

	var artifacts *core.Artifacts
	if cmd.Flags().Changed("run-id") {
		artifacts, err = recorder.RecordRun(cmd.Context(), recordRunID, env.cfg.Workflow.Hello)
	} else {
		artifacts, err = recorder.Record(cmd.Context(), env.cfg.Workflow.Hello)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if recordJSON {
		return writeJSON(out, recordOutput{RunID: artifacts.Manifest.RunID, Manifest: artifacts.Manifest})
	}
	fmt.Fprintf(out, "Recorded run %s.\n", artifacts.Manifest.RunID)
	return nil
}
