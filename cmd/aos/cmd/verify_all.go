package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/report"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/service/workflow"
)

var verifyAllCmd = &cobra.Command{
	Use:   "verify-all",
	Short: "Replay every stored run",
	Long: `Replay every run in the configured store and print one line per run.

Exits 1 if any run fails to verify.`,
	Args: cobra.NoArgs,
	RunE: runVerifyAll,
}

var verifyConcurrency int

func init() {
	rootCmd.AddCommand(verifyAllCmd)

	verifyAllCmd.Flags().IntVarP(&verifyConcurrency, "concurrency", "c", workflow.DefaultVerifyConcurrency,
		"maximum replays in flight")
}

func runVerifyAll(cmd *cobra.Command, _ []string) error {
	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	results, err := workflow.NewVerifier(env.store, env.logger).VerifyAll(cmd.Context(), verifyConcurrency)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed, err := report.RenderVerification(out, results, colorEnabled(out))
	if err != nil {
		return err
	}
	if failed > 0 {
		return &ExitError{Code: exitFailed, Silent: true}
	}
	return nil
}
