package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/fsutil"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/service/workflow"
)

// Exit codes of the replay command.
const (
	exitOK       = 0
	exitFailed   = 1
	exitBadInput = 2
)

const replayUsage = "Usage: aos replay --manifest <path> --eventlog <path>"

var replayCmd = &cobra.Command{
	Use:   "replay --manifest <path> --eventlog <path>",
	Short: "Verify a recorded run by replaying it",
	Long: `Replay a recorded run from its manifest and event log files.

The run is rebuilt with the recorded seed and the event timestamps as its
clock, then compared with the recording field by field and byte by byte.

Exit codes:
  0  replay verified
  1  manifest invalid, event log empty, replay mismatch or replay failure
  2  usage error, unreadable file or malformed JSON`,
	// Arguments are parsed by hand so that errors and exit codes stay
	// stable regardless of the flag library.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, a := range args {
			if a == "-h" || a == "--help" {
				return cmd.Help()
			}
		}
		code := runReplay(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if code != exitOK {
			return &ExitError{Code: code, Silent: true}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

type replayRequest struct {
	manifestPath string
	eventLogPath string
}

// parseReplayArgs accepts exactly the --manifest and --eventlog options,
// each followed by a value, in any order. A repeated option keeps its last
// value.
func parseReplayArgs(args []string) (replayRequest, error) {
	var req replayRequest
	if len(args) == 0 {
		return req, core.ErrUsage("Missing required arguments.")
	}

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--manifest" && i+1 < len(args):
			i++
			req.manifestPath = args[i]
		case args[i] == "--eventlog" && i+1 < len(args):
			i++
			req.eventLogPath = args[i]
		default:
			return req, core.ErrUsage("Unknown or incomplete argument: " + args[i])
		}
	}

	if core.IsBlank(req.manifestPath) || core.IsBlank(req.eventLogPath) {
		return req, core.ErrUsage("Both --manifest and --eventlog are required.")
	}
	return req, nil
}

// runReplay executes the replay command and returns its exit code.
func runReplay(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}

	badInput := func(msg string) int {
		fmt.Fprintln(stderr, msg)
		fmt.Fprintln(stderr, replayUsage)
		return exitBadInput
	}

	req, err := parseReplayArgs(args)
	if err != nil {
		return badInput(core.MessageOf(err))
	}

	manifest, err := fsutil.ReadFileScoped(ctx, req.manifestPath)
	if err != nil {
		return badInput(readFailure(req.manifestPath, err))
	}
	eventLog, err := fsutil.ReadFileScoped(ctx, req.eventLogPath)
	if err != nil {
		return badInput(readFailure(req.eventLogPath, err))
	}

	result, err := workflow.Verify(manifest, eventLog)
	if err != nil {
		if core.IsCategory(err, core.ErrCatFormat) {
			return badInput("Invalid JSON input: " + core.MessageOf(err))
		}
		fmt.Fprintln(stderr, "Replay failed: "+core.MessageOf(err))
		return exitFailed
	}

	switch result.Status {
	case workflow.StatusVerified:
		fmt.Fprintf(stdout, "Replay verified for run %s.\n", result.RunID)
		return exitOK
	case workflow.StatusInvalidManifest:
		fmt.Fprintln(stderr, "Manifest validation failed: "+strings.Join(result.Violations, " "))
	case workflow.StatusEmptyEventLog:
		fmt.Fprintln(stderr, "Event log is empty.")
	default:
		for _, m := range result.Mismatches {
			fmt.Fprintln(stderr, "Mismatch: "+m)
		}
	}
	return exitFailed
}

func readFailure(path string, err error) string {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Sprintf("Could not find file '%s'.", path)
	}
	return fmt.Sprintf("Could not read file '%s': %v", path, err)
}
