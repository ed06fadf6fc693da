package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	logLevel     string
	logFormat    string
	noColor      bool
	storeBackend string
	storePath    string

	// Version info - set via SetVersion()
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "aos",
	Short: "Record and replay deterministic agent workflow runs",
	Long: `aos records workflow runs as a manifest plus an append-only event log
and verifies them later by replaying the run with the recorded seed and
clock. A verified replay reproduces the recording byte for byte.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitError carries a process exit code. Its message, if any, has already
// been written when Silent is set.
type ExitError struct {
	Code   int
	Err    error
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return exitCode(rootCmd.Execute(), os.Stderr)
}

// exitCode maps a command error to an exit code, reporting it on stderr
// unless the command already did.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if !exitErr.Silent && exitErr.Err != nil {
			fmt.Fprintln(stderr, "Error:", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .aos.yaml, then ~/.config/aos/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store-backend", "file",
		"run store backend (file, sqlite)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", ".aos/runs",
		"run store location")
}
