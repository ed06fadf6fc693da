package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
)

var versionJSON bool

// buildInfo is the machine-readable form of the version command.
type buildInfo struct {
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	Date            string `json:"date"`
	ManifestVersion string `json:"manifestVersion"`
	EventLogSchema  string `json:"eventLogSchema"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the build version together with the manifest and event log
schema versions this build writes and replays.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := buildInfo{
			Version:         appVersion,
			Commit:          appCommit,
			Date:            appDate,
			ManifestVersion: core.ManifestVersion,
			EventLogSchema:  eventlog.SchemaVersion,
		}
		out := cmd.OutOrStdout()
		if versionJSON {
			return writeJSON(out, info)
		}
		fmt.Fprintf(out, "aos %s\n", info.Version)
		fmt.Fprintf(out, "  commit:   %s\n", info.Commit)
		fmt.Fprintf(out, "  built:    %s\n", info.Date)
		fmt.Fprintf(out, "  manifest: v%s\n", info.ManifestVersion)
		fmt.Fprintf(out, "  eventlog: v%s (%s)\n", info.EventLogSchema, eventlog.FormatJSONL)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version information as JSON")
	rootCmd.AddCommand(versionCmd)
}
