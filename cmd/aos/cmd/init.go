package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration to .aos.yaml in the current directory,
or to ~/.config/aos/config.yaml with --global.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initForce  bool
	initGlobal bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "Write the per-user configuration")
}

func runInit(cmd *cobra.Command, _ []string) error {
	var configPath string
	if initGlobal {
		p, err := config.UserConfigPath()
		if err != nil {
			return err
		}
		configPath = p
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		configPath = filepath.Join(cwd, ".aos.yaml")
	}

	if err := config.WriteDefaultConfig(configPath, initForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
