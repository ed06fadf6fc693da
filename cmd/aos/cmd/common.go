package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
)

// flagBindings maps config keys to the persistent flags that override them.
var flagBindings = map[string]string{
	"log.level":     "log-level",
	"log.format":    "log-format",
	"store.backend": "store-backend",
	"store.path":    "store-path",
}

// loadConfig resolves configuration for one command invocation. Each call
// uses a fresh viper so flag bindings never leak between invocations.
func loadConfig(cmd *cobra.Command) (*config.Config, *config.Loader, error) {
	v := viper.New()
	for key, flag := range flagBindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("binding flag %s: %w", flag, err)
			}
		}
	}

	loader := config.NewLoaderWithViper(v)
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// newLogger builds the command logger. Logs never go to stdout, which
// carries command output.
func newLogger(cfg config.LogConfig, stderr io.Writer) (*logging.Logger, func(), error) {
	out := stderr
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}
	logger := logging.New(logging.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: out,
	})
	return logger, closeFn, nil
}

// commandEnv is what most commands need: configuration, a logger and the
// run store.
type commandEnv struct {
	cfg    *config.Config
	loader *config.Loader
	logger *logging.Logger
	store  core.ArtifactStore
	close  func()
}

func setupCommand(cmd *cobra.Command) (*commandEnv, error) {
	cfg, loader, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	runs, err := store.New(cfg.Store, logger)
	if err != nil {
		closeLog()
		return nil, err
	}
	return &commandEnv{
		cfg:    cfg,
		loader: loader,
		logger: logger,
		store:  runs,
		close: func() {
			if err := store.Close(runs); err != nil {
				logger.Warn("closing store", "error", err)
			}
			closeLog()
		},
	}, nil
}

// colorEnabled reports whether styled output should be written to w.
func colorEnabled(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
