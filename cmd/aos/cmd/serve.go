package cmd

import (
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/api"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/events"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/service/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API for recording and replaying runs.

When a config file is in use it is watched; edits to workflow.hello apply
to recordings started after the change.

Examples:
  # Start with defaults (localhost:8080)
  aos serve

  # Start on custom host and port
  aos serve --host 0.0.0.0 --port 3000

  # Disable CORS (for production behind a reverse proxy)
  aos serve --no-cors`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "localhost",
		"Host address to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080,
		"Port to listen on")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false,
		"Disable CORS headers")
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	host, port := env.cfg.Server.Host, env.cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}
	cors := env.cfg.Server.CORS && !serveNoCORS

	logger := env.logger.WithComponent("server")
	bus := events.New(events.DefaultBufferSize)
	server := api.NewServer(env.store,
		api.WithEventBus(bus),
		api.WithLogger(logger),
		api.WithCORS(cors),
		api.WithHelloConfig(env.cfg.Workflow.Hello),
		api.WithRecorder(workflow.NewRecorder(env.store, workflow.WithRecorderLogger(logger))),
	)

	if path := env.loader.ConfigFile(); path != "" {
		v := env.loader.Viper()
		v.OnConfigChange(onConfigChange(env.loader, server, logger))
		v.WatchConfig()
		logger.Info("watching config file", "path", path)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Closing the bus ends open event streams so shutdown does not wait on them.
	go func() {
		<-ctx.Done()
		bus.Close()
	}()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	logger.Info("server starting",
		"addr", addr,
		"cors", cors,
		"store_backend", env.cfg.Store.Backend,
		"store_path", env.cfg.Store.ResolvedPath())

	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// onConfigChange reloads configuration after the watched file changes and
// hands the new hello-workflow lists to the server. A reload that fails or
// yields invalid lists keeps the previous ones.
func onConfigChange(loader *config.Loader, server *api.Server, logger *logging.Logger) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := loader.Reload()
		if err != nil {
			logger.Warn("config reload failed", "path", e.Name, "error", err)
			return
		}
		if msgs := cfg.Workflow.Hello.Validate(); len(msgs) > 0 {
			logger.Warn("ignoring invalid workflow config", "path", e.Name, "errors", msgs)
			return
		}
		server.SetHelloConfig(cfg.Workflow.Hello)
		logger.Info("workflow config reloaded", "path", e.Name,
			"models", len(cfg.Workflow.Hello.Models),
			"tools", len(cfg.Workflow.Hello.Tools),
			"policy_decisions", len(cfg.Workflow.Hello.PolicyDecisions))
	}
}
