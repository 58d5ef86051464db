package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"appforge/internal/config"
	"appforge/internal/edit"
	"appforge/internal/intent"
	"appforge/internal/llm"
	"appforge/internal/logging"
	"appforge/internal/orchestrate"
	"appforge/internal/plan"
	"appforge/internal/ratelimit"
	"appforge/internal/server"
	"appforge/internal/session"

	"github.com/spf13/cobra"
)

var (
	version  = "0.1.0"
	cfgFile  string
	addr     string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "appforge",
		Short: "AI-assisted code generation backend",
		Long: `Appforge is an HTTP backend that turns natural-language requests into
code edits for small web apps. It runs a multi-phase pipeline (intent
analysis, context retrieval, planning, surgical editing, error auto-fix)
and streams progress over server-sent events.`,
		RunE: runServe,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/appforge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("appforge version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if addr != "" {
		cfg.Server.Addr = addr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	configureLogging(&cfg.Logging)
	defer logging.Close()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orc, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	limiter := ratelimit.New(cfg.Server.RequestsPerMinute, cfg.Server.RequestBurst)
	srv := server.New(cfg.Server.Addr, orc, limiter)

	watcher, err := config.NewWatcher(config.GetConfigPath(), func(updated *config.Config) {
		logging.Info("configuration reloaded", "path", config.GetConfigPath())
		configureLogging(&updated.Logging)
	})
	if err != nil {
		logging.Warn("config hot reload unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logging.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

// configureLogging routes log output to the configured directory when one
// is set, stderr otherwise.
func configureLogging(lc *config.LoggingConfig) {
	level := logging.ParseLevel(lc.Level)
	if lc.Dir == "" {
		logging.Configure(level, os.Stderr)
		return
	}
	if err := logging.EnableFileLogging(lc.Dir, level); err != nil {
		logging.Configure(level, os.Stderr)
		logging.Warn("file logging unavailable, using stderr", "dir", lc.Dir, "error", err)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFrom(cfgFile)
	}
	return config.Load()
}

// buildPipeline constructs one completion client per pipeline phase so
// each can point at a different model, and wires the orchestrator.
func buildPipeline(ctx context.Context, cfg *config.Config) (*orchestrate.Orchestrator, func(), error) {
	var clients []llm.Client
	cleanup := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	newClient := func(model config.PhaseModel) (llm.Client, error) {
		c, err := llm.New(ctx, cfg, model.Model)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
		return c, nil
	}

	intentClient, err := newClient(cfg.Models.Intent)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("intent client: %w", err)
	}
	planClient, err := newClient(cfg.Models.Plan)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("plan client: %w", err)
	}
	editClient, err := newClient(cfg.Models.Edit)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("edit client: %w", err)
	}

	sessions := session.NewStore(cfg.Session)
	orc := orchestrate.New(
		intent.NewClassifier(intentClient, intent.NewCatalog(), cfg.Models.Intent),
		plan.NewPlanner(planClient, cfg.Models.Plan),
		edit.NewEditor(editClient, cfg.Models.Edit, cfg.Pipeline.FileCaps),
		sessions,
		nil,
		cfg.Pipeline,
	)

	full := func() {
		sessions.Close()
		cleanup()
	}
	return orc, full, nil
}
