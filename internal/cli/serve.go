package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/labreport/internal/config"
	"github.com/harun/labreport/internal/logger"
	"github.com/harun/labreport/internal/metrics"
	"github.com/harun/labreport/pkg/agent"
	"github.com/harun/labreport/pkg/extract"
	"github.com/harun/labreport/pkg/gateway"
	"github.com/harun/labreport/pkg/server"
	"github.com/harun/labreport/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lab report analyzer server",
	Long: `Start the HTTP server. It accepts PDF uploads, keeps a 30-minute
session per upload, and answers questions about each report through the
configured AI provider.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()
	zl := log.GetZerolog()

	m := metrics.New()

	store := session.NewStore(cfg.SessionTimeout(), session.WithLogger(zl))

	var hub *gateway.Hub
	if cfg.Gateway.Enabled {
		hub, err = gateway.NewHub(cfg.Gateway.SharedSecret, zl)
		if err != nil {
			return fmt.Errorf("failed to initialize gateway: %w", err)
		}
		defer hub.Close()
	}

	sweeper := session.NewSweeper(store, cfg.SweepInterval(), zl, func(removed []string) {
		m.SessionsSwept.Add(float64(len(removed)))
		m.SessionsActive.Set(float64(store.Count()))
		hub.Broadcast("session.swept", map[string]interface{}{
			"count":       len(removed),
			"session_ids": removed,
		})
	})
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}
	defer func() {
		if err := sweeper.Stop(); err != nil {
			zl.Warn().Err(err).Msg("Failed to stop session sweeper")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := agent.NewProvider(ctx, agent.Profile{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize AI provider: %w", err)
	}
	analyzer := agent.NewAnalyzer(provider, cfg.AI.Model, zl, m)

	srv, err := server.NewServer(server.Options{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes(),
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		UploadsDir:         cfg.Session.UploadsDir,
	}, store, extract.FromBytes, analyzer, hub, m, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	zl.Info().
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Dur("sessionTimeout", cfg.SessionTimeout()).
		Bool("gateway", cfg.Gateway.Enabled).
		Msg("Starting lab report analyzer")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		zl.Info().Msg("Received shutdown signal")
	}

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
