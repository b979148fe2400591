package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gradescan/internal/ratelimit"
	"github.com/MeKo-Tech/gradescan/internal/server"
	"github.com/MeKo-Tech/gradescan/internal/store"
	"github.com/MeKo-Tech/gradescan/internal/version"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the scan and bonus API",
	Long: `Start an HTTP server that provides REST and WebSocket endpoints.

The server provides the following endpoints:
  POST /v1/scans          - Scan an uploaded report card (multipart "image")
  GET  /v1/scans/ws       - Scan over WebSocket with progress events
  POST /v1/bonus          - Calculate the bonus of a report
  POST /v1/bonus/subject  - Calculate the bonus of one subject
  GET  /health            - Health check endpoint
  GET  /metrics           - Prometheus metrics

With store.dsn set, grading systems and factor tables are read from Postgres and
the scan quota is shared by every instance on that database.

Examples:
  gradescan serve
  gradescan serve --port 8080
  gradescan serve --host 0.0.0.0 --port 3000 --backend gemini`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		// recognition.backend is bound to the scan command's flag
		if cmd.Flags().Changed("backend") {
			cfg.Recognition.Backend, _ = cmd.Flags().GetString("backend")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var (
			factorStore server.FactorStore
			limiter     ratelimit.Limiter
		)
		if cfg.Store.DSN != "" {
			st, err := openStore(ctx, cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer st.Close()
			factorStore = st
			if cfg.Server.RateLimitEnabled {
				limiter = store.NewLimiter(st, cfg.Server.ScansPerHour, time.Hour)
			}
		} else if cfg.Server.RateLimitEnabled {
			limiter = ratelimit.NewHourly(cfg.Server.ScansPerHour)
		}

		pipeline, err := newPipeline(cfg, limiter)
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}

		serverConfig := cfg.ToServerConfig(version.Version)
		api := server.NewServer(serverConfig, pipeline, factorStore)

		// the scan timeout is enforced per request; leave room to write the response
		timeout := time.Duration(cfg.Server.TimeoutSec)*time.Second + 10*time.Second
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
			Handler:           api.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
		}
		return runServer(ctx, cancel, httpServer, cfg.Server.ShutdownTimeout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("timeout", 60, "scan timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().String("backend", "tesseract", "recognition backend: tesseract or gemini")
	serveCmd.Flags().Bool("rate-limit-enabled", true, "enable the per-caller scan quota")
	serveCmd.Flags().Int("scans-per-hour", 20, "scans allowed per caller and hour")
	serveCmd.Flags().String("dsn", "", "Postgres DSN for stored factors and the shared quota")

	for key, flag := range map[string]string{
		"server.host":               "host",
		"server.port":               "port",
		"server.cors_origin":        "cors-origin",
		"server.timeout_sec":        "timeout",
		"server.shutdown_timeout":   "shutdown-timeout",
		"server.rate_limit_enabled": "rate-limit-enabled",
		"server.scans_per_hour":     "scans-per-hour",
		"store.dsn":                 "dsn",
	} {
		_ = viper.BindPFlag(key, serveCmd.Flags().Lookup(flag))
	}
}

func openStore(ctx context.Context, dsn string) (*store.Store, error) {
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	st, err := store.Open(openCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := st.Migrate(openCtx); err != nil {
		st.Close()
		return nil, err
	}
	slog.Info("Connected to store")
	return st, nil
}

// runServer serves until a signal arrives or the listener fails, then shuts down gracefully.
func runServer(ctx context.Context, cancel context.CancelFunc, httpServer *http.Server, shutdownTimeout int) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting gradescan server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Graceful shutdown completed")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
