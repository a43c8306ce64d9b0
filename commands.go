// commands.go
package main

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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/opencovid/api/config"
	"github.com/opencovid/api/handlers"
	"github.com/opencovid/api/services"
)

var (
	configPath string
	logFormat  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opencovid-api",
		Short:         "Serve COVID-19 time series and archive indexes for Canada",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text (overrides config)")

	root.AddCommand(newServeCmd(), newCheckCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	format := cfg.Server.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	setupLogger(format, cfg.Server.LogLevel)
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load every source, keep them fresh and serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				slog.Error("Error loading configuration", "error", err)
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting Open COVID API", "port", cfg.Server.Port, "audit_log", cfg.Database.Enabled())

	a, err := newApp(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("Error initializing application", "error", err)
		return err
	}
	defer a.Close()

	if a.refreshLog != nil {
		if err := a.refreshLog.Migrate(ctx); err != nil {
			slog.Error("Error migrating refresh log", "error", err)
			return err
		}
	}

	if err := a.scheduler.LoadAll(ctx); err != nil {
		slog.Error("Initial data load failed", "error", err)
		return err
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(a.handlerDeps(prometheus.DefaultGatherer)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Error starting server", "error", err)
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every source once and print its version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Database = config.DatabaseConfig{}

			a, err := newApp(cfg, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.scheduler.LoadAll(cmd.Context()); err != nil {
				return err
			}
			ts, ds, ar := a.timeseries.Store().Current(), a.datasets.Store().Current(), a.archive.Store().Current()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "timeseries\t%s\t%d rows\n", ts.Version.Token, services.TimeseriesRows(ts.Data))
			fmt.Fprintf(out, "datasets\t%s\t%d datasets\n", ds.Version.Token, services.ManifestRows(ds.Data))
			fmt.Fprintf(out, "archive\t%s\t%d files\n", ar.Version.Token, services.ArchiveRows(ar.Data))
			return nil
		},
	}
}
