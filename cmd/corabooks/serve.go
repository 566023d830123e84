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

	"github.com/spf13/cobra"

	"github.com/JohnyZhand/CoraBooks"
	cbhttp "github.com/JohnyZhand/CoraBooks/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the CoraBooks HTTP server.

When cleanup.interval is positive a background sweeper reconciles stale
upload intents on that interval.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port (env: CORABOOKS_SERVER_PORT)")
	serveCmd.Flags().String("admin-key", "", "key required by admin endpoints (env: CORABOOKS_ADMIN_KEY)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := appFromContext(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if cfg.Admin.Key == "" {
		slog.Warn("admin.key is not set, admin endpoints will reject every request")
	}

	handlerConfig := cbhttp.HandlerConfig{
		AdminKey: cfg.Admin.Key,
		CORS:     cfg.CORS,
		Logger:   slog.Default(),
	}
	if a.blobs != nil {
		handlerConfig.Blobs = a.blobs
	}

	handler := cbhttp.NewHandler(&handlerConfig, a.service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sweeper := corabooks.NewSweeper(a.service, cfg.Cleanup.Interval, cfg.Cleanup.Threshold, slog.Default())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "database", cfg.Database.Type, "storage", cfg.Storage.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-sweepDone
		return fmt.Errorf("server error: %w", err)
	}

	cancel()
	<-sweepDone
	return nil
}
