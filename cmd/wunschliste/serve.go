package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httphandler "github.com/ericfisherdev/wunschliste/internal/adapter/driving/http"
	"github.com/ericfisherdev/wunschliste/internal/application"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Select the storage backend and serve the wishlist API",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	// 1. Load configuration and initialize logging.
	cfg, closeLog, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Select the storage backend once, before serving anything.
	provider, err := selectStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := provider.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	// 4. Wire the wish service over the provider.
	wishSvc := application.NewWishService(provider, provider)

	// 5. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(wishSvc, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 6. Run the server and the optional remote re-check loop.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		provider.Start(gctx, cfg.Firestore.RecheckInterval)
		return nil
	})

	// 7. Log startup complete.
	sel := provider.Selection()
	slog.Info("wunschliste started",
		"listen_addr", cfg.ListenAddr,
		"backend", sel.Backend,
		"fallback", sel.IsFallback(),
		"recheck_interval", cfg.Firestore.RecheckInterval,
	)

	// 8. Wait for shutdown signal or a server failure.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		// 9. Graceful shutdown with 10s timeout for in-flight requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	// 10. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}
