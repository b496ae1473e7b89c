package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/api"
	"github.com/perpetuallyhorni/tourhub/pkg/config"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tourhub API.",
	Long: `Serves the downloads, social and command-center procedures under
` + rpc.DefaultPath + ` until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	sc := cfg.Server
	if cmd.Flags().Changed("listen") {
		sc.Listen, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("store") {
		sc.Store, _ = cmd.Flags().GetString("store")
	}
	if cmd.Flags().Changed("no-seed") {
		noSeed, _ := cmd.Flags().GetBool("no-seed")
		sc.Seed = !noSeed
	}
	if cmd.Flags().Changed("latency-scale") {
		sc.LatencyScale, _ = cmd.Flags().GetFloat64("latency-scale")
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := cmd.Context()
	store, err := api.OpenStore(ctx, sc.Store, sc.Seed, tourhub.RealClock{}, tourhub.UUIDGenerator{})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	router := api.NewRouter(store, api.Options{Logger: logger, LatencyScale: sc.LatencyScale})
	srv := &http.Server{
		Addr:              sc.Listen,
		Handler:           router.Handler(rpc.EngineOptions{AllowedOrigins: sc.AllowedOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", sc.Listen), zap.String("store", sc.Store))
		errCh <- srv.ListenAndServe()
	}()
	console.Success("Serving %s on http://%s (store: %s)", rpc.DefaultPath, sc.Listen, sc.Store)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	console.Info("Shutting down...")
	grace := config.Duration(sc.ShutdownGrace, 5*time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("store", "", `Record store, "memory" or "sqlite" (overrides config)`)
	serveCmd.Flags().Bool("no-seed", false, "Start with an empty catalogue")
	serveCmd.Flags().Float64("latency-scale", 1, "Multiplier for simulated command-center latency, 0 disables it")
}
