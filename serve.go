package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/cleanshift/middlewares"
	"github.com/yeremiapane/cleanshift/router"
	"github.com/yeremiapane/cleanshift/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the acknowledgement monitor",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.GinMode == gin.ReleaseMode && cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set in release mode")
	}
	if cfg.Auth.JWTSecret == "" {
		utils.ErrorLogger.Warn("auth.jwt_secret is empty, using the development secret")
	}
	gin.SetMode(cfg.Server.GinMode)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middlewares.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
				utils.PurgeRevokedTokens()
			case <-ctx.Done():
				return
			}
		}
	}()

	r := router.SetupRouter(router.Deps{
		DB:            a.db,
		Tasks:         a.tasks,
		Availability:  a.availability,
		Monitor:       a.monitor,
		Hub:           a.hub,
		Gatherer:      a.registry,
		RateLimiter:   limiter,
		AllowedOrigin: cfg.Server.AllowedOrigin,
	})
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	a.monitor.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		utils.InfoLogger.Println("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Error during shutdown: %v", err)
	}
	return nil
}
