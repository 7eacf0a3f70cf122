package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/leadchat-ai/cmd/mainconfig"
	"github.com/wolfman30/leadchat-ai/internal/api/router"
	"github.com/wolfman30/leadchat-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadchat-ai/internal/config"
	"github.com/wolfman30/leadchat-ai/internal/conversation"
	httpmiddleware "github.com/wolfman30/leadchat-ai/internal/http/middleware"
	"github.com/wolfman30/leadchat-ai/internal/leads"
	"github.com/wolfman30/leadchat-ai/internal/webchat"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

func main() {
	// Local development reads .env; production sets the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadchat API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	loadAWS := bootstrap.OnceAWS(func(ctx context.Context) (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	})
	app, err := bootstrap.Build(ctx, cfg, loadAWS, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(app, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		// Long enough for a timeline plus budget report on one turn.
		WriteTimeout: 2*cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	app.Close(shutdownCtx)
	logger.Info("server stopped")
}

func newRouter(app *bootstrap.App, limiter *httpmiddleware.RateLimiter) http.Handler {
	logger := app.Logger
	return router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(app.Service, logger),
		WebChat:             webchat.NewHandler(app.Service, logger, webchat.WithMetrics(app.Metrics)),
		LeadsHandler:        leads.NewHandler(app.LeadRepo, logger),
		AdminAuthSecret:     app.Config.AdminJWTSecret,
		MetricsHandler:      metricsHandler(app.Registry),
		CORSAllowedOrigins:  app.Config.CORSAllowedOrigins,
		RateLimiter:         limiter,
		ReadinessChecks:     readinessChecks(app),
	})
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func readinessChecks(app *bootstrap.App) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}
	if app.DB != nil {
		checks["postgres"] = app.DB.Ping
	}
	return checks
}
