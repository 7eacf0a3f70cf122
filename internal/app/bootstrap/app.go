package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/leadchat-ai/internal/config"
	"github.com/wolfman30/leadchat-ai/internal/conversation"
	"github.com/wolfman30/leadchat-ai/internal/leads"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

// App holds the wired conversation service and its backing resources.
type App struct {
	Config     *appconfig.Config
	Logger     *logging.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.ConversationMetrics
	Service    *conversation.Service
	Dispatcher *leads.Dispatcher
	LeadRepo   leads.Repository
	Redis      *redis.Client
	DB         *pgxpool.Pool

	closeLLM func()
}

// OnceAWS memoizes an AWS config loader so every client shares one config.
func OnceAWS(load func(ctx context.Context) (aws.Config, error)) AWSLoader {
	if load == nil {
		return nil
	}
	var (
		once   sync.Once
		awsCfg aws.Config
		err    error
	)
	return func(ctx context.Context) (aws.Config, error) {
		once.Do(func() { awsCfg, err = load(ctx) })
		return awsCfg, err
	}
}

// Build wires the whole application from config. loadAWS may be nil when no
// AWS-backed component is configured.
func Build(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewConversationMetrics(registry)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  m,
		closeLLM: func() {},
	}

	app.Redis = BuildRedisClient(ctx, cfg, logger, true)
	app.DB = ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	app.LeadRepo = BuildLeadRepository(app.DB, logger)

	dispatcher, err := BuildLeadDispatcher(ctx, cfg, app.LeadRepo, loadAWS, m, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Dispatcher = dispatcher

	client, closeLLM, err := BuildLLMClient(ctx, cfg, loadAWS, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.closeLLM = closeLLM
	gateway := BuildGateway(client, cfg, m, logger)

	machine := conversation.NewMachine(gateway, cfg.MeetingSlots, logger,
		conversation.WithMaxInputChars(cfg.MaxInputChars),
	)
	store, locker := BuildSessionBackends(cfg, app.Redis)
	app.Service = conversation.NewService(machine, dispatcher, store, locker, logger,
		conversation.WithLockTTL(cfg.SessionLockTTL),
		conversation.WithMetrics(m),
	)

	logger.Info("conversation service ready",
		"redis", app.Redis != nil,
		"postgres", app.DB != nil,
		"llm_provider", cfg.LLMProvider,
		"meeting_slots", len(cfg.MeetingSlots),
	)
	return app, nil
}

// Close waits for in-flight lead deliveries, then releases clients.
func (a *App) Close(ctx context.Context) {
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Wait(ctx); err != nil {
			a.Logger.Warn("lead deliveries still in flight at shutdown", "error", err)
		}
	}
	if a.closeLLM != nil {
		a.closeLLM()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
