package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"SentinelAI/internal/config"
	"SentinelAI/internal/feed"
	"SentinelAI/internal/infrastructure/geo"
	"SentinelAI/internal/infrastructure/llm"
	"SentinelAI/internal/infrastructure/metrics"
	"SentinelAI/internal/infrastructure/parser"
	"SentinelAI/internal/infrastructure/scheduler"
	"SentinelAI/internal/infrastructure/storage"
	"SentinelAI/internal/infrastructure/telegram"
	"SentinelAI/internal/logging"
	"SentinelAI/internal/ports"
	"SentinelAI/internal/provider"
	"SentinelAI/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	scheduler *usecase.Scheduler
	db        *sql.DB
	logger    *slog.Logger

	// Registry carries the Prometheus collectors for an external
	// metrics endpoint to expose.
	Registry *prometheus.Registry
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.ForFormat(cfg.Logging.Format, cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	registry := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(registry)

	feeds := feed.NewRegistry()
	feeds.Register(parser.NewRSSScanner(nil))
	source := parser.NewStrategySource(feeds, cfg.Feeds, baseLogger.With("component", "source"))

	repo := storage.NewPostgresAlertRepository(db)
	var cache ports.GeocodeCache = storage.NewPostgresGeocodeCache(db)
	geocoder := geo.NewClient(cfg.Geocoding.Endpoint, cfg.Geocoding.APIKey)

	breakers := buildBreakers(cfg)
	router := provider.NewRouter(buildRoutes(cfg), breakers, sink,
		baseLogger.With("component", "router"))
	completers := llm.BuildClients(cfg.Providers)

	stages := usecase.BuildStages(usecase.StageDeps{
		Cache:      cache,
		Geocoder:   geocoder,
		Router:     router,
		Completers: completers,
		Repository: repo,
		Config:     cfg.Pipeline,
		Logger:     baseLogger.With("component", "stages"),
	})

	pipeline := usecase.NewPipeline(stages, cfg.Pipeline.Timeout.Std(), sink,
		baseLogger.With("component", "pipeline"))
	legacy := usecase.NewLegacyEnricher(cfg.Pipeline.SummaryMaxChars, cfg.Pipeline.RelevanceThreshold)
	service := usecase.NewService(pipeline, legacy, cfg.Pipeline.LegacyFallbackEnabled(),
		baseLogger.With("component", "service"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	runner := usecase.NewRunner(usecase.RunnerDeps{
		Source:   source,
		Repo:     repo,
		Service:  service,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "runner"),
	}, cfg.Pipeline.Workers, cfg.Scheduler.Interval.Std(), cfg.Notifications.ThreatThreshold)

	driver := scheduler.NewTickerScheduler(cfg.Scheduler.Interval.Std())

	return &Application{
		cfg:       cfg,
		scheduler: usecase.NewScheduler(driver, runner),
		db:        db,
		logger:    baseLogger,
		Registry:  registry,
	}, nil
}

// Run starts the cycle scheduler and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler == nil {
		return nil
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	if err := a.scheduler.Stop(context.Background()); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	return nil
}

func buildBreakers(cfg config.Config) map[string]*provider.Breaker {
	breakers := make(map[string]*provider.Breaker, len(cfg.Providers))
	for _, p := range cfg.Providers {
		bc := provider.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown.Std(),
		}
		if override, ok := cfg.Breaker.PerProvider[p.Name]; ok {
			if override.FailureThreshold > 0 {
				bc.FailureThreshold = override.FailureThreshold
			}
			if override.Cooldown > 0 {
				bc.Cooldown = override.Cooldown.Std()
			}
		}
		breakers[p.Name] = provider.NewBreaker(bc)
	}
	return breakers
}

func buildRoutes(cfg config.Config) provider.Routes {
	if len(cfg.Routing) == 0 {
		return provider.DefaultRoutes()
	}
	routes := make(provider.Routes, len(cfg.Routing))
	for task, order := range cfg.Routing {
		routes[provider.TaskType(task)] = order
	}
	return routes
}
