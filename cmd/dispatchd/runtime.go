package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/classifier"
	"github.com/spec-kit/dispatch-service/internal/config"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/observability"
	"github.com/spec-kit/dispatch-service/internal/persistence"
	"github.com/spec-kit/dispatch-service/internal/repository"
	"github.com/spec-kit/dispatch-service/internal/repository/memory"
	"github.com/spec-kit/dispatch-service/internal/rules"
	"github.com/spec-kit/dispatch-service/internal/service"
	"github.com/spec-kit/dispatch-service/internal/worker"
)

// runtime holds the wired components shared by the commands.
type runtime struct {
	cfg         *config.Config
	logger      *zap.Logger
	metrics     *observability.Metrics
	pg          *persistence.Postgres
	redis       *persistence.Redis
	broadcaster events.Broadcaster

	requests repository.ServiceRequestRepository
	analyses repository.AnalysisStore
	agents   repository.ServiceAgentRepository

	requestService      *service.RequestService
	matchingService     *service.MatchingService
	notificationService *service.NotificationService
	dispatcher          *worker.AnalysisDispatcher
}

func loadBase() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rt.pg = pg

	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				rt.close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		rt.requests = repository.NewServiceRequestRepository(pool)
		rt.analyses = repository.NewServiceAnalysisRepository(pool)
		rt.agents = repository.NewServiceAgentRepository(pool)
	} else {
		db := memory.New()
		rt.requests = db.Requests()
		rt.analyses = db.Analyses()
		rt.agents = db.Agents()
	}

	agents := service.NewAgentService(rt.agents, logger.Named("agents"))
	if err := seedRoster(ctx, cfg.Rules, agents, logger); err != nil {
		rt.close()
		return nil, err
	}

	rt.redis = persistence.NewRedis(cfg.Redis, logger)
	if rt.redis != nil {
		rt.broadcaster = events.NewRedisBroadcaster(rt.redis.Client, cfg.Notification.ChannelPrefix)
	} else {
		rt.broadcaster = events.NewLocalBroadcaster()
	}

	catalog, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("load rules: %w", err)
	}
	model, err := classifier.NewModel(cfg.Classifier, &http.Client{Timeout: cfg.Classifier.Timeout})
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("build classifier model: %w", err)
	}
	gateway := classifier.NewGateway(model, catalog, classifier.Options{
		Provider:      cfg.Classifier.Provider,
		Timeout:       cfg.Classifier.Timeout,
		RatePerSecond: cfg.Classifier.RatePerSecond,
		Burst:         cfg.Classifier.Burst,
		Logger:        logger.Named("classifier"),
		Metrics:       rt.metrics,
	})

	eventDispatcher := events.NewInMemoryDispatcher()
	rt.notificationService = service.NewNotificationService(eventDispatcher, rt.broadcaster, logger.Named("notifications"), rt.metrics)
	worker.StartNotificationWorker(rt.notificationService, logger.Named("notifications"))

	rt.requestService = service.NewRequestService(service.RequestDependencies{
		RequestRepo:  rt.requests,
		AnalysisRepo: rt.analyses,
		AgentRepo:    rt.agents,
		Dispatcher:   eventDispatcher,
		Metrics:      rt.metrics,
		Logger:       logger,
	})
	rt.matchingService = service.NewMatchingService(rt.requestService, rt.agents)

	rt.dispatcher = worker.NewAnalysisDispatcher(worker.AnalysisDependencies{
		Requests:   rt.requests,
		Recorder:   rt.analyses,
		Classifier: gateway,
		Sink:       rt.notificationService,
		Logger:     logger.Named("dispatcher"),
		Metrics:    rt.metrics,
	}, worker.DispatcherOptions{
		PollInterval: cfg.Dispatcher.PollInterval,
		BatchSize:    cfg.Dispatcher.BatchSize,
		Concurrency:  cfg.Dispatcher.Concurrency,
	})
	return rt, nil
}

func (rt *runtime) close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	rt.pg.Close()
}
