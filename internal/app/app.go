package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/handler"
	"github.com/noah-isme/clanstats-api/internal/repository"
	"github.com/noah-isme/clanstats-api/internal/service"
	"github.com/noah-isme/clanstats-api/pkg/config"
	"github.com/noah-isme/clanstats-api/pkg/jobs"
)

// App owns the wired service graph and the background workers it depends on.
type App struct {
	Router *gin.Engine

	auditQueue *jobs.Queue
	logger     *zap.Logger
}

// New wires repositories, services and handlers. redisClient may be nil when caching is off.
func New(cfg *config.Config, logger *zap.Logger, db *sqlx.DB, redisClient redis.UniversalClient) *App {
	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Submissions.CacheEnabled && redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Submissions.CacheTTL, logger, true)
	}

	auditor := service.NewAuditDispatcher(repository.NewAuditRepository(db), logger)
	queue := auditor.NewAuditQueue(jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	})

	uow := NewUnitOfWork(repository.NewTxManager(db, cfg.Submissions.Transactional))
	submissions := service.NewSubmissionService(uow, validator.New(), logger,
		service.SubmissionServiceConfig{
			DefaultPerPage: cfg.Submissions.DefaultPerPage,
			MaxPerPage:     cfg.Submissions.MaxPerPage,
			StrictMatch:    cfg.Submissions.StrictMatch,
			FacetCacheTTL:  cfg.Submissions.CacheTTL,
		},
		service.WithSubmissionCache(cacheSvc),
		service.WithSubmissionMetrics(metrics),
		service.WithAuditRecorder(auditor),
	)

	router := NewRouter(RouterDeps{
		Config:      cfg,
		Logger:      logger,
		Auth:        service.NewAuthService(cfg.JWT.Secret, cfg.JWT.Issuer),
		Metrics:     metrics,
		Submissions: handler.NewSubmissionHandler(submissions),
		Probes:      handler.NewMetricsHandler(metrics, db),
	})

	return &App{Router: router, auditQueue: queue, logger: logger}
}

// Start launches background workers.
func (a *App) Start(ctx context.Context) {
	a.auditQueue.Start(ctx)
}

// Stop drains background workers.
func (a *App) Stop() {
	a.auditQueue.Stop()
}
