package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/clanstats-api/internal/handler"
	"github.com/noah-isme/clanstats-api/internal/middleware"
	"github.com/noah-isme/clanstats-api/internal/models"
	"github.com/noah-isme/clanstats-api/internal/service"
	"github.com/noah-isme/clanstats-api/pkg/config"
	"github.com/noah-isme/clanstats-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/clanstats-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/clanstats-api/pkg/middleware/requestid"
)

// RouterDeps collects what the HTTP surface needs.
type RouterDeps struct {
	Config      *config.Config
	Logger      *zap.Logger
	Auth        middleware.TokenValidator
	Metrics     *service.MetricsService
	Submissions *handler.SubmissionHandler
	Probes      *handler.MetricsHandler
}

// reviewerRoles may read and mutate submissions.
var reviewerRoles = []models.UserRole{models.RoleOwner, models.RoleAdmin, models.RoleModerator}

// NewRouter builds the gin engine with the global middleware chain and every route.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.Recovery(deps.Logger))
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.Probes.Health)
	r.GET("/ready", deps.Probes.Ready)
	r.GET("/metrics", deps.Probes.Prometheus)
	r.GET("/metrics/summary", deps.Probes.Summary)

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)
	submissions := api.Group("/submissions",
		middleware.JWT(deps.Auth),
		middleware.RequireRoles(reviewerRoles...),
		middleware.AuditSource(),
		middleware.WithResponseMeta(),
	)
	submissions.GET("/:id", deps.Submissions.Get)
	submissions.DELETE("/:id", deps.Submissions.Delete)
	submissions.PATCH("/:id", deps.Submissions.Patch)

	return r
}
