package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomlift/api/internal/config"
	"roomlift/api/internal/ledger"
	"roomlift/api/internal/middleware"
	"roomlift/api/internal/models"
	"roomlift/api/internal/provider"
	"roomlift/api/internal/repository"
	"roomlift/api/internal/service"
	"roomlift/api/internal/storage"
)

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	db      *pgxpool.Pool
	cache   *redis.Client
	users   *repository.UserRepository
	images  *repository.ImageRepository
	logs    *repository.LogRepository
	credits *ledger.Ledger
	catalog *service.ModelCatalog
	jobs    *service.JobService
	batch   *service.BatchService
	store   *storage.ObjectStore

	enhanceKind  service.JobKind
	decorateKind service.JobKind
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	imageRepo := repository.NewImageRepository(db)
	logRepo := repository.NewLogRepository(db)
	modelRepo := repository.NewModelRepository(db)

	credits := ledger.New(db, log)
	catalog := service.NewModelCatalog(modelRepo, cache, cfg.Jobs.DefaultModel, cfg.Jobs.ModelCacheTTL, log)

	registry := provider.NewRegistry(
		provider.NewSyncAdapter(cfg.Providers.Sync, log),
		provider.NewQueueAdapter(cfg.Providers.Queue, cfg.Providers.PollInterval, cfg.Providers.PollMaxAttempts, log),
	)

	jobs := service.NewJobService(imageRepo, logRepo, credits, store, catalog, registry, cfg.Providers.MaxConcurrent, log)
	batch := service.NewBatchService(jobs, imageRepo, logRepo, log)

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		db:           db,
		cache:        cache,
		users:        userRepo,
		images:       imageRepo,
		logs:         logRepo,
		credits:      credits,
		catalog:      catalog,
		jobs:         jobs,
		batch:        batch,
		store:        store,
		enhanceKind:  service.EnhanceKind(cfg.Jobs),
		decorateKind: service.DecorateKind(cfg.Jobs),
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(h.cfg, h.users))

	images := v1.Group("/images")
	{
		images.GET("", h.ListImages)
		images.POST("/batch", h.RunBatch)
		images.GET("/batch/status", h.BatchStatus)
		images.GET("/:id", h.GetImage)
		images.POST("/:id/enhance", h.Enhance)
		images.POST("/:id/decorate", h.Decorate)
	}

	v1.GET("/models", h.ListModels)
	v1.GET("/credits", h.GetCredits)
	v1.GET("/logs", h.ListLogs)

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))
	admin.GET("/images", h.AdminListImages)
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get("current_user")
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}
