package internal

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyspot/pkg/cache"
	"studyspot/pkg/config"
	"studyspot/pkg/database"
	"studyspot/pkg/events"
	"studyspot/pkg/jwt"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/queue"
	"studyspot/pkg/roles"
	"studyspot/pkg/server"
	"studyspot/pkg/storage"
	tenantHTTP "studyspot/services/tenant/internal/controller/http"
	"studyspot/services/tenant/internal/repo/persistent"
	"studyspot/services/tenant/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultPort = "8002"

type App struct {
	cfg           *config.Config
	log           *logger.Logger
	db            *gorm.DB
	redisClient   *redis.Client
	queueClient   *queue.Client
	storageClient *storage.Client
	jwtService    *jwt.Service
	httpServer    *server.Server
	serverErr     <-chan error
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New().With("service", "tenant")

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (rate limiting falls back to memory)", err)
		redisClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ: %v (tenant events disabled)", err)
		queueClient = nil
	}

	storageClient, err := storage.NewClient(cfg)
	if err != nil {
		log.Warn("Failed to create S3 client: %v (logo uploads disabled)", err)
		storageClient = nil
	}

	return &App{
		cfg:           cfg,
		log:           log,
		db:            db,
		redisClient:   redisClient,
		queueClient:   queueClient,
		storageClient: storageClient,
		jwtService:    jwt.NewService(cfg.JWTSecret),
	}, nil
}

func (a *App) Run() error {
	tenantRepo := persistent.NewTenantRepository(a.db)

	var publisher events.Publisher = events.NopPublisher{}
	if a.queueClient != nil {
		publisher = a.queueClient
	}
	var fileStorage usecase.FileStorage
	if a.storageClient != nil {
		fileStorage = a.storageClient
	}

	tenantUseCase := usecase.NewTenantUseCase(tenantRepo, fileStorage, publisher, a.log)
	tenantHandler := tenantHTTP.NewTenantHandler(tenantUseCase, a.log)

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r, tenantHandler)

	a.httpServer = server.New("Tenant", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) registerRoutes(r *gin.Engine, h *tenantHTTP.TenantHandler) {
	api := r.Group("/api/v1")

	public := api.Group("/public")
	public.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))
	{
		public.GET("/tenants/:slug", h.GetPublicTenant)
	}

	platformOnly := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin)

	tenants := api.Group("/tenants")
	tenants.Use(middleware.AuthMiddleware(a.jwtService))
	tenants.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))
	{
		tenants.POST("", platformOnly, h.CreateTenant)
		tenants.GET("", platformOnly, h.ListTenants)
		tenants.GET("/:id", h.GetTenant)
		tenants.PUT("/:id", h.UpdateTenant)
		tenants.POST("/:id/suspend", platformOnly, h.SuspendTenant)
		tenants.POST("/:id/activate", platformOnly, h.ActivateTenant)
		tenants.GET("/:id/settings", h.GetSettings)
		tenants.PUT("/:id/settings", h.UpdateSettings)
		tenants.POST("/:id/logo", h.UploadLogo)
	}
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-a.serverErr:
		if err != nil {
			a.log.Error("Server stopped: %v", err)
		}
	}
	a.log.Info("Shutting down tenant service...")
}

func (a *App) Shutdown() error {
	var shutdownErr error
	if a.httpServer != nil {
		shutdownErr = a.httpServer.Shutdown()
	}

	if a.queueClient != nil {
		if err := a.queueClient.Close(); err != nil {
			a.log.Error("Error closing RabbitMQ: %v", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	if err := database.Close(a.db); err != nil {
		a.log.Error("Error closing database: %v", err)
	}

	return shutdownErr
}
