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
	creditHTTP "studyspot/services/credit/internal/controller/http"
	creditCache "studyspot/services/credit/internal/repo/cache"
	"studyspot/services/credit/internal/repo/persistent"
	"studyspot/services/credit/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultPort = "8005"

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	jwtService  *jwt.Service
	httpServer  *server.Server
	serverErr   <-chan error
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New().With("service", "credit")

	if cfg.InternalAPIKey == "" {
		log.Warn("INTERNAL_API_KEY is empty; internal credit endpoints will reject every call")
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (balance cache disabled)", err)
		redisClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ: %v (low balance alerts disabled)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
	}, nil
}

func (a *App) Run() error {
	creditRepo := persistent.NewCreditRepository(a.db)
	balanceCache := creditCache.NewBalanceCache(a.redisClient)

	var publisher events.Publisher = events.NopPublisher{}
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	creditUseCase := usecase.NewCreditUseCase(creditRepo, balanceCache, publisher, a.log)

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r,
		creditHTTP.NewCreditHandler(creditUseCase, a.log),
		creditHTTP.NewInternalHandler(creditUseCase, a.log),
	)

	a.httpServer = server.New("Credit", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) registerRoutes(r *gin.Engine, ch *creditHTTP.CreditHandler, ih *creditHTTP.InternalHandler) {
	internal := r.Group("/internal/credits")
	internal.Use(middleware.InternalAPIKey(a.cfg.InternalAPIKey))
	{
		internal.POST("/consume", ih.Consume)
		internal.POST("/refund", ih.Refund)
		internal.POST("/grant", ih.Grant)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.TenantScope())
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))

	platformOnly := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin)
	ownerOnly := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner)
	manage := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner, roles.LibraryStaff)
	needTenant := middleware.RequireTenant()

	credits := api.Group("/credits")
	{
		credits.GET("/packages", ch.ListPackages)
		credits.POST("/packages", platformOnly, ch.CreatePackage)
		credits.PUT("/packages/:id", platformOnly, ch.UpdatePackage)
		credits.GET("/balance", manage, needTenant, ch.GetBalance)
		credits.PUT("/threshold", ownerOnly, needTenant, ch.SetThreshold)
		credits.POST("/purchase", ownerOnly, needTenant, ch.Purchase)
		credits.POST("/grant", platformOnly, ch.Grant)
		credits.GET("/transactions", manage, needTenant, ch.ListTransactions)
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
	a.log.Info("Shutting down credit service...")
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
