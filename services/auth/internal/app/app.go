package internal

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyspot/pkg/cache"
	"studyspot/pkg/config"
	"studyspot/pkg/database"
	"studyspot/pkg/jwt"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/roles"
	"studyspot/pkg/server"
	"studyspot/pkg/storage"
	authHTTP "studyspot/services/auth/internal/controller/http"
	"studyspot/services/auth/internal/repo/persistent"
	"studyspot/services/auth/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultPort = "8001"

type App struct {
	cfg           *config.Config
	log           *logger.Logger
	db            *gorm.DB
	redisClient   *redis.Client
	storageClient *storage.Client
	jwtService    *jwt.Service
	httpServer    *server.Server
	serverErr     <-chan error
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New().With("service", "auth")

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

	storageClient, err := storage.NewClient(cfg)
	if err != nil {
		log.Warn("Failed to create S3 client: %v (avatar uploads disabled)", err)
		storageClient = nil
	}

	return &App{
		cfg:           cfg,
		log:           log,
		db:            db,
		redisClient:   redisClient,
		storageClient: storageClient,
		jwtService:    jwt.NewService(cfg.JWTSecret).WithTTL(time.Duration(cfg.JWTTTLHours) * time.Hour),
	}, nil
}

func (a *App) Run() error {
	userRepo := persistent.NewUserRepository(a.db)

	var fileStorage usecase.FileStorage
	if a.storageClient != nil {
		fileStorage = a.storageClient
	}
	authUseCase := usecase.NewAuthUseCase(
		userRepo,
		a.jwtService,
		fileStorage,
		func(url string) string { return storage.KeyFromURL(a.cfg.S3BucketName, url) },
		a.log,
	)

	authHandler := authHTTP.NewAuthHandler(authUseCase, a.log)

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r, authHandler)

	a.httpServer = server.New("Auth", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) registerRoutes(r *gin.Engine, h *authHTTP.AuthHandler) {
	api := r.Group("/api/v1")

	public := api.Group("")
	public.Use(middleware.RateLimitMiddleware(a.redisClient, 10, time.Minute, a.log))
	{
		public.POST("/register", h.Register)
		public.POST("/login", h.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(a.jwtService))
	protected.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))
	{
		protected.GET("/me", h.Me)
		protected.PUT("/me", h.UpdateMe)
		protected.POST("/me/password", h.ChangePassword)
		protected.POST("/me/avatar", h.UploadAvatar)

		users := protected.Group("/users")
		users.Use(middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner, roles.LibraryStaff))
		users.Use(middleware.TenantScope())
		{
			users.GET("", h.ListUsers)
			users.GET("/:id", h.GetUser)
			users.POST("", middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner), h.CreateUser)
			users.PATCH("/:id/status", middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner), h.SetUserStatus)
		}
	}

	internal := api.Group("/internal")
	internal.Use(middleware.InternalAPIKey(a.cfg.InternalAPIKey))
	{
		internal.POST("/users", h.CreateInternalUser)
	}
}

func (a *App) Wait() {
	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-a.serverErr:
		if err != nil {
			a.log.Error("Server stopped: %v", err)
		}
	}
	a.log.Info("Shutting down auth service...")
}

func (a *App) Shutdown() error {
	var shutdownErr error
	if a.httpServer != nil {
		shutdownErr = a.httpServer.Shutdown()
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
