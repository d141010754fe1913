package internal

import (
	"context"
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
	analyticsHTTP "studyspot/services/analytics/internal/controller/http"
	reportCache "studyspot/services/analytics/internal/repo/cache"
	"studyspot/services/analytics/internal/repo/persistent"
	"studyspot/services/analytics/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const defaultPort = "8008"

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	pool        *pgxpool.Pool
	redisClient *redis.Client
	jwtService  *jwt.Service
	httpServer  *server.Server
	serverErr   <-chan error
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New().With("service", "analytics")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPgxPool(ctx, cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (reports are not cached)", err)
		redisClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		pool:        pool,
		redisClient: redisClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
	}, nil
}

func (a *App) Run() error {
	analyticsRepo := persistent.NewAnalyticsRepository(a.pool)
	reports := reportCache.NewReportCache(a.redisClient, reportCache.DefaultTTL)
	analyticsUseCase := usecase.NewAnalyticsUseCase(analyticsRepo, reports, a.log)

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r, analyticsHTTP.NewAnalyticsHandler(analyticsUseCase, a.log))

	a.httpServer = server.New("Analytics", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) registerRoutes(r *gin.Engine, h *analyticsHTTP.AnalyticsHandler) {
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.TenantScope())
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))

	tenantReports := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner, roles.LibraryStaff)
	needTenant := middleware.RequireTenant()

	analytics := api.Group("/analytics")
	{
		analytics.GET("/dashboard", tenantReports, needTenant, h.GetDashboard)
		analytics.GET("/revenue", tenantReports, needTenant, h.GetRevenue)
		analytics.GET("/occupancy", tenantReports, needTenant, h.GetOccupancy)
		analytics.GET("/platform", middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin), h.GetPlatform)
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
	a.log.Info("Shutting down analytics service...")
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

	a.pool.Close()
	return shutdownErr
}
