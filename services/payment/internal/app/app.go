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
	"studyspot/pkg/idgen"
	"studyspot/pkg/jwt"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/queue"
	"studyspot/pkg/roles"
	"studyspot/pkg/server"
	paymentHTTP "studyspot/services/payment/internal/controller/http"
	paymentCache "studyspot/services/payment/internal/repo/cache"
	"studyspot/services/payment/internal/repo/persistent"
	"studyspot/services/payment/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultPort = "8004"

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	jwtService  *jwt.Service
	receipts    *idgen.Generator
	httpServer  *server.Server
	serverErr   <-chan error
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New().With("service", "payment")

	receipts, err := idgen.New(cfg.NodeID)
	if err != nil {
		log.Error("Invalid NODE_ID %d: %v", cfg.NodeID, err)
		return nil, err
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (idempotency keys disabled)", err)
		redisClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ: %v (payment events disabled)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		receipts:    receipts,
	}, nil
}

func (a *App) Run() error {
	paymentRepo := persistent.NewPaymentRepository(a.db)
	idempotency := paymentCache.NewIdempotencyStore(a.redisClient)

	var publisher events.Publisher = events.NopPublisher{}
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	paymentUseCase := usecase.NewPaymentUseCase(paymentRepo, idempotency, a.receipts, publisher, usecase.Fees{
		PlatformFeeBps: a.cfg.PlatformFeeBps,
		TaxBps:         a.cfg.GSTBps,
	}, a.log)

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r, paymentHTTP.NewPaymentHandler(paymentUseCase, a.log))

	a.httpServer = server.New("Payment", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) registerRoutes(r *gin.Engine, ph *paymentHTTP.PaymentHandler) {
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.TenantScope())
	api.Use(middleware.RequireTenant())
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))

	manage := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner, roles.LibraryStaff)

	payments := api.Group("/payments")
	{
		payments.GET("", ph.ListPayments)
		payments.GET("/summary", manage, ph.Summary)
		payments.GET("/:id", ph.GetPayment)
		payments.POST("", manage, ph.RecordPayment)
		payments.POST("/:id/complete", manage, ph.CompletePayment)
		payments.POST("/:id/fail", manage, ph.FailPayment)
		payments.POST("/:id/refund", manage, ph.RefundPayment)
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
	a.log.Info("Shutting down payment service...")
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
