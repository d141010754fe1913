package internal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyspot/pkg/cache"
	"studyspot/pkg/config"
	"studyspot/pkg/creditclient"
	"studyspot/pkg/database"
	"studyspot/pkg/events"
	"studyspot/pkg/idgen"
	"studyspot/pkg/jwt"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/queue"
	"studyspot/pkg/roles"
	"studyspot/pkg/server"
	billingConfig "studyspot/services/subscription/internal/config"
	subscriptionHTTP "studyspot/services/subscription/internal/controller/http"
	"studyspot/services/subscription/internal/repo/persistent"
	"studyspot/services/subscription/internal/scheduler"
	"studyspot/services/subscription/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultPort = "8007"

type App struct {
	cfg         *config.Config
	billing     *billingConfig.Billing
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	jwtService  *jwt.Service
	invoices    *idgen.Generator
	scheduler   *scheduler.Scheduler
	httpServer  *server.Server
	serverErr   <-chan error
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New().With("service", "subscription")

	billing, err := billingConfig.LoadBilling()
	if err != nil {
		log.Error("Invalid billing configuration: %v", err)
		return nil, err
	}

	invoices, err := idgen.New(cfg.NodeID)
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
		log.Warn("Failed to connect to redis: %v (rate limits are per instance)", err)
		redisClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ: %v (invoice events disabled)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		billing:     billing,
		log:         log,
		db:          db,
		redisClient: redisClient,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		invoices:    invoices,
	}, nil
}

func (a *App) Run() error {
	repo := persistent.NewSubscriptionRepository(a.db)

	var publisher events.Publisher = events.NopPublisher{}
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	credits := creditclient.NewClient(a.cfg.CreditServiceURL, a.cfg.InternalAPIKey)
	terms := usecase.Terms{TaxBps: a.cfg.GSTBps, GraceDays: a.billing.GraceDays}

	subscriptionUseCase := usecase.NewSubscriptionUseCase(repo, a.invoices, credits, publisher, terms, a.log)
	invoiceService := usecase.NewInvoiceUseCase(repo, a.invoices, credits, publisher, terms, a.log)

	jobs, err := scheduler.New(invoiceService, a.billing, a.log.With("component", "scheduler"))
	if err != nil {
		return err
	}
	if err := jobs.Start(); err != nil {
		return err
	}
	a.scheduler = jobs

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r,
		subscriptionHTTP.NewSubscriptionHandler(subscriptionUseCase, a.log),
		subscriptionHTTP.NewInvoiceHandler(invoiceService, a.log),
	)

	a.httpServer = server.New("Subscription", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) registerRoutes(r *gin.Engine, sh *subscriptionHTTP.SubscriptionHandler, ih *subscriptionHTTP.InvoiceHandler) {
	r.GET("/api/v1/plans", sh.ListPlans)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.TenantScope())
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))

	platform := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin)
	billingRoles := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner)
	needTenant := middleware.RequireTenant()

	plans := api.Group("/plans")
	plans.Use(platform)
	{
		plans.GET("/all", sh.ListAllPlans)
		plans.POST("", sh.CreatePlan)
		plans.PUT("/:id", sh.UpdatePlan)
	}

	subscriptions := api.Group("/subscriptions")
	{
		subscriptions.GET("", platform, sh.ListSubscriptions)
		subscriptions.POST("", billingRoles, needTenant, sh.Subscribe)
		subscriptions.GET("/current", needTenant, sh.Current)
		subscriptions.GET("/usage", needTenant, sh.Usage)
		subscriptions.POST("/cancel", billingRoles, needTenant, sh.Cancel)
		subscriptions.POST("/resume", billingRoles, needTenant, sh.Resume)
		subscriptions.POST("/change-plan", billingRoles, needTenant, sh.ChangePlan)
	}

	invoices := api.Group("/invoices")
	invoices.Use(billingRoles)
	{
		invoices.GET("", ih.ListInvoices)
		invoices.GET("/:id", ih.GetInvoice)
		invoices.POST("/:id/pay", ih.PayInvoice)
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
	a.log.Info("Shutting down subscription service...")
}

func (a *App) Shutdown() error {
	var shutdownErr error
	if a.httpServer != nil {
		shutdownErr = a.httpServer.Shutdown()
	}

	if a.scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		a.scheduler.Stop(ctx)
		cancel()
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
