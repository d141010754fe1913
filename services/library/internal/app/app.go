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
	"studyspot/pkg/events"
	"studyspot/pkg/jwt"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/queue"
	"studyspot/pkg/roles"
	"studyspot/pkg/server"
	libraryAMQP "studyspot/services/library/internal/controller/amqp"
	libraryHTTP "studyspot/services/library/internal/controller/http"
	"studyspot/services/library/internal/repo/persistent"
	"studyspot/services/library/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultPort = "8003"

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	jwtService  *jwt.Service
	httpServer  *server.Server
	serverErr   <-chan error
	cancel      context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New().With("service", "library")

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
		log.Warn("Failed to connect to RabbitMQ: %v (booking events and payment confirmations disabled)", err)
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
	libraryRepo := persistent.NewLibraryRepository(a.db)
	bookingRepo := persistent.NewBookingRepository(a.db)

	var publisher events.Publisher = events.NopPublisher{}
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	libraryUseCase := usecase.NewLibraryUseCase(libraryRepo, bookingRepo, a.log)
	bookingUseCase := usecase.NewBookingUseCase(libraryRepo, bookingRepo, publisher, a.log)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if err := a.startConsumers(ctx, bookingUseCase); err != nil {
		cancel()
		return err
	}

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r,
		libraryHTTP.NewLibraryHandler(libraryUseCase, a.log),
		libraryHTTP.NewBookingHandler(bookingUseCase, a.log),
	)

	a.httpServer = server.New("Library", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) startConsumers(ctx context.Context, bookingUseCase usecase.BookingUseCase) error {
	if a.queueClient == nil {
		return nil
	}
	if err := a.queueClient.DeclareQueue(libraryAMQP.PaymentsQueue, events.PaymentCompleted); err != nil {
		return err
	}
	consumer := libraryAMQP.NewPaymentConsumer(bookingUseCase, a.log)
	return a.queueClient.Consume(ctx, libraryAMQP.PaymentsQueue, consumer.Handle)
}

func (a *App) registerRoutes(r *gin.Engine, lh *libraryHTTP.LibraryHandler, bh *libraryHTTP.BookingHandler) {
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.TenantScope())
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))

	manage := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner, roles.LibraryStaff)
	ownerOnly := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner)
	needTenant := middleware.RequireTenant()

	libraries := api.Group("/libraries")
	{
		libraries.GET("", lh.ListLibraries)
		libraries.GET("/:id", lh.GetLibrary)
		libraries.GET("/:id/seats", lh.ListSeats)
		libraries.GET("/:id/availability", lh.Availability)
		libraries.POST("", ownerOnly, needTenant, lh.CreateLibrary)
		libraries.PUT("/:id", ownerOnly, lh.UpdateLibrary)
		libraries.DELETE("/:id", ownerOnly, lh.DeleteLibrary)
		libraries.POST("/:id/seats/bulk", manage, lh.BulkCreateSeats)
	}

	api.PATCH("/seats/:id", manage, lh.UpdateSeat)

	feePlans := api.Group("/fee-plans")
	{
		feePlans.GET("", lh.ListFeePlans)
		feePlans.GET("/:id/quote", lh.QuoteFeePlan)
		feePlans.POST("", ownerOnly, needTenant, lh.CreateFeePlan)
		feePlans.PUT("/:id", ownerOnly, lh.UpdateFeePlan)
		feePlans.DELETE("/:id", ownerOnly, lh.DeleteFeePlan)
	}

	bookings := api.Group("/bookings")
	{
		bookings.POST("", needTenant, bh.CreateBooking)
		bookings.GET("", bh.ListBookings)
		bookings.GET("/:id", bh.GetBooking)
		bookings.POST("/:id/confirm", manage, bh.ConfirmBooking)
		bookings.POST("/:id/check-in", bh.CheckIn)
		bookings.POST("/:id/check-out", bh.CheckOut)
		bookings.POST("/:id/cancel", bh.CancelBooking)
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
	a.log.Info("Shutting down library service...")
}

func (a *App) Shutdown() error {
	if a.cancel != nil {
		a.cancel()
	}

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
