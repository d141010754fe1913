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
	"studyspot/pkg/jwt"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/models"
	"studyspot/pkg/queue"
	"studyspot/pkg/roles"
	"studyspot/pkg/server"
	messagingAMQP "studyspot/services/messaging/internal/controller/amqp"
	messagingHTTP "studyspot/services/messaging/internal/controller/http"
	messagingCache "studyspot/services/messaging/internal/repo/cache"
	"studyspot/services/messaging/internal/repo/persistent"
	"studyspot/services/messaging/internal/sender"
	"studyspot/services/messaging/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultPort = "8006"

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
	log := logger.New().With("service", "messaging")

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (in-app notifications disabled)", err)
		redisClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ: %v (messages are dispatched in-process)", err)
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
	messageRepo := persistent.NewMessageRepository(a.db)
	store := messagingCache.NewNotificationStore(a.redisClient)

	senders := map[string]sender.Sender{
		models.ChannelInApp:    sender.NewInAppSender(store),
		models.ChannelSMS:      sender.NewLogSender(models.ChannelSMS, a.log),
		models.ChannelWhatsApp: sender.NewLogSender(models.ChannelWhatsApp, a.log),
		models.ChannelEmail:    sender.NewLogSender(models.ChannelEmail, a.log),
	}

	var publisher events.Publisher
	var inline *messagingAMQP.InlineDispatcher
	if a.queueClient != nil {
		publisher = a.queueClient
	} else {
		inline = messagingAMQP.NewInlineDispatcher(a.log)
		publisher = inline
	}

	credits := creditclient.NewClient(a.cfg.CreditServiceURL, a.cfg.InternalAPIKey)
	messageUseCase := usecase.NewMessageUseCase(messageRepo, credits, senders, publisher, a.log)
	notificationUseCase := usecase.NewNotificationUseCase(store, messageRepo, a.log)
	if inline != nil {
		inline.Bind(messageUseCase)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if err := a.startConsumers(ctx, messageUseCase, notificationUseCase); err != nil {
		cancel()
		return err
	}

	r := server.NewEngine(a.cfg, a.log)
	a.registerRoutes(r,
		messagingHTTP.NewMessageHandler(messageUseCase, a.log),
		messagingHTTP.NewNotificationHandler(notificationUseCase, a.jwtService, a.cfg.CORSAllowedOrigins, a.log),
	)

	a.httpServer = server.New("Messaging", a.cfg.PortOr(defaultPort), r, a.log)
	a.serverErr = a.httpServer.Start()
	return nil
}

func (a *App) startConsumers(ctx context.Context, messageUseCase usecase.MessageUseCase, notificationUseCase usecase.NotificationUseCase) error {
	if a.queueClient == nil {
		return nil
	}

	if err := a.queueClient.DeclareQueue(messagingAMQP.DispatchQueue, events.MessageDispatch); err != nil {
		return err
	}
	if err := a.queueClient.DeclareQueue(messagingAMQP.EventsQueue, messagingAMQP.EventKeys...); err != nil {
		return err
	}

	dispatcher := messagingAMQP.NewDispatchConsumer(messageUseCase, a.log)
	if err := a.queueClient.Consume(ctx, messagingAMQP.DispatchQueue, dispatcher.Handle); err != nil {
		return err
	}
	notifier := messagingAMQP.NewEventsConsumer(notificationUseCase, a.log)
	return a.queueClient.Consume(ctx, messagingAMQP.EventsQueue, notifier.Handle)
}

func (a *App) registerRoutes(r *gin.Engine, mh *messagingHTTP.MessageHandler, nh *messagingHTTP.NotificationHandler) {
	// The websocket authenticates with ?token= and sits outside the bearer group.
	r.GET("/api/v1/notifications/ws", nh.HandleWebSocket)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.TenantScope())
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitPerMinute, time.Minute, a.log))

	manage := middleware.RequireRoles(roles.SuperAdmin, roles.PlatformAdmin, roles.LibraryOwner, roles.LibraryStaff)
	needTenant := middleware.RequireTenant()

	messages := api.Group("/messages")
	messages.Use(manage)
	{
		messages.POST("", needTenant, mh.SendMessage)
		messages.GET("", mh.ListMessages)
		messages.GET("/:id", mh.GetMessage)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", nh.GetNotifications)
		notifications.POST("/read", nh.MarkRead)
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
	a.log.Info("Shutting down messaging service...")
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
