// File: pawhub/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawhub/config"
	"pawhub/cron"
	"pawhub/database"
	"pawhub/database/repository"
	threadCacheRepo "pawhub/database/repository/threadcache"
	"pawhub/handlers"
	"pawhub/routes"
	"pawhub/services/booking"
	"pawhub/services/hub"
	"pawhub/services/notification"
	"pawhub/services/tasks"
	"pawhub/services/workflow"
	"pawhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	database.InitDB()
	cache := utils.GetCacheClient()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// repositories.
	bookingRepo := repository.NewMongoBookingRepo()
	messageRepo := repository.NewMongoMessageRepo()
	conversationRepo := repository.NewMongoConversationRepo()
	reviewRepo := repository.NewMongoReviewRepo()
	bookingCache := threadCacheRepo.New(cache, config.AppConfig.ThreadCacheTTL, config.AppConfig.BookingCacheTTL, logger)

	// side channels.
	socketHub := hub.NewHub(logger.Named("hub"))
	go socketHub.Run(rootCtx)

	deps := workflow.Deps{
		Bookings:      bookingRepo,
		Messages:      messageRepo,
		Conversations: conversationRepo,
		Reviews:       reviewRepo,
		Publisher:     socketHub,
		Cache:         bookingCache,
		ImageFolder:   config.AppConfig.CloudinaryFolder,
		Pricing: booking.PricingRates{
			PlatformFeeRate: config.AppConfig.PlatformFeeRate,
			TaxRate:         config.AppConfig.TaxRate,
		},
		Logger: logger.Named("workflow"),
	}

	var notificationService notification.NotificationService
	if err := utils.FirebaseInit(rootCtx); err != nil {
		logger.Warn("main: push notifications disabled", zap.Error(err))
	} else if svc, err := notification.NewDefaultNotificationService(conversationRepo, utils.FCMClient, logger.Named("fcm")); err != nil {
		logger.Warn("main: push notifications disabled", zap.Error(err))
	} else {
		notificationService = svc
		deps.Notifier = svc
	}

	if storageService, err := utils.Cloudinary(); err != nil {
		logger.Warn("main: image attachments disabled", zap.Error(err))
	} else {
		deps.Images = storageService
	}

	queue := asynq.NewClient(cron.RedisOpt())
	defer queue.Close()
	deps.Scheduler = tasks.NewScheduler(queue)

	var worker *asynq.Server
	if notificationService != nil {
		worker = cron.InitCompletionWorker(bookingRepo, notificationService, logger.Named("worker"))
	}

	utils.StartHealthMonitor(rootCtx, []*redis.Client{cache}, database.MongoClient, time.Minute)

	// services and handlers.
	workflowService := workflow.NewDefaultWorkflowService(deps)
	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewBookingHandler(workflowService),
		handlers.NewMessageHandler(workflowService),
		handlers.NewSocketHandler(socketHub),
	)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	routes.RegisterRoutes(router, handlerBundle, config.AppConfig.MaxRequestsPerMin)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stop()
	if worker != nil {
		worker.Shutdown()
	}
	if err := database.MongoClient.Disconnect(ctx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
