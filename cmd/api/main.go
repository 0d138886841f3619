package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/blocklist"
	"github.com/noah-isme/webchat-api/internal/cache"
	"github.com/noah-isme/webchat-api/internal/config"
	"github.com/noah-isme/webchat-api/internal/database"
	"github.com/noah-isme/webchat-api/internal/events"
	"github.com/noah-isme/webchat-api/internal/handler"
	"github.com/noah-isme/webchat-api/internal/middleware"
	"github.com/noah-isme/webchat-api/internal/observability"
	"github.com/noah-isme/webchat-api/internal/repository"
	"github.com/noah-isme/webchat-api/internal/router"
	"github.com/noah-isme/webchat-api/internal/service"
	cloud "github.com/noah-isme/webchat-api/pkg/cloudinary"
	"github.com/noah-isme/webchat-api/pkg/password"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}

	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.AppEnv == "development")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.CacheDriver == config.CacheDriverRedis {
		redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient, cfg.CachePrefix)
	}

	feed := service.NewRoomFeed(logger)
	listener := events.NewListener(feed, logger)

	var publisher events.Publisher = events.NewLoopbackPublisher(listener)
	if cfg.NATSURL != "" {
		natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer drainNATS(natsConn, logger)

		publisher = events.NewNATSPublisher(natsConn, cfg.EventsSubjectPrefix)
		if err := listener.Start(ctx, natsConn, cfg.EventsSubjectPrefix, cfg.EventsQueueGroup); err != nil {
			logger.Fatal().Err(err).Msg("failed to start message listener")
		}
	} else {
		logger.Info().Msg("nats not configured, delivering message events in process")
	}
	emitter := events.NewMessageEmitter(publisher, logger)

	var avatars service.AvatarStorage
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		avatars = uploader
	}

	validate := service.NewValidator()
	blocks := blocklist.New()
	hasher := password.NewBcrypt(cfg.BcryptCost)

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewChatRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	userService := service.NewUserService(userRepo, hasher, validate, service.UserServiceOptions{
		Avatars:         avatars,
		Blocks:          blocks,
		Cache:           store,
		AvatarMaxSizeMB: cfg.AvatarMaxSizeMB,
	}, logger)
	authService := service.NewAuthService(userRepo, userService, hasher, cfg.JWTSecret, cfg.JWTTTL, logger)
	roomService := service.NewChatRoomService(roomRepo, userRepo, blocks, feed, store, validate, logger)
	messageService := service.NewMessageService(messageRepo, roomRepo, userRepo, blocks, emitter, store, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, store, validate, logger)

	if cfg.SeedAdminEnabled() {
		if err := userService.EnsureAdmin(ctx, cfg.SeedAdminUsername, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed admin account")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		ChatRoomHandler:     handler.NewChatRoomHandler(roomService, logger),
		MessageHandler:      handler.NewMessageHandler(messageService, middleware.RateLimit("message-send", cfg.MessageRateLimit, cfg.MessageRateWindow), logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		RoomFeedHandler:     handler.NewRoomFeedHandler(feed, roomService, logger),
		AuthMiddleware:      middleware.Authenticate(cfg.JWTSecret, handler.PrincipalLookup(userService)),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

func drainNATS(conn *nats.Conn, logger zerolog.Logger) {
	if err := conn.Drain(); err != nil {
		logger.Warn().Err(err).Msg("failed to drain nats connection")
	}
}
