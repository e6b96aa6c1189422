// Package server contains the HTTP handlers for the console, app, and bot
// APIs.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "commung/docs" // swagger docs
	"commung/internal/cache"
	"commung/internal/config"
	"commung/internal/database"
	"commung/internal/events"
	"commung/internal/mail"
	"commung/internal/middleware"
	"commung/internal/models"
	"commung/internal/notifications"
	"commung/internal/repository"
	"commung/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo      repository.UserRepository
	communityRepo repository.CommunityRepository
	profileRepo   repository.ProfileRepository
	appRepo       repository.ApplicationRepository
	boardRepo     repository.BoardRepository
	postRepo      repository.PostRepository
	chatRepo      repository.ChatRepository
	notifRepo     repository.NotificationRepository
	botRepo       repository.BotRepository

	notifier  *notifications.Notifier
	publisher *events.Publisher
	mailer    *mail.Mailer

	communityService    *service.CommunityService
	applicationService  *service.ApplicationService
	membershipService   *service.MembershipService
	postService         *service.PostService
	chatService         *service.ChatService
	notificationService *service.NotificationService
	botService          *service.BotService
	mediaService        *service.MediaService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	publisher := events.NewPublisher(events.Config{
		Brokers: cfg.KafkaBrokerList(),
		Topic:   cfg.KafkaTopic,
	})
	mailer := mail.NewMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	return newServer(cfg, db, redisClient, publisher, mailer), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Used by tests and bootstrap layers that establish DB/Redis themselves.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	return newServer(cfg, db, redisClient, nil, nil), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, publisher *events.Publisher, mailer *mail.Mailer) *Server {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		userRepo:       repository.NewUserRepository(db),
		communityRepo:  repository.NewCommunityRepository(db),
		profileRepo:    repository.NewProfileRepository(db),
		appRepo:        repository.NewApplicationRepository(db),
		boardRepo:      repository.NewBoardRepository(db),
		postRepo:       repository.NewPostRepository(db),
		chatRepo:       repository.NewChatRepository(db),
		notifRepo:      repository.NewNotificationRepository(db),
		botRepo:        repository.NewBotRepository(db),
		publisher:      publisher,
		mailer:         mailer,
	}
	// The prometheus middleware registers collectors globally; constructing
	// it per test server would panic on duplicate registration.
	if cfg.Env != "test" {
		server.promMiddleware = middleware.InitMetrics("commung-api")
	}

	server.notifier = notifications.NewNotifier(redisClient)

	server.notificationService = service.NewNotificationService(
		server.notifRepo, server.profileRepo, server.notifier)
	server.communityService = service.NewCommunityService(
		server.communityRepo, server.boardRepo, server.profileRepo, server.chatRepo, publisher)
	server.applicationService = service.NewApplicationService(
		server.appRepo, server.communityRepo, server.profileRepo, server.userRepo,
		server.chatRepo, server.notificationService, mailer, publisher)
	server.membershipService = service.NewMembershipService(server.profileRepo, publisher)
	server.postService = service.NewPostService(
		server.postRepo, server.boardRepo, server.profileRepo,
		server.communityRepo, server.notificationService, publisher)
	server.chatService = service.NewChatService(
		server.chatRepo, server.profileRepo, server.communityRepo,
		server.notificationService, server.notifier, publisher)
	server.botService = service.NewBotService(server.botRepo, server.profileRepo, publisher)
	server.mediaService = service.NewMediaService(cfg.MediaDir)

	return server
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	// After requestid and context middleware so records carry request_id.
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Commung Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Served media
	app.Get("/media/:name", s.ServeMedia)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", middleware.AuthRequired, s.GetMe)
	auth.Post("/refresh", middleware.AuthRequired, s.RefreshToken)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	// Console API: community management for owners and moderators.
	console := api.Group("/console", middleware.AuthRequired)
	console.Post("/communities", s.CreateCommunity)
	console.Get("/communities", s.GetOwnedCommunities)

	consoleCommunity := console.Group("/communities/:id")
	consoleCommunity.Get("/", s.GetConsoleCommunity)
	consoleCommunity.Put("/", s.UpdateCommunity)
	consoleCommunity.Delete("/", s.DeleteCommunity)

	consoleCommunity.Post("/boards", s.CreateBoard)
	consoleCommunity.Get("/boards", s.GetConsoleBoards)
	consoleCommunity.Put("/boards/order", s.ReorderBoards)
	consoleCommunity.Put("/boards/:boardId", s.UpdateBoard)
	consoleCommunity.Delete("/boards/:boardId", s.DeleteBoard)

	consoleCommunity.Get("/applications", s.GetApplications)
	consoleCommunity.Post("/applications/:applicationId/approve", s.ApproveApplication)
	consoleCommunity.Post("/applications/:applicationId/reject", s.RejectApplication)

	consoleCommunity.Get("/members", s.GetConsoleMembers)
	consoleCommunity.Put("/members/:profileId/role", s.UpdateMemberRole)
	consoleCommunity.Delete("/members/:profileId", s.RemoveMember)
	consoleCommunity.Post("/members/:profileId/mute", s.MuteMember)
	consoleCommunity.Delete("/members/:profileId/mute", s.UnmuteMember)

	consoleCommunity.Post("/bots", s.CreateBot)
	consoleCommunity.Get("/bots", s.GetBots)
	consoleCommunity.Delete("/bots/:botId", s.DeleteBot)
	consoleCommunity.Post("/bots/:botId/tokens", s.IssueBotToken)
	consoleCommunity.Get("/bots/:botId/tokens", s.GetBotTokens)
	consoleCommunity.Delete("/bots/:botId/tokens/:tokenId", s.RevokeBotToken)

	// App API: member-facing surface.
	appAPI := api.Group("/app", middleware.AuthRequired)
	appAPI.Get("/communities", s.DiscoverCommunities)
	appAPI.Get("/communities/by-slug/:slug", s.GetCommunityBySlug)
	appAPI.Get("/profiles", s.GetMyProfiles)
	appAPI.Put("/profiles/:profileId", s.UpdateMyProfile)
	appAPI.Get("/applications", s.GetMyApplications)
	appAPI.Put("/applications/:applicationId", s.UpdateMyApplication)
	appAPI.Delete("/applications/:applicationId", s.CancelMyApplication)

	appCommunity := appAPI.Group("/communities/:id")
	appCommunity.Post("/applications", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "apply"), s.Apply)

	// Routes below act as a specific profile, resolved from the profile_id
	// query parameter and verified to belong to the caller.
	acting := appCommunity.Group("", s.ActingProfileRequired)
	acting.Get("/home", s.GetCommunityHome)
	acting.Get("/timeline", s.GetTimeline)
	acting.Get("/boards", s.GetBoards)
	acting.Get("/boards/:boardId/posts", s.GetBoardPosts)
	acting.Post("/boards/:boardId/posts", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	acting.Get("/posts/:postId", s.GetPost)
	acting.Put("/posts/:postId", s.UpdatePost)
	acting.Delete("/posts/:postId", s.DeletePost)
	acting.Post("/posts/:postId/pin", s.PinPost)
	acting.Delete("/posts/:postId/pin", s.UnpinPost)
	acting.Get("/posts/:postId/replies", s.GetReplies)
	acting.Post("/posts/:postId/replies", middleware.RateLimit(
		s.redis, 20, time.Minute, "create_reply"), s.CreateReply)
	acting.Delete("/replies/:replyId", s.DeleteReply)

	acting.Get("/conversations", s.GetConversations)
	acting.Post("/conversations/direct", s.CreateDirectConversation)
	acting.Post("/conversations/group", s.CreateGroupConversation)
	acting.Post("/conversations/default/join", s.JoinDefaultConversation)
	acting.Post("/conversations/:conversationId/participants", s.AddConversationParticipant)
	acting.Delete("/conversations/:conversationId/leave", s.LeaveConversation)
	acting.Get("/conversations/:conversationId/messages", s.GetMessages)
	acting.Post("/conversations/:conversationId/messages", middleware.RateLimit(
		s.redis, 30, time.Minute, "send_chat"), s.SendMessage)
	acting.Post("/conversations/:conversationId/read", s.MarkConversationRead)
	acting.Post("/conversations/:conversationId/messages/:messageId/reactions", s.AddReaction)
	acting.Delete("/conversations/:conversationId/messages/:messageId/reactions/:emoji", s.RemoveReaction)

	acting.Get("/notifications", s.GetNotifications)
	acting.Get("/notifications/unread-count", s.GetUnreadNotificationCount)
	acting.Post("/notifications/read-all", s.MarkAllNotificationsRead)
	acting.Post("/notifications/:notificationId/read", s.MarkNotificationRead)

	// Media upload
	api.Post("/media", middleware.AuthRequired, s.UploadMedia)

	// Bot API: token-authenticated service accounts.
	bot := api.Group("/bot", s.BotTokenRequired)
	bot.Get("/me", s.GetBotIdentity)
	bot.Post("/boards/:boardId/posts", s.CreateBotPost)
	bot.Post("/conversations/:conversationId/messages", s.SendBotMessage)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	// Notification writes on other instances invalidate locally cached
	// unread counts.
	if err := s.notifier.StartPatternSubscriber(ctx, func(channel, _ string) {
		if profileID, ok := notifications.ParseProfileChannel(channel); ok {
			cache.Invalidate(context.Background(), cache.UnreadCountKey(profileID))
		}
	}); err != nil {
		log.Printf("notification subscriber failed to start: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:   "Commung API",
		BodyLimit: 12 * 1024 * 1024, // uploads are capped at 10MB plus multipart overhead
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.publisher.Close(); err != nil {
		log.Printf("error closing event publisher: %v", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
