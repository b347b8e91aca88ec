package portal

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/bobbridge/portal/common/dto"
	"github.com/bobbridge/portal/pkg/config"
	"github.com/bobbridge/portal/pkg/email"
	"github.com/bobbridge/portal/pkg/llm"
	"github.com/bobbridge/portal/pkg/middleware"
)

// Server is the portal HTTP server
type Server struct {
	app    *fiber.App
	config *config.Config
	db     *pgxpool.Pool
	redis  *redis.Client
}

// NewServer creates the portal server with all handlers wired
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := initDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	server := &Server{
		config: cfg,
		db:     db,
		redis:  redisClient,
	}

	server.app = server.createApp()
	server.registerRoutes()

	return server, nil
}

func (s *Server) createApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "bobbridge-portal",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.Recovery())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New())
	app.Use(helmet.New())

	// CORS
	if s.config.IsDevelopment() {
		app.Use(middleware.DevelopmentCORS())
	} else {
		app.Use(middleware.ProductionCORS(s.config.Server.AllowedOrigins))
	}

	return app
}

func (s *Server) registerRoutes() {
	// Health check
	s.app.Get("/health", s.healthCheck)

	// Outbound email is optional; the notifier degrades to in-app only
	var emailClient *email.Client
	if s.config.Email.ResendAPIKey != "" {
		emailClient = email.NewClient(s.config.Email.ResendAPIKey, s.config.Email.From, s.config.Email.PortalURL)
	}
	notifier := NewNotifier(s.db, emailClient)

	// LLM providers are optional too; chat returns 503 without one
	llmClient, err := llm.NewMultiClient(llm.Config{
		DefaultProvider: llm.Provider(s.config.LLM.DefaultProvider),
		AnthropicAPIKey: s.config.LLM.AnthropicAPIKey,
		OpenAIAPIKey:    s.config.LLM.OpenAIAPIKey,
	})
	if err != nil {
		log.Warn().Err(err).Msg("llm providers not configured, chat disabled")
		llmClient = nil
	}

	authHandler := NewAuthHandler(s.db, s.config)
	clientHandler := NewClientHandler(s.db)
	projectHandler := NewProjectHandler(s.db)
	stageHandler := NewStageHandler(NewStageStore(s.db), notifier)
	checklistHandler := NewChecklistHandler(s.db, notifier)
	ticketHandler := NewTicketHandler(s.db, notifier)
	messageHandler := NewMessageHandler(s.db, notifier)
	notificationHandler := NewNotificationHandler(s.db)
	aiHandler := NewAIHandler(s.db, s.redis, llmClient, s.config.LLM.ChatPerMinute)

	// API v1
	v1 := s.app.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	// Everything below requires a valid access token
	v1.Use(middleware.Auth(middleware.AuthConfig{
		JWTSecret: s.config.Auth.JWTSecret,
	}))

	auth.Get("/me", authHandler.Me)

	// Tenant management, admin-only
	clients := v1.Group("/clients", middleware.RequireAdmin())
	clients.Post("", clientHandler.Create)
	clients.Get("", clientHandler.List)
	clients.Get("/:id", clientHandler.GetByID)
	clients.Put("/:id", clientHandler.Update)
	clients.Delete("/:id", clientHandler.Delete)
	clients.Get("/:id/users", clientHandler.ListUsers)
	clients.Post("/:id/users", clientHandler.CreateUser)

	// Projects
	projects := v1.Group("/projects")
	projects.Post("", middleware.RequireAdmin(), projectHandler.Create)
	projects.Get("", projectHandler.List)
	projects.Get("/:id", projectHandler.GetByID)
	projects.Put("/:id", middleware.RequireAdmin(), projectHandler.Update)
	projects.Delete("/:id", middleware.RequireAdmin(), projectHandler.Delete)

	// Lifecycle: transitions are admin-only, the stepper is visible to
	// everyone on the project
	projects.Post("/:id/stage", middleware.RequireAdmin(), stageHandler.ChangeStage)
	projects.Get("/:id/stages", stageHandler.ListStages)

	// Checklists
	projects.Get("/:id/checklist", checklistHandler.List)
	projects.Post("/:id/checklist", middleware.RequireAdmin(), checklistHandler.Add)
	projects.Put("/:id/checklist/:item_id/complete", checklistHandler.Complete)
	projects.Put("/:id/checklist/:item_id/uncomplete", checklistHandler.Uncomplete)

	// Tickets
	projects.Post("/:id/tickets", ticketHandler.Create)
	projects.Get("/:id/tickets", ticketHandler.List)
	projects.Get("/:id/tickets/:ticket_id", ticketHandler.GetByID)
	projects.Put("/:id/tickets/:ticket_id", ticketHandler.Update)
	projects.Post("/:id/tickets/:ticket_id/comments", ticketHandler.AddComment)

	// Message board
	projects.Get("/:id/messages", messageHandler.List)
	projects.Post("/:id/messages", messageHandler.Post)

	// Project chat assistant
	projects.Post("/:id/ai/chat", aiHandler.Chat)

	// Notification feed
	notifications := v1.Group("/notifications")
	notifications.Get("", notificationHandler.List)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)
	notifications.Put("/:id/read", notificationHandler.MarkRead)
}

func (s *Server) healthCheck(c *fiber.Ctx) error {
	services := make(map[string]string)

	if err := s.db.Ping(c.Context()); err != nil {
		services["database"] = "error"
	} else {
		services["database"] = "ok"
	}

	if err := s.redis.Ping(c.Context()).Err(); err != nil {
		services["redis"] = "error"
	} else {
		services["redis"] = "ok"
	}

	status := "healthy"
	for _, v := range services {
		if v == "error" {
			status = "unhealthy"
			break
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:   status,
		Version:  "1.0.0",
		Services: services,
	})
}

// Listen starts the HTTP server
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// ShutdownWithContext gracefully shuts down the server
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	if s.db != nil {
		s.db.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	return s.app.ShutdownWithContext(ctx)
}

func initDatabase(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 25
	}
	minConns := cfg.MaxIdleConns
	if minConns <= 0 {
		minConns = 5
	}
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = int32(minConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	return pool, nil
}

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.Address())
	if err != nil {
		opt = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(dto.Error(
		errorCodeFromStatus(code),
		err.Error(),
	))
}

func errorCodeFromStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMIT"
	default:
		return "INTERNAL_ERROR"
	}
}
