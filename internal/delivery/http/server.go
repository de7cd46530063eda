package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/delivery/http/handler"
	"github.com/outsource-importer/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

// HealthChecker - зависимость, доступность которой показывает /health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	importHandler   *handler.ImportHandler
	taxonomyHandler *handler.TaxonomyHandler
	health          map[string]HealthChecker
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	importHandler *handler.ImportHandler,
	taxonomyHandler *handler.TaxonomyHandler,
	health map[string]HealthChecker,
) *Server {
	app := fiber.New(fiber.Config{
		AppName: "Outsource Importer",
		// синхронный импорт включает загрузку медиа
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Import.FetchTimeout + cfg.Import.MediaTimeout,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:             app,
		config:          cfg,
		logger:          logger,
		importHandler:   importHandler,
		taxonomyHandler: taxonomyHandler,
		health:          health,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.AllowOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api/v1")

	api.Get("/health", s.healthCheck)

	api.Post("/imports", s.importHandler.Import)
	api.Post("/imports/batch", s.importHandler.ImportBatch)
	api.Post("/imports/queue", s.importHandler.Enqueue)

	api.Post("/taxonomy-mappings", s.taxonomyHandler.BuildMapping)
}

func (s *Server) healthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	checks := fiber.Map{}
	for name, checker := range s.health {
		if err := checker.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != fiber.StatusOK {
		state = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"checks": checks,
		"time":   time.Now(),
	})
}

// App отдаёт fiber.App для тестов (app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": err.Error(),
			},
		})
	}
}
