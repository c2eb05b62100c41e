// Package server exposes the review and webhook HTTP surface.
package server

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/config"
	"github.com/faceless-truth/mcs-platform/internal/ingest"
	"github.com/faceless-truth/mcs-platform/internal/job"
	"github.com/faceless-truth/mcs-platform/internal/service"
)

// Server wires the HTTP routes to the ingest service and job manager.
type Server struct {
	app             *fiber.App
	ingest          *ingest.Service
	jobs            *job.Manager
	storage         service.Storage
	logger          *slog.Logger
	webhookSecret   string
	reviewThreshold float64
}

// New builds the fiber application with all routes registered.
func New(ingestSvc *ingest.Service, jobs *job.Manager, storage service.Storage, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ingest:          ingestSvc,
		jobs:            jobs,
		storage:         storage,
		logger:          logger,
		webhookSecret:   cfg.Server.WebhookSecret,
		reviewThreshold: cfg.Classification.ReviewThreshold,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "mcs-platform",
		DisableStartupMessage: true,
		BodyLimit:             64 << 20,
		ErrorHandler:          s.errorHandler,
	})

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	api.Get("/health", s.handleHealth)

	webhook := api.Group("/webhook", s.webhookAuth)
	webhook.Post("/statements", s.handleWebhookStatement)

	api.Get("/jobs", s.handleListJobs)
	api.Get("/jobs/:id", s.handleGetJob)
	api.Get("/jobs/:id/transactions", s.handleJobTransactions)
	api.Post("/jobs/:id/accept-all", s.handleAcceptAll)
	api.Post("/jobs/:id/finalize", s.handleFinalize)
	api.Post("/jobs/:id/abandon", s.handleAbandon)

	api.Post("/transactions/:id/confirm", s.handleConfirm)
	api.Post("/transactions/:id/reject", s.handleReject)
}

// App exposes the fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on the given address.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler turns unhandled errors into generic JSON bodies. Internal
// details are logged, never returned.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"status":  "error",
			"message": fiberErr.Message,
		})
	}

	s.logger.Error("unhandled request error",
		"path", c.Path(),
		"error", err)

	return c.Status(statusForError(err)).JSON(fiber.Map{
		"status":  "error",
		"message": common.UserMessage(err),
	})
}

// statusForError maps domain sentinel errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrJobNotReviewable),
		errors.Is(err, common.ErrInvalidTransition),
		errors.Is(err, common.ErrAlreadyCommitted),
		errors.Is(err, common.ErrDuplicateEntry):
		return fiber.StatusConflict
	case errors.Is(err, common.ErrUnsupportedFormat),
		errors.Is(err, common.ErrDocumentTooLarge),
		errors.Is(err, common.ErrNoTransactions),
		errors.Is(err, common.ErrInvalidConfig):
		return fiber.StatusBadRequest
	}

	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
