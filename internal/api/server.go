// Package api serves the enzyflow client over HTTP.
package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"enzyflow/internal/design"
	"enzyflow/internal/kinetics"
	"enzyflow/internal/screening"
	"enzyflow/internal/sequence"
	"enzyflow/internal/surrogate"
	"enzyflow/pkg/enzyflow"
)

type Server struct {
	client *enzyflow.Client
	logger *zap.Logger
	app    *fiber.App
}

// New builds the fiber app with every route registered.
func New(client *enzyflow.Client) *Server {
	s := &Server{client: client, logger: client.Logger()}
	app := fiber.New(fiber.Config{
		AppName:               "enzyflow",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(s.logRequests)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().Unix()})
	})
	if m := client.Metrics(); m != nil {
		app.Get("/metrics", m.Handler())
	}

	v1 := app.Group("/api/v1")
	v1.Post("/simulate/single", s.simulateSingle)
	v1.Post("/simulate/cascade", s.simulateCascade)
	v1.Post("/oracle", s.oracle)
	v1.Post("/mutations", s.proposeMutation)
	v1.Post("/mutations/apply", s.applyMutation)
	v1.Post("/design/runs", s.runDesign)
	v1.Get("/design/runs", s.listRuns)
	v1.Get("/design/runs/:id", s.getRun)
	v1.Post("/optimize", s.optimize)
	v1.Post("/benchmark", s.benchmark)
	v1.Get("/screening/plate", s.screenPlate)

	s.app = app
	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return err
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, kinetics.ErrIntegration):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, surrogate.ErrSchemaMismatch),
		errors.Is(err, sequence.ErrMissingLineage),
		errors.Is(err, sequence.ErrInvalidMutation),
		errors.Is(err, sequence.ErrEmptySequence),
		errors.Is(err, enzyflow.ErrInvalidRequest),
		errors.Is(err, design.ErrNegativeRounds),
		errors.Is(err, kinetics.ErrTargetFraction):
		return fiber.StatusBadRequest
	case errors.Is(err, enzyflow.ErrRunNotFound), errors.Is(err, screening.ErrNoEnzymes):
		return fiber.StatusNotFound
	case errors.Is(err, design.ErrNoSurrogate):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
