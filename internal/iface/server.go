package iface

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/atopx/chessboard/internal/config"
	"github.com/atopx/chessboard/internal/storage"
	"github.com/atopx/chessboard/internal/tracker"
)

// Listener is the board tracking worker as seen by the API
type Listener interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// JournalReader exposes recorded sessions
type JournalReader interface {
	Sessions() ([]storage.SessionInfo, error)
	Entries(id string) ([]storage.Entry, error)
}

// Server is the local control API plus the UI websocket
type Server struct {
	app      *fiber.App
	listener Listener
	store    *config.Store
	journal  JournalReader
	hub      *Hub
	logger   *zap.Logger

	// base outlives individual requests; the worker is started with it
	base context.Context
}

// NewServer wires the routes. base is the context the tracking worker runs
// under once started.
func NewServer(base context.Context, listener Listener, store *config.Store, journal JournalReader, hub *Hub, logger *zap.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			AppName:               "xqlink",
		}),
		listener: listener,
		store:    store,
		journal:  journal,
		hub:      hub,
		logger:   logger,
		base:     base,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.hub.Handle))

	api := s.app.Group("/api")

	api.Get("/listen", s.listenStatus)
	api.Post("/listen/start", s.startListening)
	api.Post("/listen/stop", s.stopListening)

	api.Get("/config/engine", s.engineConfig)
	api.Put("/config/engine", s.updateEngineConfig)

	api.Get("/journal", s.sessions)
	api.Get("/journal/:session", s.entries)
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.logger.Info("Control API listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for handlers
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) listenStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"running": s.listener.Running()})
}

func (s *Server) startListening(c *fiber.Ctx) error {
	if err := s.listener.Start(s.base); err != nil {
		if errors.Is(err, tracker.ErrAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		s.logger.Error("Failed to start listening", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"running": true})
}

func (s *Server) stopListening(c *fiber.Ctx) error {
	s.listener.Stop()
	return c.JSON(fiber.Map{"running": false})
}

func (s *Server) engineConfig(c *fiber.Ctx) error {
	return c.JSON(s.store.Get().Engine)
}

func (s *Server) updateEngineConfig(c *fiber.Ctx) error {
	next := s.store.Get().Engine
	if err := c.BodyParser(&next); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cfg, err := s.store.Update(func(cfg *config.Config) {
		cfg.Engine = next
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("Engine settings updated",
		zap.String("path", cfg.Engine.Path),
		zap.Int("depth", cfg.Engine.Depth),
		zap.Bool("cloud", cfg.Engine.CloudEnabled))
	return c.JSON(cfg.Engine)
}

func (s *Server) sessions(c *fiber.Ctx) error {
	list, err := s.journal.Sessions()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(list)
}

func (s *Server) entries(c *fiber.Ctx) error {
	list, err := s.journal.Entries(c.Params("session"))
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(list)
}
