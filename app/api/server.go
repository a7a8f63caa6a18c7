package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"prdchat/app/config"
	"prdchat/app/service/chat"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
)

const shutdownTimeout = 10 * time.Second

var _ do.Shutdownable = (*Server)(nil)

type Server struct {
	cfg *config.Config
	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)
	chatSvc := do.MustInvoke[*chat.Service](di)

	return &Server{
		cfg: cfg,
		app: NewApp(cfg, chatSvc),
	}, nil
}

// NewApp builds the fiber app with the REST routes under the configured prefix and,
// when enabled, the MCP endpoint.
func NewApp(cfg *config.Config, chatSvc *chat.Service) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "prdchat",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestLogger())
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,Mcp-Session-Id",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	h := &handler{chats: chatSvc}

	chats := app.Group(cfg.HTTP.Prefix).Group("/chats")
	chats.Post("/", h.createChat)
	chats.Get("/", h.listChats)
	chats.Get("/:id", h.getChat)
	chats.Put("/:id/rename", h.renameChat)
	chats.Post("/:id/messages", h.postMessage)
	chats.Get("/:id/prd", h.getDocument)
	chats.Get("/:id/prd/html", h.getDocumentHTML)
	chats.Delete("/:id", h.deleteChat)

	if cfg.MCP.Enabled {
		app.All("/mcp", newMCPHandler(chatSvc))
	}

	return app
}

// Run serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("HTTP server listening",
			"listen", s.cfg.HTTP.Listen,
			"prefix", s.cfg.HTTP.Prefix,
			"mcp", s.cfg.MCP.Enabled,
		)
		errCh <- s.app.Listen(s.cfg.HTTP.Listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := s.Shutdown(); err != nil {
		return err
	}

	return <-errCh
}

func (s *Server) Shutdown() error {
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
