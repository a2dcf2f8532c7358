package httpapi

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Users    *UserHandler
	Feed     *FeedHandler
	Papers   *PaperHandler
	Graph    *GraphHandler
	Chats    *ChatHandler
	Pipeline *PipelineHandler
	Health   *HealthHandler
}

// NewRouter builds the echo instance with middleware and all routes.
func NewRouter(h Handlers, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				logger.Info("request_completed",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()))
			} else {
				logger.Error("request_failed",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()),
					slog.String("error", v.Error.Error()))
			}
			return nil
		},
	}))

	e.GET("/healthz", h.Health.Healthz)
	e.GET("/readyz", h.Health.Readyz)

	v1 := e.Group("/v1")

	v1.POST("/users", h.Users.Create)
	v1.GET("/users/:id", h.Users.Get)
	v1.PUT("/users/:id/interests", h.Users.UpdateInterests)
	v1.GET("/users/:id/feed", h.Feed.List)

	v1.PATCH("/feed/:itemID/saved", h.Feed.SetSaved)

	v1.GET("/papers/:id", h.Papers.Get)
	v1.GET("/papers/:id/related", h.Graph.Related)

	v1.POST("/chats", h.Chats.Create)
	v1.GET("/chats", h.Chats.List)
	v1.GET("/chats/:id", h.Chats.Get)
	v1.PATCH("/chats/:id", h.Chats.Update)
	v1.DELETE("/chats/:id", h.Chats.Delete)
	v1.POST("/chats/:id/messages", h.Chats.SendMessage)

	v1.POST("/ask", h.Chats.Ask)

	v1.POST("/pipeline/run", h.Pipeline.Run)
	v1.GET("/pipeline/status", h.Pipeline.Status)

	return e
}
