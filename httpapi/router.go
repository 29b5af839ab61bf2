// Package httpapi exposes the chat core over JSON and websocket endpoints.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"support-chat/admin"
	"support-chat/services"
)

// NewRouter wires HTTP routes to the chat core.
func NewRouter(log *slog.Logger, chatSvc services.IChatService, aggregator *admin.Aggregator, streamBufferSize int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	validate := validator.New()
	chatHandler := NewChatHandler(log, chatSvc, validate, streamBufferSize)
	adminHandler := NewAdminHandler(log, aggregator, streamBufferSize)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		adminHandler.RegisterRoutes(api)
	})

	return r
}
