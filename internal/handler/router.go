package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chathandler "github.com/mzhao28/agentchat/internal/handler/chat"
	streamhandler "github.com/mzhao28/agentchat/internal/handler/stream"
	middlewarePkg "github.com/mzhao28/agentchat/internal/middleware"
	chatservice "github.com/mzhao28/agentchat/internal/service/chat"
	"github.com/mzhao28/agentchat/internal/service/ocr"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatservice.Service, ocrEngine ocr.Engine, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(chatSvc, ocrEngine, logger)
	streamHandler := streamhandler.New(chatSvc, logger)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
	})

	return r
}
