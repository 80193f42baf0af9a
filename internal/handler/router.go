package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/handler/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/handler/persona"
	"github.com/zhouzirui/sky-inn/backend/internal/handler/stream"
	"github.com/zhouzirui/sky-inn/backend/internal/handler/ws"
	"github.com/zhouzirui/sky-inn/backend/internal/middleware"
	personamodel "github.com/zhouzirui/sky-inn/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
	"github.com/zhouzirui/sky-inn/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personamodel.Store, store chatservice.Store, conv *conversation.Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(personas).RegisterRoutes(api)
		chat.New(store, conv, logger).RegisterRoutes(api)
		stream.New(conv, logger).RegisterRoutes(api)
		ws.New(store, conv, logger).RegisterRoutes(api)
	})

	return r
}
