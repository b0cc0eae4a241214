package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/internal/gateway"
	"github.com/feldrin/vtt-backend/internal/maps"
	"github.com/feldrin/vtt-backend/internal/ws"
)

func SetupRoutes(svc *maps.Service, hub *gateway.Hub, wsOrigins []string, log *zap.Logger) http.Handler {
	h := NewHandlers(svc, log)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(hub, wsOrigins, log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/campaigns/{campaignId}/maps", h.ListCampaignMaps)
		r.Put("/campaigns/{campaignId}/maps/reorder", h.ReorderMaps)

		r.Post("/maps", h.CreateMap)
		r.Get("/maps/{mapId}", h.GetMap)
		r.Post("/maps/{mapId}/duplicate", h.DuplicateMap)
		r.Put("/maps/{mapId}", h.UpdateMap)
		r.Delete("/maps/{mapId}", h.DeleteMap)
	})
	return r
}
