package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/wavechat/messaging-gateway/internal/config"
	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/internal/hub"
	"github.com/wavechat/messaging-gateway/internal/metrics"
	"github.com/wavechat/messaging-gateway/pkg/log"
)

// MetricsHandler serves the observability socket. Connections join the
// metrics scope only and receive periodic snapshots from the broadcaster,
// starting with an immediate snapshot on connect.
type MetricsHandler struct {
	hub         *hub.Hub
	broadcaster *metrics.Broadcaster
	wsCfg       config.WebSocketConfig
}

func NewMetricsHandler(h *hub.Hub, b *metrics.Broadcaster, wsCfg config.WebSocketConfig) *MetricsHandler {
	return &MetricsHandler{
		hub:         h,
		broadcaster: b,
		wsCfg:       wsCfg,
	}
}

func (h *MetricsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("metrics websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)
	h.hub.Join(client, hub.ScopeMetrics)

	h.broadcaster.SendSnapshot(r.Context(), client)

	go client.WritePump()
	go client.ReadPump(h.handleEvent, nil)
}

func (h *MetricsHandler) handleEvent(client *hub.Client, message []byte) {
	var env domain.InboundEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		client.SendError(domain.ErrCodeBadRequest, "Invalid message format")
		return
	}

	switch env.Event {
	case domain.EvtRequestMetrics:
		h.broadcaster.SendSnapshot(context.Background(), client)
	default:
		client.SendError(domain.ErrCodeBadRequest, "Unknown event type")
	}
}

func (h *MetricsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/metrics", h.HandleWebSocket)
}
