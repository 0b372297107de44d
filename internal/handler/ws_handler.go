package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wavechat/messaging-gateway/internal/audit"
	"github.com/wavechat/messaging-gateway/internal/config"
	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/internal/hub"
	"github.com/wavechat/messaging-gateway/internal/metrics"
	"github.com/wavechat/messaging-gateway/internal/service"
	"github.com/wavechat/messaging-gateway/internal/token"
	"github.com/wavechat/messaging-gateway/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the messaging socket. Token verification happens before
// the upgrade: a connection without a verifiable credential is rejected and
// no event handler ever runs for it.
type WSHandler struct {
	hub       *hub.Hub
	service   service.SessionService
	verifier  *token.Verifier
	collector *metrics.Collector
	wsCfg     config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.SessionService, verifier *token.Verifier, col *metrics.Collector, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:       h,
		service:   svc,
		verifier:  verifier,
		collector: col,
		wsCfg:     wsCfg,
	}
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := h.verifier.Verify(token.FromRequest(r))
	if err != nil {
		audit.Log(r.Context(), audit.ActionAuthFailed, "", "connection rejected")
		if errors.Is(err, domain.ErrAuthenticationRequired) {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
		} else {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	if err := client.Session.Authenticate(claims.UserID, claims.Email, claims.UserType); err != nil {
		conn.Close()
		return
	}

	h.hub.Register(client)

	if err := h.service.HandleConnect(context.Background(), client); err != nil {
		l := log.L()
		l.Error().Str("connection_id", client.ID).Err(err).Msg("connect handling failed")
		h.hub.Unregister(client)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.handleEvent, h.handleDisconnect)
}

// handleEvent dispatches one inbound frame. Each event is isolated: a
// failure (or panic) in one event surfaces an error to its own connection
// and never affects other events or connections.
func (h *WSHandler) handleEvent(client *hub.Client, message []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			l := log.L()
			l.Error().Str("connection_id", client.ID).Interface("panic", rec).Msg("event handler panic")
			client.SendError(domain.ErrCodeInternal, "Internal error")
		}
	}()

	var env domain.InboundEnvelope
	if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
		client.SendError(domain.ErrCodeBadRequest, "Invalid message format")
		return
	}

	if h.collector != nil {
		h.collector.EventProcessed(env.Event)
	}

	ctx := context.Background()
	var err error

	switch env.Event {
	case domain.EvtChannelJoin:
		channelID, ok := decodeScalar(env.Data, "channelId")
		if !ok {
			client.SendError(domain.ErrCodeBadRequest, "Invalid channel:join payload")
			return
		}
		err = h.service.HandleChannelJoin(ctx, client, channelID)

	case domain.EvtChannelLeave:
		channelID, ok := decodeScalar(env.Data, "channelId")
		if !ok {
			client.SendError(domain.ErrCodeBadRequest, "Invalid channel:leave payload")
			return
		}
		err = h.service.HandleChannelLeave(ctx, client, channelID)

	case domain.EvtMessageSend:
		var p domain.MessageSendPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendError(domain.ErrCodeBadRequest, "Invalid message:send payload")
			return
		}
		err = h.service.HandleMessageSend(ctx, client, p)

	case domain.EvtMessageEdit:
		var p domain.MessageEditPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendError(domain.ErrCodeBadRequest, "Invalid message:edit payload")
			return
		}
		err = h.service.HandleMessageEdit(ctx, client, p)

	case domain.EvtMessageDelete:
		messageID, ok := decodeScalar(env.Data, "messageId")
		if !ok {
			client.SendError(domain.ErrCodeBadRequest, "Invalid message:delete payload")
			return
		}
		err = h.service.HandleMessageDelete(ctx, client, messageID)

	case domain.EvtMessageReact:
		var p domain.MessageReactPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendError(domain.ErrCodeBadRequest, "Invalid message:react payload")
			return
		}
		err = h.service.HandleMessageReact(ctx, client, p)

	case domain.EvtTypingStart:
		channelID, ok := decodeScalar(env.Data, "channelId")
		if !ok {
			client.SendError(domain.ErrCodeBadRequest, "Invalid typing:start payload")
			return
		}
		err = h.service.HandleTypingStart(ctx, client, channelID)

	case domain.EvtTypingStop:
		channelID, ok := decodeScalar(env.Data, "channelId")
		if !ok {
			client.SendError(domain.ErrCodeBadRequest, "Invalid typing:stop payload")
			return
		}
		err = h.service.HandleTypingStop(ctx, client, channelID)

	case domain.EvtDMSend:
		var p domain.DMSendPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			client.SendError(domain.ErrCodeBadRequest, "Invalid dm:send payload")
			return
		}
		err = h.service.HandleDMSend(ctx, client, p)

	case domain.EvtMessageRead:
		messageID, ok := decodeScalar(env.Data, "messageId")
		if !ok {
			client.SendError(domain.ErrCodeBadRequest, "Invalid message:read payload")
			return
		}
		err = h.service.HandleMessageRead(ctx, client, messageID)

	case domain.EvtUsersGetOnline:
		err = h.service.HandleUsersGetOnline(ctx, client)

	default:
		client.SendError(domain.ErrCodeBadRequest, "Unknown event type")
		return
	}

	if err != nil {
		l := log.L()
		l.Debug().Str("connection_id", client.ID).Str("event", env.Event).Err(err).Msg("event failed")
	}
}

func (h *WSHandler) handleDisconnect(client *hub.Client) {
	if err := h.service.HandleDisconnect(context.Background(), client); err != nil {
		l := log.L()
		l.Warn().Str("connection_id", client.ID).Err(err).Msg("disconnect handling failed")
	}
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWebSocket)
}

// decodeScalar accepts either a bare JSON string or an object with the
// given key, matching what clients send for single-argument events.
func decodeScalar(data json.RawMessage, key string) (string, bool) {
	if len(data) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, s != ""
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err == nil {
		if v, ok := obj[key]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}
