package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/wavechat/messaging-gateway/internal/config"
	"github.com/wavechat/messaging-gateway/pkg/log"
)

// Scope name helpers. A scope is a dynamic fan-out group of connections:
// channel rooms, per-user personal scopes, and the observability scope.
const (
	channelScopePrefix = "channel:"
	userScopePrefix    = "user:"

	// ScopeMetrics groups connections subscribed to metric snapshots.
	ScopeMetrics = "metrics"
)

func ChannelScope(channelID string) string { return channelScopePrefix + channelID }
func UserScope(userID string) string       { return userScopePrefix + userID }

// Hub routes messages to connections grouped by scope. Scopes are pure
// runtime state, rebuilt from join/leave calls after every restart.
type Hub struct {
	clients    map[string]*Client            // connectionID -> client
	scopes     map[string]map[string]*Client // scope -> connectionID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *scopedMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type scopedMessage struct {
	scope   string // empty means all connections
	message []byte
	exclude string // connection ID to exclude
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		scopes:     make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *scopedMessage, 256),
		config:     cfg,
	}
}

// Run processes register, unregister, and broadcast requests until the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("connection_id", client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for scope, members := range h.scopes {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.scopes, scope)
					}
				}
				delete(h.clients, client.ID)
				client.closeSend()
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("connection_id", client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if msg.scope == "" {
				for id, client := range h.clients {
					if id == msg.exclude {
						continue
					}
					h.deliver(client, msg.message)
				}
			} else if members, ok := h.scopes[msg.scope]; ok {
				for id, client := range members {
					if id == msg.exclude {
						continue
					}
					h.deliver(client, msg.message)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// deliver pushes to a client's send queue; a client that cannot keep up is
// dropped rather than allowed to stall the broadcast loop.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		go h.Unregister(client)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join adds the connection to a scope's fan-out group.
func (h *Hub) Join(client *Client, scope string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.scopes[scope]; !ok {
		h.scopes[scope] = make(map[string]*Client)
	}
	h.scopes[scope][client.ID] = client
	l := log.L()
	l.Debug().Str("connection_id", client.ID).Str("scope", scope).Msg("client joined scope")
}

// Leave removes the connection from a scope.
func (h *Hub) Leave(client *Client, scope string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.scopes[scope]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.scopes, scope)
		}
	}
	l := log.L()
	l.Debug().Str("connection_id", client.ID).Str("scope", scope).Msg("client left scope")
}

// Broadcast fans a payload out to every connection in a scope, excluding at
// most one connection id.
func (h *Hub) Broadcast(scope string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- &scopedMessage{scope: scope, message: data, exclude: exclude}
	return nil
}

// BroadcastAll fans a payload out to every registered connection.
func (h *Hub) BroadcastAll(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- &scopedMessage{message: data}
	return nil
}

// ScopeSize returns the number of connections in a scope.
func (h *Hub) ScopeSize(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scope])
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChannelCount returns the number of live channel scopes.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for scope := range h.scopes {
		if strings.HasPrefix(scope, channelScopePrefix) {
			n++
		}
	}
	return n
}
