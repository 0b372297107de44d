package metrics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavechat/messaging-gateway/internal/config"
	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/internal/hub"
	"github.com/wavechat/messaging-gateway/internal/presence"
	"github.com/wavechat/messaging-gateway/internal/store"
)

func wsConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 65536,
	}
}

func receive(t *testing.T, c *hub.Client) *domain.Envelope {
	t.Helper()
	select {
	case data := <-c.Send:
		var env domain.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return &env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestSnapshotReflectsCounters(t *testing.T) {
	h := hub.NewHub(wsConfig())
	reg := presence.NewRegistry(time.Minute)
	defer reg.Close()
	st, err := store.NewMemoryStore("")
	require.NoError(t, err)

	col := NewCollector()
	col.EventProcessed("message:send")
	col.EventProcessed("channel:join")
	col.EventFailed()

	reg.SetOnline("user-1", presence.ConnectionMeta{ConnectionID: "c1"})

	b := NewBroadcaster(h, reg, st, col, 5*time.Second)
	snap := b.Snapshot()

	assert.Equal(t, uint64(2), snap.EventsProcessed)
	assert.Equal(t, uint64(1), snap.ErrorsTotal)
	assert.Equal(t, 1, snap.OnlineUsers)
	assert.Equal(t, 0, snap.Connections)
	assert.NotZero(t, snap.Timestamp)
	assert.NotZero(t, snap.Goroutines)
}

func TestSendSnapshotSkipsDatabaseMetricsWhenDegraded(t *testing.T) {
	h := hub.NewHub(wsConfig())
	reg := presence.NewRegistry(time.Minute)
	defer reg.Close()
	st, err := store.NewMemoryStore("")
	require.NoError(t, err)

	b := NewBroadcaster(h, reg, st, NewCollector(), 5*time.Second)
	c := hub.NewClient("c1", h, nil, wsConfig())

	b.SendSnapshot(context.Background(), c)

	env := receive(t, c)
	assert.Equal(t, domain.EvtSystemMetrics, env.Event)

	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame for degraded store: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcasterRunPublishesOnInterval(t *testing.T) {
	h := hub.NewHub(wsConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	reg := presence.NewRegistry(time.Minute)
	defer reg.Close()
	st, err := store.NewMemoryStore("")
	require.NoError(t, err)

	c := hub.NewClient("c1", h, nil, wsConfig())
	h.Register(c)
	h.Join(c, hub.ScopeMetrics)

	b := NewBroadcaster(h, reg, st, NewCollector(), 20*time.Millisecond)
	go b.Run(ctx)

	env := receive(t, c)
	assert.Equal(t, domain.EvtSystemMetrics, env.Event)
}
