package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavechat/messaging-gateway/internal/config"
	"github.com/wavechat/messaging-gateway/internal/domain"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 65536,
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

// receive reads one frame off the client's send queue, failing the test if
// nothing arrives in time.
func receive(t *testing.T, c *Client) *domain.Envelope {
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

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToScope(t *testing.T) {
	h := startHub(t)

	member1 := NewClient("c1", h, nil, testConfig())
	member2 := NewClient("c2", h, nil, testConfig())
	outsider := NewClient("c3", h, nil, testConfig())
	for _, c := range []*Client{member1, member2, outsider} {
		h.Register(c)
	}
	h.Join(member1, ChannelScope("general"))
	h.Join(member2, ChannelScope("general"))

	require.NoError(t, h.Broadcast(ChannelScope("general"), domain.NewEnvelope("message:new", "hi"), ""))

	assert.Equal(t, "message:new", receive(t, member1).Event)
	assert.Equal(t, "message:new", receive(t, member2).Event)
	assertNoFrame(t, outsider)
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := startHub(t)

	sender := NewClient("c1", h, nil, testConfig())
	other := NewClient("c2", h, nil, testConfig())
	h.Register(sender)
	h.Register(other)
	h.Join(sender, ChannelScope("general"))
	h.Join(other, ChannelScope("general"))

	require.NoError(t, h.Broadcast(ChannelScope("general"), domain.NewEnvelope("user:typing", nil), "c1"))

	assert.Equal(t, "user:typing", receive(t, other).Event)
	assertNoFrame(t, sender)
}

func TestBroadcastAll(t *testing.T) {
	h := startHub(t)

	c1 := NewClient("c1", h, nil, testConfig())
	c2 := NewClient("c2", h, nil, testConfig())
	h.Register(c1)
	h.Register(c2)

	require.NoError(t, h.BroadcastAll(domain.NewEnvelope("user:status", nil)))

	assert.Equal(t, "user:status", receive(t, c1).Event)
	assert.Equal(t, "user:status", receive(t, c2).Event)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := startHub(t)

	c := NewClient("c1", h, nil, testConfig())
	h.Register(c)
	h.Join(c, ChannelScope("general"))
	assert.Equal(t, 1, h.ScopeSize(ChannelScope("general")))

	h.Leave(c, ChannelScope("general"))
	assert.Equal(t, 0, h.ScopeSize(ChannelScope("general")))

	require.NoError(t, h.Broadcast(ChannelScope("general"), domain.NewEnvelope("message:new", nil), ""))
	assertNoFrame(t, c)
}

func TestUnregisterRemovesFromAllScopes(t *testing.T) {
	h := startHub(t)

	c := NewClient("c1", h, nil, testConfig())
	h.Register(c)
	h.Join(c, ChannelScope("general"))
	h.Join(c, UserScope("user-1"))

	h.Unregister(c)

	assert.Eventually(t, func() bool {
		return h.ClientCount() == 0 && h.ScopeSize(ChannelScope("general")) == 0 && h.ScopeSize(UserScope("user-1")) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestChannelCountIgnoresOtherScopes(t *testing.T) {
	h := startHub(t)

	c := NewClient("c1", h, nil, testConfig())
	h.Register(c)
	h.Join(c, ChannelScope("general"))
	h.Join(c, ChannelScope("random"))
	h.Join(c, UserScope("user-1"))
	h.Join(c, ScopeMetrics)

	assert.Equal(t, 2, h.ChannelCount())
	assert.Equal(t, 1, h.ClientCount())
}

func TestSendAfterEvictionDoesNotPanic(t *testing.T) {
	h := startHub(t)

	laggard := NewClient("c1", h, nil, testConfig())
	other := NewClient("c2", h, nil, testConfig())
	h.Register(laggard)
	h.Register(other)
	h.Join(laggard, ChannelScope("general"))
	h.Join(other, ChannelScope("general"))

	// Fill the laggard's queue so the next delivery evicts it.
	for i := 0; i < cap(laggard.Send); i++ {
		laggard.Send <- []byte("{}")
	}
	require.NoError(t, h.Broadcast(ChannelScope("general"), domain.NewEnvelope("message:new", nil), ""))

	assert.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	// A handler may still be mid-event for the evicted connection; its sends
	// must degrade to drops, never a send on a closed channel.
	assert.NotPanics(t, func() {
		require.NoError(t, laggard.SendEvent("message:new", nil))
		require.NoError(t, laggard.SendError(domain.ErrCodeInternal, "late frame"))
		require.NoError(t, laggard.SendMessage(domain.NewEnvelope("user:status", nil)))
	})

	// The surviving connection is unaffected.
	require.NoError(t, h.Broadcast(ChannelScope("general"), domain.NewEnvelope("message:new", nil), ""))
	assert.Equal(t, "message:new", receive(t, other).Event)
}

func TestSendEventAndError(t *testing.T) {
	h := startHub(t)
	c := NewClient("c1", h, nil, testConfig())

	require.NoError(t, c.SendEvent("users:online", []string{}))
	assert.Equal(t, "users:online", receive(t, c).Event)

	require.NoError(t, c.SendError(domain.ErrCodeBadRequest, "bad payload"))
	env := receive(t, c)
	assert.Equal(t, domain.EvtError, env.Event)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var p domain.ErrorPayload
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, domain.ErrCodeBadRequest, p.Code)
	assert.Equal(t, "bad payload", p.Message)
}
