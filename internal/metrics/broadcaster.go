package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/internal/hub"
	"github.com/wavechat/messaging-gateway/internal/presence"
	"github.com/wavechat/messaging-gateway/internal/store"
	"github.com/wavechat/messaging-gateway/pkg/log"
)

// Broadcaster pushes metric snapshots to the observability scope on a fixed
// interval, independent of the messaging session lifecycle. A slow or busy
// session handler never delays a snapshot and vice versa.
type Broadcaster struct {
	hub       *hub.Hub
	presence  *presence.Registry
	store     store.MessageStore
	collector *Collector
	interval  time.Duration
	started   time.Time
	durable   bool
}

func NewBroadcaster(h *hub.Hub, reg *presence.Registry, st store.MessageStore, col *Collector, interval time.Duration) *Broadcaster {
	caps := st.Capabilities()
	return &Broadcaster{
		hub:       h,
		presence:  reg,
		store:     st,
		collector: col,
		interval:  interval,
		started:   time.Now(),
		durable:   caps.Edit || caps.Reactions,
	}
}

// Run publishes snapshots until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.publish(ctx)
		}
	}
}

func (b *Broadcaster) publish(ctx context.Context) {
	snap := b.Snapshot()
	if err := b.hub.Broadcast(hub.ScopeMetrics, domain.NewEnvelope(domain.EvtSystemMetrics, snap), ""); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to broadcast system metrics")
	}

	if !b.durable {
		return
	}
	tables, err := b.databaseMetrics(ctx)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to collect database metrics")
		return
	}
	if err := b.hub.Broadcast(hub.ScopeMetrics, domain.NewEnvelope(domain.EvtDatabaseMetrics, tables), ""); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to broadcast database metrics")
	}
}

// Snapshot collects the current system metrics.
func (b *Broadcaster) Snapshot() domain.SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	connections := b.hub.ClientCount()
	b.collector.SetConnections(connections)

	return domain.SystemMetrics{
		Timestamp:       time.Now().UnixMilli(),
		UptimeSeconds:   int64(time.Since(b.started).Seconds()),
		Connections:     connections,
		OnlineUsers:     b.presence.OnlineCount(),
		ActiveChannels:  b.hub.ChannelCount(),
		EventsProcessed: b.collector.EventsProcessed(),
		ErrorsTotal:     b.collector.ErrorsTotal(),
		Goroutines:      runtime.NumGoroutine(),
		HeapAllocBytes:  mem.HeapAlloc,
	}
}

func (b *Broadcaster) databaseMetrics(ctx context.Context) ([]domain.DatabaseTableMetrics, error) {
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return []domain.DatabaseTableMetrics{
		{TableName: "messages", Rows: stats.Messages, QueryCount: stats.QueryCount},
		{TableName: "reactions", Rows: stats.Reactions, QueryCount: stats.QueryCount},
	}, nil
}

// SendSnapshot delivers the current snapshot to one connection, used for
// the initial push on metrics-socket connect and for request_metrics.
func (b *Broadcaster) SendSnapshot(ctx context.Context, c *hub.Client) {
	c.SendEvent(domain.EvtSystemMetrics, b.Snapshot())

	if !b.durable {
		return
	}
	tables, err := b.databaseMetrics(ctx)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to collect database metrics")
		return
	}
	c.SendEvent(domain.EvtDatabaseMetrics, tables)
}
