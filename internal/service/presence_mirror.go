package service

import (
	"context"

	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/internal/hub"
	"github.com/wavechat/messaging-gateway/pkg/log"
	"github.com/wavechat/messaging-gateway/pkg/pubsub"
)

// PresenceMirror rebroadcasts presence transitions published by peer
// gateway instances to this instance's local connections, so any user's
// status change reaches clients regardless of which gateway they hit.
type PresenceMirror struct {
	hub        *hub.Hub
	subscriber pubsub.Subscriber
	instanceID string
}

func NewPresenceMirror(h *hub.Hub, sub pubsub.Subscriber, instanceID string) *PresenceMirror {
	return &PresenceMirror{
		hub:        h,
		subscriber: sub,
		instanceID: instanceID,
	}
}

// Run consumes the presence channel until the context is cancelled.
func (m *PresenceMirror) Run(ctx context.Context) error {
	events, err := m.subscriber.Subscribe(ctx, pubsub.ChannelPresence)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Origin == m.instanceID {
				continue
			}
			m.rebroadcast(ev)
		}
	}
}

func (m *PresenceMirror) rebroadcast(ev *pubsub.Event) {
	var p pubsub.PresencePayload
	if err := ev.UnmarshalPayload(&p); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to decode presence event")
		return
	}

	m.hub.BroadcastAll(domain.NewEnvelope(domain.EvtUserStatus, domain.UserStatusPayload{
		UserID: p.UserID,
		Status: domain.PresenceStatus(p.Status),
	}))
}
