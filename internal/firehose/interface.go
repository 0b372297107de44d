package firehose

import (
	"context"

	"github.com/wavechat/messaging-gateway/internal/domain"
)

// Producer streams durably persisted messages to downstream consumers
// (archival, search indexing). Production is off the fan-out critical path:
// a firehose failure never blocks delivery to connected clients.
type Producer interface {
	ProduceMessage(ctx context.Context, msg *domain.Message) error
	Close() error
}

// NoopProducer is used when no broker is configured.
type NoopProducer struct{}

func NewNoopProducer() *NoopProducer { return &NoopProducer{} }

func (NoopProducer) ProduceMessage(ctx context.Context, msg *domain.Message) error { return nil }
func (NoopProducer) Close() error                                                  { return nil }
