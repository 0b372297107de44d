package registry

import "context"

// InstanceRegistry announces this gateway instance to the cluster so
// operators and peers can discover live gateways. Entries expire via TTL;
// a heartbeat keeps them fresh while the process is healthy.
type InstanceRegistry interface {
	Register(ctx context.Context) error
	Deregister(ctx context.Context) error
	ListInstances(ctx context.Context) (map[string]string, error)
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
	Close() error
}

// NoopRegistry is used when no redis is configured.
type NoopRegistry struct{}

func NewNoopRegistry() *NoopRegistry { return &NoopRegistry{} }

func (NoopRegistry) Register(ctx context.Context) error   { return nil }
func (NoopRegistry) Deregister(ctx context.Context) error { return nil }
func (NoopRegistry) ListInstances(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}
func (NoopRegistry) StartHeartbeat(ctx context.Context) error { return nil }
func (NoopRegistry) StopHeartbeat()                           {}
func (NoopRegistry) Close() error                             { return nil }
