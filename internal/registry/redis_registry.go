package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wavechat/messaging-gateway/internal/config"
	"github.com/wavechat/messaging-gateway/pkg/log"
)

// RedisRegistry announces the instance under a TTL key and refreshes it on
// a heartbeat interval.
type RedisRegistry struct {
	client            *redis.Client
	instanceID        string
	advertiseAddress  string
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration
	cancel            context.CancelFunc
}

func NewRedisRegistry(cfg config.RedisConfig, instanceID, advertiseAddress string) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRegistry{
		client:            client,
		instanceID:        instanceID,
		advertiseAddress:  advertiseAddress,
		prefix:            cfg.RegistryPrefix,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
	}, nil
}

func (r *RedisRegistry) key() string {
	return fmt.Sprintf("%s:instance:%s", r.prefix, r.instanceID)
}

func (r *RedisRegistry) Register(ctx context.Context) error {
	if err := r.client.Set(ctx, r.key(), r.advertiseAddress, r.keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to register instance: %w", err)
	}

	l := log.L()
	l.Info().Str("instance_id", r.instanceID).Str("address", r.advertiseAddress).Msg("registered gateway instance")
	return nil
}

func (r *RedisRegistry) Deregister(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("failed to deregister instance: %w", err)
	}

	l := log.L()
	l.Info().Str("instance_id", r.instanceID).Msg("deregistered gateway instance")
	return nil
}

// ListInstances returns instanceID -> advertise address for all live
// gateway instances.
func (r *RedisRegistry) ListInstances(ctx context.Context) (map[string]string, error) {
	pattern := fmt.Sprintf("%s:instance:*", r.prefix)

	instances := make(map[string]string)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		addr, err := r.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		id := strings.TrimPrefix(key, fmt.Sprintf("%s:instance:", r.prefix))
		instances[id] = addr
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}

func (r *RedisRegistry) StartHeartbeat(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.heartbeatLoop(ctx)
	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("registry heartbeat started")
	return nil
}

func (r *RedisRegistry) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.client.Set(ctx, r.key(), r.advertiseAddress, r.keyTTL).Err(); err != nil {
				l := log.L()
				l.Error().Err(err).Msg("failed to refresh instance key")
			}
		}
	}
}

func (r *RedisRegistry) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *RedisRegistry) Close() error {
	r.StopHeartbeat()
	return r.client.Close()
}
