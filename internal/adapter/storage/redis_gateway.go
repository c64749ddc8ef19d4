package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every gateway key so several deployments can
// share one backing store.
const DefaultNamespace = "stockpilot:"

// RedisGateway persists each collection as one JSON string per
// namespaced key.
type RedisGateway struct {
	client    *redis.Client
	namespace string
}

func NewRedisGateway(client *redis.Client, namespace string) *RedisGateway {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisGateway{client: client, namespace: namespace}
}

func (g *RedisGateway) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := g.client.Get(ctx, g.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (g *RedisGateway) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := g.client.Set(ctx, g.namespace+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
