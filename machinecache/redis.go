package machinecache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"washcore/store"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func machineKey(id string) string {
	return fmt.Sprintf("washcore:machine:%s", id)
}

func (r *RedisCache) Get(ctx context.Context, id string) (*store.Machine, error) {
	data, err := r.client.Get(ctx, machineKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m store.Machine
	return &m, json.Unmarshal(data, &m)
}

func (r *RedisCache) Put(ctx context.Context, id string, m *store.Machine) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, machineKey(id), data, 0).Err()
}

func (r *RedisCache) Remove(ctx context.Context, id string) error {
	return r.client.Del(ctx, machineKey(id)).Err()
}
