package machinecache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"washcore/store"
)

// MemoryCache is a bounded in-process cache used when Redis is not
// reachable, so a single-node deployment still avoids store round-trips.
type MemoryCache struct {
	entries *lru.Cache[string, *store.Machine]
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	entries, err := lru.New[string, *store.Machine](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: entries}, nil
}

func (c *MemoryCache) Get(_ context.Context, id string) (*store.Machine, error) {
	m, ok := c.entries.Get(id)
	if !ok {
		return nil, nil
	}
	snap := *m
	return &snap, nil
}

func (c *MemoryCache) Put(_ context.Context, id string, m *store.Machine) error {
	snap := *m
	c.entries.Add(id, &snap)
	return nil
}

func (c *MemoryCache) Remove(_ context.Context, id string) error {
	c.entries.Remove(id)
	return nil
}
