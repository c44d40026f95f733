// Package machinecache holds the last known machine snapshot per id,
// fronting the SQL store. The store stays authoritative: writers refresh
// the cache after every store mutation, readers fall back to the store
// on a miss.
package machinecache

import (
	"context"

	"washcore/store"
)

// Cache is a get/put snapshot store. Get returns (nil, nil) on a miss.
// Eviction policy belongs to the implementation, not the callers.
type Cache interface {
	Get(ctx context.Context, id string) (*store.Machine, error)
	Put(ctx context.Context, id string, m *store.Machine) error
}
