package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ekmjt/MediQ/internal/domain/providers"
	"github.com/ekmjt/MediQ/pkg/errors"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// CacheAdapter is an in-process CacheProvider used when Redis is not
// configured. Expired items are dropped lazily on read.
type CacheAdapter struct {
	mu    sync.RWMutex
	items map[string]cacheItem
}

// NewCacheAdapter creates a new in-memory cache adapter
func NewCacheAdapter() providers.CacheProvider {
	return &CacheAdapter{items: make(map[string]cacheItem)}
}

func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	item, ok := a.items[key]
	a.mu.RUnlock()

	if !ok || (!item.expiresAt.IsZero() && time.Now().After(item.expiresAt)) {
		return nil, errors.NewNotFoundError("cache key not found")
	}
	return item.value, nil
}

func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	item := cacheItem{value: value}
	if expirationSeconds > 0 {
		item.expiresAt = time.Now().Add(time.Duration(expirationSeconds) * time.Second)
	}

	a.mu.Lock()
	a.items[key] = item
	a.mu.Unlock()
	return nil
}

func (a *CacheAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	delete(a.items, key)
	a.mu.Unlock()
	return nil
}

func (a *CacheAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Get(ctx, key)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
