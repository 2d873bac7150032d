// package cache stores fetched datasets with their write time and answers freshness questions about them
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

// DefaultTTL is how long a dataset stays valid after it is written.
const DefaultTTL = 30 * time.Minute

// Store persists raw cache entries. Get returns [shared.ErrCacheMiss] for absent keys.
type Store interface {
	Put(key string, payload []byte, writtenAt time.Time) error
	Get(key string) (*models.CacheEntry, error)
	List() ([]models.CacheEntry, error)
	Delete(keys ...string) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Cache serializes values as JSON into a [Store].
type Cache struct {
	store Store
	clock Clock
}

// New creates a Cache over store. A nil clock uses the system time.
func New(store Store, clock Clock) *Cache {
	if clock == nil {
		clock = systemClock{}
	}
	return &Cache{store: store, clock: clock}
}

// Write serializes value and stores it under key with the current time, replacing any previous entry.
func (c *Cache) Write(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.store.Put(key, payload, c.clock.Now())
}

// ReadIfValid decodes the entry for key into out when it exists and is younger than ttl.
//
// Absent and stale entries report false with a nil error. Stale entries are left in place.
func (c *Cache) ReadIfValid(key string, ttl time.Duration, out any) (bool, error) {
	entry, ok, err := c.valid(key, ttl)
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal(entry.Payload, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// AllValid reports whether every key holds an entry younger than ttl. Store errors count as invalid.
func (c *Cache) AllValid(keys []string, ttl time.Duration) bool {
	for _, key := range keys {
		if _, ok, err := c.valid(key, ttl); err != nil || !ok {
			return false
		}
	}
	return true
}

func (c *Cache) valid(key string, ttl time.Duration) (*models.CacheEntry, bool, error) {
	entry, err := c.store.Get(key)
	if errors.Is(err, shared.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry, c.clock.Now().Sub(entry.WrittenAt) < ttl, nil
}
