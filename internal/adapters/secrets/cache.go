package secrets

import (
	"sync"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

// secretCache keeps resolved secrets for ttl. A zero ttl disables caching.
type secretCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   timeutil.Clock
}

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

func newSecretCache(ttl time.Duration, clock timeutil.Clock) *secretCache {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &secretCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *secretCache) get(key string) *ports.Secret {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(key string, secret *ports.Secret) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{secret: secret, expiresAt: c.clock.Now().Add(c.ttl)}
}
