// Package redislock implements ports.ServiceLocker on Redis so several renewal
// workers can share one database
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "subscription:service-lock:"

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds Redis connection settings
type Config struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// NewClient creates a go-redis client from cfg and verifies the connection
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Locker is a ServiceLocker backed by SET NX PX
type Locker struct {
	client redis.UniversalClient
}

var _ ports.ServiceLocker = (*Locker)(nil)

// NewLocker creates a new Redis service locker
func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// Acquire takes the lock for serviceID for at most ttl.
// It returns domain.ErrServiceLocked when another worker holds it.
func (l *Locker) Acquire(ctx context.Context, serviceID string, ttl time.Duration) (func(context.Context) error, error) {
	key := keyPrefix + serviceID
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for service %s: %w", serviceID, err)
	}
	if !ok {
		return nil, domain.ErrServiceLocked
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lock for service %s: %w", serviceID, err)
		}
		return nil
	}, nil
}
