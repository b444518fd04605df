package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

var _ ports.ServiceLocker = (*Locker)(nil)

type lease struct {
	token     string
	expiresAt time.Time
}

// Locker is a single-process ServiceLocker. Leases expire by the given clock.
type Locker struct {
	mu     sync.Mutex
	clock  timeutil.Clock
	leases map[string]lease
}

// NewLocker creates a locker whose leases expire according to clock
func NewLocker(clock timeutil.Clock) *Locker {
	return &Locker{clock: clock, leases: make(map[string]lease)}
}

// Acquire takes the lock for serviceID, or returns domain.ErrServiceLocked while another lease is live
func (l *Locker) Acquire(ctx context.Context, serviceID string, ttl time.Duration) (func(context.Context) error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if held, ok := l.leases[serviceID]; ok && now.Before(held.expiresAt) {
		return nil, domain.ErrServiceLocked
	}

	token := uuid.New().String()
	l.leases[serviceID] = lease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[serviceID]; ok && held.token == token {
			delete(l.leases, serviceID)
		}
		return nil
	}, nil
}
