package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ShutdownReverseOrder(t *testing.T) {
	sm := NewManager(zap.NewNop(), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	sm.RegisterNoErr("database", record("database"))
	sm.RegisterNoErr("http", record("http"))
	sm.RegisterNoErr("scheduler", record("scheduler"))

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"scheduler", "http", "database"}, order)
}

func TestManager_ShutdownJoinsErrors(t *testing.T) {
	sm := NewManager(zap.NewNop(), time.Second)
	errRedis := errors.New("redis close failed")

	ran := false
	sm.RegisterFunc("database", func() error {
		ran = true
		return nil
	})
	sm.RegisterFunc("redis", func() error { return errRedis })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, errRedis)
	assert.Contains(t, err.Error(), "redis")
	assert.True(t, ran, "later components still run after a failure")
}

func TestManager_WaitForShutdownOnContext(t *testing.T) {
	sm := NewManager(zap.NewNop(), time.Second)
	closed := false
	sm.RegisterNoErr("worker", func() { closed = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sm.WaitForShutdown(ctx))
	assert.True(t, closed)
}

func TestInFlightTracker_WaitsForWork(t *testing.T) {
	tracker := NewInFlightTracker("renewals", zap.NewNop())

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		if !tracker.Add() {
			return
		}
		defer tracker.Done()
		close(started)
		<-release
	}()
	<-started
	assert.Equal(t, 1, tracker.Running())

	done := make(chan error, 1)
	go func() { done <- tracker.Shutdown(context.Background()) }()

	select {
	case <-done:
		t.Fatal("shutdown returned while work was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	assert.True(t, tracker.IsShuttingDown())
	assert.False(t, tracker.Add(), "new work is rejected during shutdown")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, tracker.Running())
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("renewals", zap.NewNop())
	require.True(t, tracker.Add())
	defer tracker.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
}
