package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestRunOnceSweepsAllTargets(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := session.NewStore[string]()
	store.SetClock(func() time.Time { return now })
	store.Put(1, "old")
	store.Put(2, "old")

	var calls []time.Duration
	s := New(time.Minute, time.Hour, zap.NewNop())
	s.Register("sessions", store)
	s.Register("counter", SweeperFunc(func(idle time.Duration) int {
		calls = append(calls, idle)
		return 3
	}))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 5, s.RunOnce())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, []time.Duration{time.Hour}, calls)
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(0, -1, nil)
	assert.Equal(t, DefaultInterval, s.interval)
	assert.Equal(t, DefaultIdle, s.idle)
}

func TestRunStopsOnCancel(t *testing.T) {
	var swept atomic.Int32
	s := New(10*time.Millisecond, time.Hour, zap.NewNop())
	s.Register("probe", SweeperFunc(func(time.Duration) int {
		swept.Add(1)
		return 0
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return swept.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
