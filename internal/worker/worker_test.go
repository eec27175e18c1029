package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/service"
)

type stubSweeper struct {
	calls  atomic.Int32
	report service.SweepReport
	err    error
	sawCtx chan context.Context
}

func (s *stubSweeper) RunBreachSweep(ctx context.Context, _ time.Time) (service.SweepReport, error) {
	s.calls.Add(1)
	if s.sawCtx != nil {
		select {
		case s.sawCtx <- ctx:
		default:
		}
	}
	return s.report, s.err
}

type stubLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
	err      error
}

func (l *stubLock) TryLock(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	l.acquired++
	return true, nil
}

func (l *stubLock) Unlock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

type sweepRecord struct {
	checked, breached int
	err               error
}

type stubRecorder struct {
	mu      sync.Mutex
	records []sweepRecord
}

func (r *stubRecorder) RecordSweep(checked, _, breached, _ int, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, sweepRecord{checked: checked, breached: breached, err: err})
}

func TestBreachSweeper_RunOnceHoldsLease(t *testing.T) {
	sweeper := &stubSweeper{report: service.SweepReport{Checked: 3, Updated: 1, NewlyBreached: 1}}
	lock := &stubLock{}
	recorder := &stubRecorder{}
	w := NewBreachSweeper(sweeper, lock, config.SweepConfig{IntervalSeconds: 5, TimeoutSeconds: 2}, nil, recorder)

	report, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, 1, recorder.records[0].breached)
}

func TestBreachSweeper_SkipsWhenLeaseHeld(t *testing.T) {
	sweeper := &stubSweeper{}
	lock := &stubLock{held: true}
	w := NewBreachSweeper(sweeper, lock, config.SweepConfig{}, nil, nil)

	_, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, sweeper.calls.Load())
	assert.Zero(t, lock.released)
}

func TestBreachSweeper_LockErrorSkipsRun(t *testing.T) {
	sweeper := &stubSweeper{}
	w := NewBreachSweeper(sweeper, &stubLock{err: errors.New("redis down")}, config.SweepConfig{}, nil, nil)

	_, ran, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.False(t, ran)
	assert.Zero(t, sweeper.calls.Load())
}

func TestBreachSweeper_RunOnceBoundsWithTimeout(t *testing.T) {
	sweeper := &stubSweeper{sawCtx: make(chan context.Context, 1)}
	w := NewBreachSweeper(sweeper, nil, config.SweepConfig{TimeoutSeconds: 7}, nil, nil)

	_, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	ctx := <-sweeper.sawCtx
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(7*time.Second), deadline, 2*time.Second)
}

func TestBreachSweeper_SweepErrorIsRecorded(t *testing.T) {
	boom := errors.New("boom")
	recorder := &stubRecorder{}
	w := NewBreachSweeper(&stubSweeper{err: boom}, &stubLock{}, config.SweepConfig{}, nil, recorder)

	_, ran, err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran)
	require.Len(t, recorder.records, 1)
	assert.ErrorIs(t, recorder.records[0].err, boom)
}

func TestBreachSweeper_RunTicksUntilCancelled(t *testing.T) {
	sweeper := &stubSweeper{}
	w := NewBreachSweeper(sweeper, nil, config.SweepConfig{}, nil, nil)
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type countingLoader struct {
	calls atomic.Int32
}

func (l *countingLoader) LoadCatalog(context.Context) (catalog.Data, error) {
	l.calls.Add(1)
	return catalog.Data{}, nil
}

func TestCatalogRefresher_ReloadsOnTimerWithoutRedis(t *testing.T) {
	loader := &countingLoader{}
	provider := catalog.NewProvider(loader, nil)
	r := NewCatalogRefresher(provider, nil, "catalog:invalidate", 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return loader.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestCatalogRefresher_InvalidateReloadsLocally(t *testing.T) {
	loader := &countingLoader{}
	provider := catalog.NewProvider(loader, nil)
	r := NewCatalogRefresher(provider, nil, "catalog:invalidate", time.Hour, nil)

	snapshot, err := r.Invalidate(context.Background(), "manual")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Same(t, snapshot, provider.Current())
}

func TestStartNotificationWorker_DeliversQueuedEvents(t *testing.T) {
	dispatcher := events.NewAsyncDispatcher(nil, 8, 2)
	var delivered atomic.Int32
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		delivered.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartNotificationWorker(ctx, nil, dispatcher) }()

	for i := 0; i < 3; i++ {
		require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "e", Type: events.EventTicketCreated}))
	}
	require.Eventually(t, func() bool { return delivered.Load() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
