package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher_DeliversDespiteHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls int
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, 2, calls)
}

func TestAsyncDispatcher_DeliversFromWorkers(t *testing.T) {
	d := NewAsyncDispatcher(nil, 16, 2)
	var wg sync.WaitGroup
	wg.Add(3)
	var delivered atomic.Int32
	d.Subscribe(EventSLABreached, func(context.Context, Event) error {
		delivered.Add(1)
		wg.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventSLABreached}))
	}
	wg.Wait()
	cancel()
	<-done
	assert.Equal(t, int32(3), delivered.Load())
}

func TestAsyncDispatcher_DropsWhenFull(t *testing.T) {
	d := NewAsyncDispatcher(nil, 1, 1)
	var dropped []Event
	d.OnDrop(func(e Event) { dropped = append(dropped, e) })

	require.NoError(t, d.Publish(context.Background(), Event{ID: "a"}))
	err := d.Publish(context.Background(), Event{ID: "b"})
	assert.True(t, errors.Is(err, ErrQueueFull))
	require.Len(t, dropped, 1)
	assert.Equal(t, "b", dropped[0].ID)
}

func TestAsyncDispatcher_DrainsOnShutdown(t *testing.T) {
	d := NewAsyncDispatcher(nil, 8, 1)
	var delivered atomic.Int32
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		delivered.Add(1)
		return nil
	})
	for i := 0; i < 4; i++ {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Eventually(t, func() bool { return delivered.Load() == 4 }, time.Second, 10*time.Millisecond)
}
