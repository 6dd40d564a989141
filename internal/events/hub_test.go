package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floor_service/internal/events"
	"floor_service/internal/floor"
)

func TestHubFiltersByKind(t *testing.T) {
	hub := events.NewHub()
	all := hub.Subscribe(4)
	accounts := hub.Subscribe(4, floor.KindUser, floor.KindAdmin)

	hub.Publish(context.Background(), floor.StatusChange{Kind: floor.KindMachine, ID: "m1"})
	hub.Publish(context.Background(), floor.StatusChange{Kind: floor.KindUser, ID: "u1"})

	require.Len(t, all, 2)
	require.Len(t, accounts, 1)
	got := <-accounts
	assert.Equal(t, "u1", got.ID)
}

func TestHubDoesNotBlockOnFullSubscriber(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(context.Background(), floor.StatusChange{Kind: floor.KindRoom, ID: "r1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	require.Len(t, ch, 1)
}

func TestHubClose(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe(1)
	hub.Close()
	hub.Close()

	_, ok := <-ch
	require.False(t, ok)

	late := hub.Subscribe(1)
	_, ok = <-late
	require.False(t, ok)
	hub.Publish(context.Background(), floor.StatusChange{ID: "x"})
}

type handlerFunc func(ctx context.Context, c floor.StatusChange) error

func (f handlerFunc) Handle(ctx context.Context, c floor.StatusChange) error { return f(ctx, c) }

func TestRunContinuesAfterHandlerError(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe(4)

	var mu sync.Mutex
	var seen []string
	h := handlerFunc(func(_ context.Context, c floor.StatusChange) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.ID)
		if c.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	hub.Publish(context.Background(), floor.StatusChange{ID: "bad"})
	hub.Publish(context.Background(), floor.StatusChange{ID: "good"})
	hub.Close()

	events.Run(context.Background(), "test", ch, h)
	require.Equal(t, []string{"bad", "good"}, seen)
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := events.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		events.Run(ctx, "test", hub.Subscribe(1), handlerFunc(func(context.Context, floor.StatusChange) error { return nil }))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}
