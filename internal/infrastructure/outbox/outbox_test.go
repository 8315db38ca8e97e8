package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/pasar-rakyat/kantin/internal/domain/outbox"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := outbox.NewBus(nil)

	var mu sync.Mutex
	var got []string
	for i := 0; i < 3; i++ {
		bus.Subscribe("thing.happened", func(ctx context.Context, e domoutbox.Event) error {
			mu.Lock()
			got = append(got, e.EventName())
			mu.Unlock()
			return nil
		})
	}

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Stop(ctx)

	require.NoError(t, bus.Publish(ctx, testEvent{name: "thing.happened"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := outbox.NewBus(nil)

	bus.Subscribe("thing.happened", func(ctx context.Context, e domoutbox.Event) error {
		panic("handler blew up")
	})
	delivered := make(chan struct{}, 2)
	bus.Subscribe("thing.happened", func(ctx context.Context, e domoutbox.Event) error {
		delivered <- struct{}{}
		return nil
	})

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Stop(ctx)

	require.NoError(t, bus.Publish(ctx, testEvent{name: "thing.happened"}))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling handler never ran")
	}

	// Bus keeps dispatching after the panic.
	require.NoError(t, bus.Publish(ctx, testEvent{name: "thing.happened"}))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("bus stopped dispatching after panic")
	}
}

func TestBusHandlerErrorsDoNotBlockSiblings(t *testing.T) {
	bus := outbox.NewBus(nil)

	bus.Subscribe("thing.happened", func(ctx context.Context, e domoutbox.Event) error {
		return errors.New("downstream rejected")
	})
	delivered := make(chan struct{}, 1)
	bus.Subscribe("thing.happened", func(ctx context.Context, e domoutbox.Event) error {
		delivered <- struct{}{}
		return nil
	})

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Stop(ctx)

	require.NoError(t, bus.Publish(ctx, testEvent{name: "thing.happened"}))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling handler never ran")
	}
}

func TestBusDropsUnsubscribedEvents(t *testing.T) {
	bus := outbox.NewBus(nil)
	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Stop(ctx)

	assert.NoError(t, bus.Publish(ctx, testEvent{name: "nobody.cares"}))
}

func TestBusPublishNilEventIsNoop(t *testing.T) {
	bus := outbox.NewBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}
