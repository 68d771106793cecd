package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	memory "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit/store/memory"
)

func TestSyncEmitAppendsInline(t *testing.T) {
	store := memory.NewInMemoryStore()
	p := NewPublisher(store)
	defer p.Close()

	require.NoError(t, p.Emit(t.Context(), audit.Event{
		Action:  string(audit.EventRiderSubscribed),
		RiderID: "r1",
		BusID:   "bus-1",
	}))

	events, err := p.List(t.Context(), "r1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRiderSubscribed), events[0].Action)
}

func TestAsyncEmitDrainsThroughWorker(t *testing.T) {
	store := memory.NewInMemoryStore()
	p := NewPublisher(store, WithAsyncBuffer(8))
	defer p.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Emit(t.Context(), audit.Event{
			Action:  string(audit.EventPaymentUpdated),
			RiderID: "r1",
		}))
	}

	require.Eventually(t, func() bool {
		events, err := store.ListByRider(context.Background(), "r1")
		return err == nil && len(events) == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListRequiresReader(t *testing.T) {
	p := NewPublisher(appendOnlyStore{})
	defer p.Close()

	_, err := p.List(t.Context(), "r1")
	require.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	p.Close()
	p.Close()
}

// appendOnlyStore is a sink without a query side, like the kafka one.
type appendOnlyStore struct{}

func (appendOnlyStore) Append(context.Context, audit.Event) error { return nil }
