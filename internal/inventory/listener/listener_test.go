package listener

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/kv/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/pkg/logger"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	failures int
	closed   bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func usageMessage(t *testing.T, event UsageEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func newUseCase() inventory.UseCase {
	return usecase.NewInventoryUseCase(repository.NewKVRepository(memory.New()), logger.NewNop())
}

func TestProcessMessageRecordsUsage(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase()
	l := NewUsageListener(&fakeReader{}, uc, logger.NewNop())

	msg := usageMessage(t, UsageEvent{
		EventID:   "evt-1",
		EventType: EventIngredientUsed,
		Payload:   UsagePayload{ItemID: "1", Amount: 5},
		Timestamp: time.Now(),
	})
	l.processMessage(ctx, msg.Value)

	txs, err := uc.ListItemTransactions(ctx, "1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, 5, txs[0].Amount)
	assert.Equal(t, "Kitchen usage evt-1", txs[0].Note)

	items, err := uc.SearchItems(ctx, "thyme")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 45, items[0].Quantity)
}

func TestProcessMessageSkipsBadEvents(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase()
	l := NewUsageListener(&fakeReader{}, uc, logger.NewNop())

	l.processMessage(ctx, []byte("not json"))
	l.processMessage(ctx, usageMessage(t, UsageEvent{
		EventType: "OrderPlaced",
		Payload:   UsagePayload{ItemID: "1", Amount: 1},
	}).Value)
	l.processMessage(ctx, usageMessage(t, UsageEvent{
		EventType: EventIngredientUsed,
		Payload:   UsagePayload{ItemID: "4", Amount: 500},
	}).Value)
	l.processMessage(ctx, usageMessage(t, UsageEvent{
		EventType: EventIngredientUsed,
		Payload:   UsagePayload{ItemID: "ghost", Amount: 1},
	}).Value)

	txs, err := uc.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestStartConsumesUntilCancelled(t *testing.T) {
	uc := newUseCase()
	reader := &fakeReader{
		failures: 1,
		messages: []kafka.Message{
			usageMessage(t, UsageEvent{EventID: "a", EventType: EventIngredientUsed, Payload: UsagePayload{ItemID: "5", Amount: 2, Note: "lunch"}}),
			usageMessage(t, UsageEvent{EventID: "b", EventType: EventIngredientUsed, Payload: UsagePayload{ItemID: "5", Amount: 3}}),
		},
	}
	l := NewUsageListener(reader, uc, logger.NewNop())
	l.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return reader.pending() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		txs, err := uc.ListItemTransactions(context.Background(), "5")
		return err == nil && len(txs) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}

	txs, err := uc.ListItemTransactions(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen usage b", txs[0].Note)
	assert.Equal(t, "lunch", txs[1].Note)
}

func TestProcessMessageAppliesRedeliveredEventOnce(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase()
	l := NewUsageListener(&fakeReader{}, uc, logger.NewNop())

	msg := usageMessage(t, UsageEvent{
		EventID:   "evt-7",
		EventType: EventIngredientUsed,
		Payload:   UsagePayload{ItemID: "1", Amount: 4},
	})
	l.processMessage(ctx, msg.Value)
	l.processMessage(ctx, msg.Value)

	txs, err := uc.ListItemTransactions(ctx, "1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "evt-7", txs[0].Reference)

	items, err := uc.SearchItems(ctx, "thyme")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 46, items[0].Quantity)
}
