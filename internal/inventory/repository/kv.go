package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/kv"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

const (
	ItemsKey   = "madison_inventory_v1"
	HistoryKey = "madison_inventory_history_v1"

	DefaultUsageWindowDays = 7
	initialStockNote       = "Initial Stock"
	lockName               = "inventory"
)

// KVRepository keeps the item collection and the transaction log as two blobs
// in a kv.Store. Every mutation is a read-modify-write of whole blobs done under
// mu, and under the backend lock when the backend provides one.
type KVRepository struct {
	store   kv.Store
	locker  kv.Locker
	mu      sync.Mutex
	now     func() time.Time
	newID   func() string
	lockTTL time.Duration
}

type Option func(*KVRepository)

func WithClock(now func() time.Time) Option {
	return func(r *KVRepository) { r.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(r *KVRepository) { r.newID = gen }
}

func WithLockTTL(ttl time.Duration) Option {
	return func(r *KVRepository) { r.lockTTL = ttl }
}

func NewKVRepository(store kv.Store, opts ...Option) *KVRepository {
	r := &KVRepository{
		store:   store,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
		lockTTL: 5 * time.Second,
	}
	if l, ok := store.(kv.Locker); ok {
		r.locker = l
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// withLock serializes writers in this process on mu first, so only one
// goroutine per process ever waits on the backend lock.
func (r *KVRepository) withLock(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, lockName, r.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock inventory: %w", err)
		}
		defer unlock()
	}
	return fn()
}

// loadItems reports found=false when the items key has never been written.
func (r *KVRepository) loadItems(ctx context.Context) (items []model.InventoryItem, found bool, err error) {
	data, err := r.store.Get(ctx, ItemsKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read items: %w", err)
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("%w: items: %v", model.ErrCorruptData, err)
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	return items, true, nil
}

// itemsOrSeed returns the stored items, or the starter catalog plus a flag
// telling the caller it still has to be written.
func (r *KVRepository) itemsOrSeed(ctx context.Context) ([]model.InventoryItem, bool, error) {
	items, found, err := r.loadItems(ctx)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return model.StarterCatalog(r.now()), true, nil
	}
	return items, false, nil
}

func (r *KVRepository) loadHistory(ctx context.Context) ([]model.InventoryTransaction, error) {
	data, err := r.store.Get(ctx, HistoryKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []model.InventoryTransaction{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var history []model.InventoryTransaction
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: history: %v", model.ErrCorruptData, err)
	}
	if history == nil {
		history = []model.InventoryTransaction{}
	}
	return history, nil
}

func (r *KVRepository) saveItems(ctx context.Context, items []model.InventoryItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, ItemsKey, data); err != nil {
		return fmt.Errorf("failed to write items: %w", err)
	}
	return nil
}

func (r *KVRepository) saveAll(ctx context.Context, items []model.InventoryItem, history []model.InventoryTransaction) error {
	itemsData, err := json.Marshal(items)
	if err != nil {
		return err
	}
	historyData, err := json.Marshal(history)
	if err != nil {
		return err
	}
	err = r.store.SetMulti(ctx, map[string][]byte{
		ItemsKey:   itemsData,
		HistoryKey: historyData,
	})
	if err != nil {
		return fmt.Errorf("failed to commit inventory: %w", err)
	}
	return nil
}

func (r *KVRepository) newTransaction(t dto.NewTransaction) model.InventoryTransaction {
	return model.InventoryTransaction{
		ID:        r.newID(),
		ItemID:    t.ItemID,
		ItemName:  t.ItemName,
		Amount:    t.Amount,
		Type:      t.Type,
		Date:      r.now(),
		Note:      t.Note,
		Reference: t.Reference,
	}
}

// GetAllItems seeds and persists the starter catalog on first access.
func (r *KVRepository) GetAllItems(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.withLock(ctx, func() error {
		var seeded bool
		var err error
		items, seeded, err = r.itemsOrSeed(ctx)
		if err != nil {
			return err
		}
		if seeded {
			return r.saveItems(ctx, items)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem prepends item and records its starting stock as a restock entry.
func (r *KVRepository) AddItem(ctx context.Context, item model.InventoryItem) ([]model.InventoryItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	var result []model.InventoryItem
	err := r.withLock(ctx, func() error {
		items, _, err := r.itemsOrSeed(ctx)
		if err != nil {
			return err
		}
		for _, existing := range items {
			if existing.ID == item.ID {
				return fmt.Errorf("%w: id %s", model.ErrDuplicateItem, item.ID)
			}
		}
		history, err := r.loadHistory(ctx)
		if err != nil {
			return err
		}

		item.LastUpdated = r.now()
		items = append([]model.InventoryItem{item}, items...)
		initial := r.newTransaction(dto.NewTransaction{
			ItemID:   item.ID,
			ItemName: item.Name,
			Amount:   item.Quantity,
			Type:     model.TransactionRestock,
			Note:     initialStockNote,
		})
		history = append([]model.InventoryTransaction{initial}, history...)

		if err := r.saveAll(ctx, items, history); err != nil {
			return err
		}
		result = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateItem merges patch into the item with the given id. Raw edits are not
// logged; stock movements should go through ApplyTransaction.
func (r *KVRepository) UpdateItem(ctx context.Context, id string, patch dto.ItemPatch) ([]model.InventoryItem, error) {
	var result []model.InventoryItem
	err := r.withLock(ctx, func() error {
		items, _, err := r.itemsOrSeed(ctx)
		if err != nil {
			return err
		}
		idx := indexOf(items, id)
		if idx < 0 {
			return fmt.Errorf("%w: id %s", model.ErrItemNotFound, id)
		}
		updated := patch.Apply(items[idx])
		updated.LastUpdated = r.now()
		if err := updated.Validate(); err != nil {
			return err
		}
		items[idx] = updated
		if err := r.saveItems(ctx, items); err != nil {
			return err
		}
		result = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteItem is idempotent. The item's transactions stay in the log.
func (r *KVRepository) DeleteItem(ctx context.Context, id string) ([]model.InventoryItem, error) {
	var result []model.InventoryItem
	err := r.withLock(ctx, func() error {
		items, _, err := r.itemsOrSeed(ctx)
		if err != nil {
			return err
		}
		kept := make([]model.InventoryItem, 0, len(items))
		for _, item := range items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		if err := r.saveItems(ctx, kept); err != nil {
			return err
		}
		result = kept
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *KVRepository) GetAllTransactions(ctx context.Context) ([]model.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadHistory(ctx)
}

// AddTransaction appends a log entry without touching stock levels.
func (r *KVRepository) AddTransaction(ctx context.Context, t dto.NewTransaction) (model.InventoryTransaction, error) {
	if err := t.Validate(); err != nil {
		return model.InventoryTransaction{}, err
	}

	var created model.InventoryTransaction
	err := r.withLock(ctx, func() error {
		history, err := r.loadHistory(ctx)
		if err != nil {
			return err
		}
		created = r.newTransaction(t)
		history = append([]model.InventoryTransaction{created}, history...)
		data, err := json.Marshal(history)
		if err != nil {
			return err
		}
		if err := r.store.Set(ctx, HistoryKey, data); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.InventoryTransaction{}, err
	}
	return created, nil
}

func (r *KVRepository) GetTransactionsByItem(ctx context.Context, itemID string) ([]model.InventoryTransaction, error) {
	history, err := r.GetAllTransactions(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.InventoryTransaction{}
	for _, t := range history {
		if t.ItemID == itemID {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetUsageStats returns usage entries dated within the trailing window.
func (r *KVRepository) GetUsageStats(ctx context.Context, days int) ([]model.InventoryTransaction, error) {
	if days <= 0 {
		days = DefaultUsageWindowDays
	}
	history, err := r.GetAllTransactions(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := r.now().AddDate(0, 0, -days)
	out := []model.InventoryTransaction{}
	for _, t := range history {
		if t.Type == model.TransactionUsage && !t.Date.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ApplyTransaction changes an item's stock and appends the matching log entry
// in a single SetMulti. Nothing is written when the result would be negative.
func (r *KVRepository) ApplyTransaction(ctx context.Context, change dto.StockChange) (model.InventoryItem, model.InventoryTransaction, error) {
	delta, err := change.Delta()
	if err != nil {
		return model.InventoryItem{}, model.InventoryTransaction{}, err
	}

	var item model.InventoryItem
	var created model.InventoryTransaction
	err = r.withLock(ctx, func() error {
		items, _, err := r.itemsOrSeed(ctx)
		if err != nil {
			return err
		}
		idx := indexOf(items, change.ItemID)
		if idx < 0 {
			return fmt.Errorf("%w: id %s", model.ErrItemNotFound, change.ItemID)
		}
		history, err := r.loadHistory(ctx)
		if err != nil {
			return err
		}
		if change.Reference != "" {
			for _, t := range history {
				if t.Reference == change.Reference {
					return fmt.Errorf("%w: reference %s", model.ErrDuplicateChange, change.Reference)
				}
			}
		}
		if delta > 0 && items[idx].Quantity > math.MaxInt-delta {
			return &model.ValidationError{Field: "amount", Reason: "quantity would overflow"}
		}
		newQuantity := items[idx].Quantity + delta
		if newQuantity < 0 {
			return fmt.Errorf("%w: %s has %d %s, cannot remove %d",
				model.ErrInsufficientStock, items[idx].Name, items[idx].Quantity, items[idx].Unit, -delta)
		}

		items[idx].Quantity = newQuantity
		items[idx].LastUpdated = r.now()
		created = r.newTransaction(dto.NewTransaction{
			ItemID:    items[idx].ID,
			ItemName:  items[idx].Name,
			Amount:    abs(delta),
			Type:      change.Type,
			Note:      change.Note,
			Reference: change.Reference,
		})
		history = append([]model.InventoryTransaction{created}, history...)

		if err := r.saveAll(ctx, items, history); err != nil {
			return err
		}
		item = items[idx]
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, model.InventoryTransaction{}, err
	}
	return item, created, nil
}

// Reset drops both collections; the next read seeds the starter catalog again.
func (r *KVRepository) Reset(ctx context.Context) error {
	return r.withLock(ctx, func() error {
		if err := r.store.Delete(ctx, ItemsKey, HistoryKey); err != nil {
			return fmt.Errorf("failed to reset inventory: %w", err)
		}
		return nil
	})
}

func indexOf(items []model.InventoryItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
