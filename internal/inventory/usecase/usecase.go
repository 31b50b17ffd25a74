package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/pkg/logger"
)

const (
	defaultAnalyticsDays = 7
	MaxAnalyticsDays     = 365
	recentTransactions   = 5
	topConsumedLimit     = 5
	manualAdjustNote     = "Manual adjustment"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	logger logger.ZapLogger
	now    func() time.Time
}

func NewInventoryUseCase(repo inventory.Repository, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *inventoryUseCase) ListItems(ctx context.Context) ([]model.InventoryItem, error) {
	return uc.repo.GetAllItems(ctx)
}

// SearchItems matches term against name and category, ignoring case.
func (uc *inventoryUseCase) SearchItems(ctx context.Context, term string) ([]model.InventoryItem, error) {
	items, err := uc.repo.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items, nil
	}
	out := []model.InventoryItem{}
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), term) ||
			strings.Contains(strings.ToLower(string(item.Category)), term) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context) ([]model.InventoryItem, error) {
	items, err := uc.repo.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.InventoryItem{}
	for _, item := range items {
		if item.LowStock() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (uc *inventoryUseCase) CreateItem(ctx context.Context, input *dto.CreateItemInput) ([]model.InventoryItem, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.New().String()
	}
	item := model.InventoryItem{
		ID:       id,
		Name:     strings.TrimSpace(input.Name),
		Category: input.Category,
		Quantity: input.Quantity,
		Unit:     strings.TrimSpace(input.Unit),
		MinStock: input.MinStock,
		Price:    model.Money{Decimal: input.Price},
	}

	items, err := uc.repo.AddItem(ctx, item)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("inventory item added",
		zap.String("item_id", item.ID),
		zap.String("name", item.Name),
		zap.Int("quantity", item.Quantity),
	)
	return items, nil
}

func (uc *inventoryUseCase) UpdateItem(ctx context.Context, id string, patch dto.ItemPatch) ([]model.InventoryItem, error) {
	items, err := uc.repo.UpdateItem(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("inventory item updated", zap.String("item_id", id))
	return items, nil
}

func (uc *inventoryUseCase) DeleteItem(ctx context.Context, id string) ([]model.InventoryItem, error) {
	items, err := uc.repo.DeleteItem(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("inventory item deleted", zap.String("item_id", id))
	return items, nil
}

func (uc *inventoryUseCase) ApplyTransaction(ctx context.Context, change dto.StockChange) (model.InventoryItem, model.InventoryTransaction, error) {
	item, tx, err := uc.repo.ApplyTransaction(ctx, change)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientStock) {
			uc.logger.Warn("stock change rejected",
				zap.String("item_id", change.ItemID),
				zap.String("type", string(change.Type)),
				zap.Int("amount", change.Amount),
				zap.Error(err),
			)
		}
		return model.InventoryItem{}, model.InventoryTransaction{}, err
	}
	uc.logger.Info("stock changed",
		zap.String("item_id", item.ID),
		zap.String("type", string(tx.Type)),
		zap.Int("amount", tx.Amount),
		zap.Int("quantity", item.Quantity),
		zap.Bool("low_stock", item.LowStock()),
	)
	return item, tx, nil
}

// AdjustStock backs the +/- controls of the inventory list.
func (uc *inventoryUseCase) AdjustStock(ctx context.Context, id string, delta int) (model.InventoryItem, error) {
	item, _, err := uc.ApplyTransaction(ctx, dto.StockChange{
		ItemID: id,
		Type:   model.TransactionAdjustment,
		Amount: delta,
		Note:   manualAdjustNote,
	})
	return item, err
}

func (uc *inventoryUseCase) ListTransactions(ctx context.Context) ([]model.InventoryTransaction, error) {
	return uc.repo.GetAllTransactions(ctx)
}

func (uc *inventoryUseCase) ListItemTransactions(ctx context.Context, itemID string) ([]model.InventoryTransaction, error) {
	return uc.repo.GetTransactionsByItem(ctx, itemID)
}

func (uc *inventoryUseCase) UsageStats(ctx context.Context, days int) ([]model.InventoryTransaction, error) {
	return uc.repo.GetUsageStats(ctx, days)
}

func (uc *inventoryUseCase) Dashboard(ctx context.Context) (*dto.DashboardStats, error) {
	items, err := uc.repo.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	history, err := uc.repo.GetAllTransactions(ctx)
	if err != nil {
		return nil, err
	}

	stats := &dto.DashboardStats{
		TotalItems: len(items),
		TotalValue: model.Money{Decimal: decimal.Zero},
	}
	for _, item := range items {
		if item.LowStock() {
			stats.LowStock++
		}
		stats.TotalValue.Decimal = stats.TotalValue.Add(item.StockValue())
	}
	if len(history) > recentTransactions {
		history = history[:recentTransactions]
	}
	stats.RecentTransactions = history
	return stats, nil
}

// Analytics summarises usage and restock spend over the trailing window of
// whole days: today plus the days-1 calendar days before it. Every aggregate
// uses the same window. days above MaxAnalyticsDays is rejected.
func (uc *inventoryUseCase) Analytics(ctx context.Context, days int) (*dto.Analytics, error) {
	if days <= 0 {
		days = defaultAnalyticsDays
	}
	if days > MaxAnalyticsDays {
		return nil, &model.ValidationError{Field: "days", Reason: fmt.Sprintf("must be at most %d", MaxAnalyticsDays)}
	}
	items, err := uc.repo.GetAllItems(ctx)
	if err != nil {
		return nil, err
	}
	history, err := uc.repo.GetAllTransactions(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.InventoryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	now := uc.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	first := today.AddDate(0, 0, -(days - 1))

	daily := make([]dto.DailyUsage, days)
	for i := range daily {
		day := first.AddDate(0, 0, i)
		daily[i] = dto.DailyUsage{Date: day, Label: day.Weekday().String()[:3]}
	}

	totals := map[string]*dto.ItemUsage{}
	spend := decimal.Zero
	for _, t := range history {
		if t.Date.Before(first) {
			continue
		}
		idx := int(t.Date.In(now.Location()).Sub(first).Hours() / 24)
		if idx >= days {
			continue
		}
		switch t.Type {
		case model.TransactionUsage:
			daily[idx].Usage += t.Amount
			u, ok := totals[t.ItemID]
			if !ok {
				u = &dto.ItemUsage{ItemID: t.ItemID, ItemName: t.ItemName}
				if item, found := byID[t.ItemID]; found {
					u.Unit = item.Unit
				}
				totals[t.ItemID] = u
			}
			u.Total += t.Amount
		case model.TransactionRestock:
			if item, found := byID[t.ItemID]; found {
				spend = spend.Add(item.Price.Mul(decimal.NewFromInt(int64(t.Amount))))
			}
		}
	}

	top := make([]dto.ItemUsage, 0, len(totals))
	for _, u := range totals {
		top = append(top, *u)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Total != top[j].Total {
			return top[i].Total > top[j].Total
		}
		return top[i].ItemName < top[j].ItemName
	})
	if len(top) > topConsumedLimit {
		top = top[:topConsumedLimit]
	}

	return &dto.Analytics{
		Days:         days,
		Daily:        daily,
		TopConsumed:  top,
		RestockSpend: model.Money{Decimal: spend},
	}, nil
}

func (uc *inventoryUseCase) Reset(ctx context.Context) error {
	if err := uc.repo.Reset(ctx); err != nil {
		return err
	}
	uc.logger.Warn("inventory data reset")
	return nil
}
