package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	ListItems(ctx context.Context) ([]model.InventoryItem, error)
	SearchItems(ctx context.Context, term string) ([]model.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]model.InventoryItem, error)
	CreateItem(ctx context.Context, input *dto.CreateItemInput) ([]model.InventoryItem, error)
	UpdateItem(ctx context.Context, id string, patch dto.ItemPatch) ([]model.InventoryItem, error)
	DeleteItem(ctx context.Context, id string) ([]model.InventoryItem, error)

	ApplyTransaction(ctx context.Context, change dto.StockChange) (model.InventoryItem, model.InventoryTransaction, error)
	AdjustStock(ctx context.Context, id string, delta int) (model.InventoryItem, error)

	ListTransactions(ctx context.Context) ([]model.InventoryTransaction, error)
	ListItemTransactions(ctx context.Context, itemID string) ([]model.InventoryTransaction, error)
	UsageStats(ctx context.Context, days int) ([]model.InventoryTransaction, error)

	Dashboard(ctx context.Context) (*dto.DashboardStats, error)
	Analytics(ctx context.Context, days int) (*dto.Analytics, error)
	Reset(ctx context.Context) error
}
