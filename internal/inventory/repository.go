package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type Repository interface {
	// Items
	GetAllItems(ctx context.Context) ([]model.InventoryItem, error)
	AddItem(ctx context.Context, item model.InventoryItem) ([]model.InventoryItem, error)
	UpdateItem(ctx context.Context, id string, patch dto.ItemPatch) ([]model.InventoryItem, error)
	DeleteItem(ctx context.Context, id string) ([]model.InventoryItem, error)

	// History
	GetAllTransactions(ctx context.Context) ([]model.InventoryTransaction, error)
	AddTransaction(ctx context.Context, t dto.NewTransaction) (model.InventoryTransaction, error)
	GetTransactionsByItem(ctx context.Context, itemID string) ([]model.InventoryTransaction, error)
	GetUsageStats(ctx context.Context, days int) ([]model.InventoryTransaction, error)

	// Stock change and its audit entry in one commit
	ApplyTransaction(ctx context.Context, change dto.StockChange) (model.InventoryItem, model.InventoryTransaction, error)

	Reset(ctx context.Context) error
}
