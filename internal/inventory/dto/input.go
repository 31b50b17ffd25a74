package dto

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// ItemPatch carries the fields of an update. Nil fields are left unchanged.
type ItemPatch struct {
	Name     *string          `json:"name,omitempty"`
	Category *model.Category  `json:"category,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
	Unit     *string          `json:"unit,omitempty"`
	MinStock *int             `json:"minStock,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// Apply returns item with the patch merged in. The caller validates the result.
func (p ItemPatch) Apply(item model.InventoryItem) model.InventoryItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.MinStock != nil {
		item.MinStock = *p.MinStock
	}
	if p.Price != nil {
		item.Price = model.Money{Decimal: *p.Price}
	}
	return item
}

// NewTransaction is a log entry before the store assigns its id and date.
type NewTransaction struct {
	ItemID    string                `json:"itemId"`
	ItemName  string                `json:"itemName"`
	Amount    int                   `json:"amount"`
	Type      model.TransactionType `json:"type"`
	Note      string                `json:"note,omitempty"`
	Reference string                `json:"reference,omitempty"`
}

func (t NewTransaction) Validate() error {
	if !t.Type.Valid() {
		return &model.ValidationError{Field: "type", Reason: "unknown transaction type " + string(t.Type)}
	}
	if t.Amount < 0 {
		return &model.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	return nil
}

// StockChange is a confirmed use/restock/adjust action. Restock and usage take a
// positive magnitude; adjustment and correction take a signed delta.
//
// A non-empty Reference makes the change idempotent: a second change with the
// same reference is rejected with model.ErrDuplicateChange.
type StockChange struct {
	ItemID    string                `json:"itemId"`
	Type      model.TransactionType `json:"type"`
	Amount    int                   `json:"amount"`
	Note      string                `json:"note,omitempty"`
	Reference string                `json:"reference,omitempty"`
}

// Delta returns the signed quantity change the action applies.
func (c StockChange) Delta() (int, error) {
	switch {
	case !c.Type.Valid():
		return 0, &model.ValidationError{Field: "type", Reason: "unknown transaction type " + string(c.Type)}
	case c.Type.Signed():
		if c.Amount == 0 {
			return 0, &model.ValidationError{Field: "amount", Reason: "must not be zero"}
		}
		if c.Amount == math.MinInt {
			return 0, &model.ValidationError{Field: "amount", Reason: "out of range"}
		}
		return c.Amount, nil
	case c.Amount <= 0:
		return 0, &model.ValidationError{Field: "amount", Reason: "must be positive"}
	case c.Type == model.TransactionUsage:
		return -c.Amount, nil
	default:
		return c.Amount, nil
	}
}

type CreateItemInput struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Category model.Category  `json:"category"`
	Quantity int             `json:"quantity"`
	Unit     string          `json:"unit"`
	MinStock int             `json:"minStock"`
	Price    decimal.Decimal `json:"price"`
}
