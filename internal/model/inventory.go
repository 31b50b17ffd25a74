package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount that is stored as a bare JSON number.
type Money struct {
	decimal.Decimal
}

func NewMoney(v int64) Money {
	return Money{decimal.NewFromInt(v)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}

type InventoryItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	MinStock    int       `json:"minStock"`
	Price       Money     `json:"price"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// LowStock reports whether the item has reached its reorder threshold.
func (i InventoryItem) LowStock() bool {
	return i.Quantity <= i.MinStock
}

func (i InventoryItem) StockValue() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i InventoryItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(i.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !i.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", i.Category)}
	}
	if i.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if i.MinStock < 0 {
		return &ValidationError{Field: "minStock", Reason: "must not be negative"}
	}
	if i.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return nil
}

type TransactionType string

const (
	TransactionRestock    TransactionType = "restock"
	TransactionUsage      TransactionType = "usage"
	TransactionAdjustment TransactionType = "adjustment"
	TransactionCorrection TransactionType = "correction"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionRestock, TransactionUsage, TransactionAdjustment, TransactionCorrection:
		return true
	}
	return false
}

// Signed reports whether amounts of this type carry their own direction.
func (t TransactionType) Signed() bool {
	return t == TransactionAdjustment || t == TransactionCorrection
}

type InventoryTransaction struct {
	ID       string          `json:"id"`
	ItemID   string          `json:"itemId"`
	ItemName string          `json:"itemName"`
	Amount   int             `json:"amount"`
	Type     TransactionType `json:"type"`
	Date     time.Time       `json:"date"`
	Note     string          `json:"note,omitempty"`
	// Reference is an optional caller-supplied key, such as a usage event id.
	// Stock changes reuse it to detect redelivery.
	Reference string `json:"reference,omitempty"`
}

// StarterCatalog returns the items written on first access to an empty store.
func StarterCatalog(now time.Time) []InventoryItem {
	return []InventoryItem{
		{ID: "1", Name: "Thyme", Category: CategorySpices, Quantity: 50, Unit: "jars", MinStock: 10, Price: NewMoney(1200), LastUpdated: now},
		{ID: "2", Name: "Basmati Rice", Category: CategoryDryGoods, Quantity: 12, Unit: "bags", MinStock: 5, Price: NewMoney(45000), LastUpdated: now},
		{ID: "3", Name: "Red Wine (Merlot)", Category: CategoryWines, Quantity: 8, Unit: "bottles", MinStock: 12, Price: NewMoney(8500), LastUpdated: now},
		{ID: "4", Name: "Fresh Tomatoes", Category: CategoryVegetables, Quantity: 5, Unit: "crates", MinStock: 2, Price: NewMoney(15000), LastUpdated: now},
		{ID: "5", Name: "Chicken Breast", Category: CategoryMeat, Quantity: 20, Unit: "kg", MinStock: 15, Price: NewMoney(3500), LastUpdated: now},
	}
}
