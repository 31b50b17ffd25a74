package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// DashboardStats backs the overview page.
type DashboardStats struct {
	TotalItems         int                          `json:"totalItems"`
	LowStock           int                          `json:"lowStock"`
	TotalValue         model.Money                  `json:"totalValue"`
	RecentTransactions []model.InventoryTransaction `json:"recentTransactions"`
}

type DailyUsage struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Usage int       `json:"usage"`
}

type ItemUsage struct {
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
	Unit     string `json:"unit"`
	Total    int    `json:"total"`
}

type Analytics struct {
	Days         int          `json:"days"`
	Daily        []DailyUsage `json:"daily"`
	TopConsumed  []ItemUsage  `json:"topConsumed"`
	RestockSpend model.Money  `json:"restockSpend"`
}
