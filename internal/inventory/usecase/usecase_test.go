package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/kv/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/pkg/logger"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// setupUseCase returns a use case over an in-memory store. Setting *repoNow
// controls the date stamped on new transactions.
func setupUseCase(t *testing.T) (*inventoryUseCase, *time.Time) {
	t.Helper()
	repoNow := testNow
	repo := repository.NewKVRepository(memory.New(),
		repository.WithClock(func() time.Time { return repoNow }),
	)
	uc := &inventoryUseCase{
		repo:   repo,
		logger: logger.NewNop(),
		now:    func() time.Time { return testNow },
	}
	return uc, &repoNow
}

func names(items []model.InventoryItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func TestSearchItems(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"Thyme", "Basmati Rice", "Red Wine (Merlot)", "Fresh Tomatoes", "Chicken Breast"}},
		{"WINE", []string{"Red Wine (Merlot)"}},
		{"spices", []string{"Thyme"}},
		{"  rice ", []string{"Basmati Rice"}},
		{"dry goods", []string{"Basmati Rice"}},
		{"saffron", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			items, err := uc.SearchItems(ctx, tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(items))
		})
	}
}

func TestListLowStock(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	low, err := uc.ListLowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Wine (Merlot)"}, names(low))

	// Quantity equal to minStock counts as low.
	_, err = uc.AdjustStock(ctx, "4", -3)
	require.NoError(t, err)
	low, err = uc.ListLowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Wine (Merlot)", "Fresh Tomatoes"}, names(low))
}

func TestCreateItem(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	items, err := uc.CreateItem(ctx, &dto.CreateItemInput{
		Name:     "  Saffron ",
		Category: model.CategorySpices,
		Quantity: 3,
		Unit:     "g",
		MinStock: 1,
		Price:    decimal.NewFromInt(90000),
	})
	require.NoError(t, err)
	require.Len(t, items, 6)
	assert.Equal(t, "Saffron", items[0].Name)
	_, err = uuid.Parse(items[0].ID)
	assert.NoError(t, err)

	_, err = uc.CreateItem(ctx, &dto.CreateItemInput{ID: "1", Name: "Thyme again", Category: model.CategorySpices, Unit: "jars"})
	assert.ErrorIs(t, err, model.ErrDuplicateItem)

	_, err = uc.CreateItem(ctx, &dto.CreateItemInput{Name: "", Category: model.CategorySpices, Unit: "g"})
	assert.True(t, model.IsValidation(err))
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	item, err := uc.AdjustStock(ctx, "4", -3)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	item, err = uc.AdjustStock(ctx, "4", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	_, err = uc.AdjustStock(ctx, "4", -10)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	_, err = uc.AdjustStock(ctx, "4", 0)
	assert.True(t, model.IsValidation(err))

	txs, err := uc.ListItemTransactions(ctx, "4")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TransactionAdjustment, txs[0].Type)
	assert.Equal(t, 1, txs[0].Amount)
	assert.Equal(t, 3, txs[1].Amount)
	assert.Equal(t, "Manual adjustment", txs[1].Note)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	stats, err := uc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalItems)
	assert.Equal(t, 1, stats.LowStock)
	assert.Equal(t, "813000", stats.TotalValue.String())
	assert.Empty(t, stats.RecentTransactions)

	for i := 0; i < 7; i++ {
		_, _, err := uc.ApplyTransaction(ctx, dto.StockChange{ItemID: "1", Type: model.TransactionUsage, Amount: 1})
		require.NoError(t, err)
	}
	stats, err = uc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, stats.RecentTransactions, 5)
	assert.Equal(t, "804600", stats.TotalValue.String())
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	uc, repoNow := setupUseCase(t)

	apply := func(at time.Time, id string, typ model.TransactionType, amount int) {
		*repoNow = at
		_, _, err := uc.ApplyTransaction(ctx, dto.StockChange{ItemID: id, Type: typ, Amount: amount})
		require.NoError(t, err)
	}
	apply(time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), "2", model.TransactionUsage, 1)
	apply(time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC), "1", model.TransactionUsage, 5)
	apply(time.Date(2026, 3, 8, 11, 0, 0, 0, time.UTC), "1", model.TransactionRestock, 10)
	apply(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), "5", model.TransactionUsage, 3)
	apply(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), "1", model.TransactionUsage, 2)

	report, err := uc.Analytics(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, report.Days)
	require.Len(t, report.Daily, 7)
	assert.Equal(t, "Wed", report.Daily[0].Label)
	assert.Equal(t, "Tue", report.Daily[6].Label)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), report.Daily[0].Date)
	assert.Equal(t, 5, report.Daily[4].Usage)
	assert.Equal(t, 5, report.Daily[6].Usage)
	assert.Equal(t, 0, report.Daily[0].Usage)

	require.Len(t, report.TopConsumed, 2)
	assert.Equal(t, "Thyme", report.TopConsumed[0].ItemName)
	assert.Equal(t, 7, report.TopConsumed[0].Total)
	assert.Equal(t, "jars", report.TopConsumed[0].Unit)
	assert.Equal(t, "Chicken Breast", report.TopConsumed[1].ItemName)
	assert.Equal(t, 3, report.TopConsumed[1].Total)

	assert.Equal(t, "12000", report.RestockSpend.String())

	wide, err := uc.Analytics(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, wide.Daily, 30)
	assert.Len(t, wide.TopConsumed, 3)
}

func TestAnalyticsUsesOneWindow(t *testing.T) {
	ctx := context.Background()
	uc, repoNow := setupUseCase(t)

	// Inside now-7d but before the first daily bucket.
	*repoNow = time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	_, _, err := uc.ApplyTransaction(ctx, dto.StockChange{ItemID: "1", Type: model.TransactionUsage, Amount: 9})
	require.NoError(t, err)
	_, _, err = uc.ApplyTransaction(ctx, dto.StockChange{ItemID: "1", Type: model.TransactionRestock, Amount: 4})
	require.NoError(t, err)

	*repoNow = time.Date(2026, 3, 4, 0, 30, 0, 0, time.UTC)
	_, _, err = uc.ApplyTransaction(ctx, dto.StockChange{ItemID: "5", Type: model.TransactionUsage, Amount: 2})
	require.NoError(t, err)

	report, err := uc.Analytics(ctx, 7)
	require.NoError(t, err)

	dailyTotal := 0
	for _, d := range report.Daily {
		dailyTotal += d.Usage
	}
	topTotal := 0
	for _, u := range report.TopConsumed {
		topTotal += u.Total
	}
	assert.Equal(t, 2, dailyTotal)
	assert.Equal(t, dailyTotal, topTotal)
	assert.Equal(t, 2, report.Daily[0].Usage)
	require.Len(t, report.TopConsumed, 1)
	assert.Equal(t, "Chicken Breast", report.TopConsumed[0].ItemName)
	assert.True(t, report.RestockSpend.IsZero())
}

func TestAnalyticsRejectsOversizedWindow(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	for _, days := range []int{MaxAnalyticsDays + 1, 1 << 31} {
		_, err := uc.Analytics(ctx, days)
		assert.True(t, model.IsValidation(err), "days=%d", days)
	}

	report, err := uc.Analytics(ctx, MaxAnalyticsDays)
	require.NoError(t, err)
	assert.Len(t, report.Daily, MaxAnalyticsDays)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	_, err := uc.DeleteItem(ctx, "1")
	require.NoError(t, err)
	_, _, err = uc.ApplyTransaction(ctx, dto.StockChange{ItemID: "2", Type: model.TransactionRestock, Amount: 4})
	require.NoError(t, err)

	require.NoError(t, uc.Reset(ctx))

	items, err := uc.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 5)
	txs, err := uc.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
