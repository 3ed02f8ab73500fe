package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/infrastructure/memory"
)

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	code := "LAB-00001"
	require.NoError(t, store.AddItem(entity.Item{
		ID: "etanol", Name: "Etanol", Unit: "ml", Stock: 4, MinLevel: 5,
		Barcode: &code, Active: true, Price: decimal.RequireFromString("0.50"),
	}))
	require.NoError(t, store.AddItem(entity.Item{
		ID: "guantes", Name: "Guantes", Unit: "pares", Stock: 100, MinLevel: 10,
		Active: true, Price: decimal.RequireFromString("0.10"),
	}))
	_, err := store.Insert(ctx, &entity.Alert{ID: "a1", ItemID: "etanol", Message: "bajo"})
	require.NoError(t, err)

	uc := NewDashboardUseCase(store, store, store)
	uc.now = func() time.Time { return time.Now() }

	got, err := uc.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ActiveItems)
	assert.Equal(t, 1, got.LowStockItems)
	assert.Equal(t, 1, got.OpenAlerts)
	assert.Equal(t, 2, got.MonthlyTransactions)
	assert.True(t, decimal.RequireFromString("12").Equal(got.StockValue))
	assert.Len(t, got.RecentActivity, 2)
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "Febrero 2026", monthLabel(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Diciembre 2025", monthLabel(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}
