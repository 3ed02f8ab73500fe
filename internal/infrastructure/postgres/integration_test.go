package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/internal/infrastructure/postgres"
)

// Requiere TEST_DATABASE_URL apuntando a una base desechable.
func getPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido, se omite la prueba de PostgreSQL")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Skipf("PostgreSQL no disponible: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("PostgreSQL no disponible: %v", err)
	}
	require.NoError(t, postgres.EnsureSchema(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

func newItem(t *testing.T, pool *pgxpool.Pool, min int64) *entity.Item {
	t.Helper()
	code := "IT-" + uuid.NewString()
	item := &entity.Item{
		ID:       uuid.NewString(),
		Name:     "Etanol 96%",
		Unit:     "ml",
		MinLevel: min,
		Barcode:  &code,
		Active:   true,
		Price:    decimal.RequireFromString("1.25"),
	}
	require.NoError(t, postgres.NewItemRepository(pool).Create(context.Background(), item))
	return item
}

func TestItemRepo_UpdateStockCAS(t *testing.T) {
	pool := getPool(t)
	ctx := context.Background()
	repo := postgres.NewItemRepository(pool)
	item := newItem(t, pool, 2)

	require.NoError(t, repo.UpdateStock(ctx, item.ID, 10, 0))
	assert.ErrorIs(t, repo.UpdateStock(ctx, item.ID, 5, 0), domain.ErrConflict)
	assert.ErrorIs(t, repo.UpdateStock(ctx, uuid.NewString(), 5, 0), domain.ErrItemNotFound)

	got, err := repo.GetActiveByBarcode(ctx, *item.Barcode)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.Stock)
	assert.True(t, item.Price.Equal(got.Price))
}

func TestTxRunner_RollbackKeepsLedgerAndStock(t *testing.T) {
	pool := getPool(t)
	ctx := context.Background()
	item := newItem(t, pool, 0)
	runner := postgres.NewTxRunner(pool)

	err := runner.Run(ctx, func(items repository.ItemRepository, ledger repository.TransactionRepository) error {
		if err := items.UpdateStock(ctx, item.ID, 4, 0); err != nil {
			return err
		}
		if err := ledger.Append(ctx, &entity.Transaction{ItemID: item.ID, Kind: entity.TransactionInbound, Delta: 4}); err != nil {
			return err
		}
		return domain.ErrConflict
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := postgres.NewItemRepository(pool).GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Stock)
	sum, err := postgres.NewTransactionRepository(pool).SumDeltas(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestAlertRepo_OpenAlertIsUnique(t *testing.T) {
	pool := getPool(t)
	ctx := context.Background()
	item := newItem(t, pool, 5)
	repo := postgres.NewAlertRepository(pool)

	first := &entity.Alert{ID: uuid.NewString(), ItemID: item.ID, Message: "bajo"}
	created, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Insert(ctx, &entity.Alert{ID: uuid.NewString(), ItemID: item.ID, Message: "bajo"})
	require.NoError(t, err)
	assert.False(t, created)

	changed, err := repo.MarkResolved(ctx, first.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.MarkResolved(ctx, first.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.MarkResolved(ctx, uuid.NewString(), time.Now())
	assert.ErrorIs(t, err, domain.ErrAlertNotFound)
}
