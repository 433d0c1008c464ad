package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/paper_dashboard/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSQLiteStore_Account(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetAccount(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	now := time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAccount(ctx, &domain.AccountSnapshot{
		Name:           "paper",
		InitialCapital: dec("100000"),
		CurrentCapital: dec("95000.5"),
		RealizedProfit: dec("120"),
		TotalTrades:    3,
		WinningTrades:  2,
		UpdatedAt:      now,
	}))

	a, err := store.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultAccountID, a.ID)
	assert.True(t, a.CurrentCapital.Equal(dec("95000.5")))
	assert.True(t, a.WinRate.Equal(dec("66.67")), "win rate %s", a.WinRate)
	assert.True(t, a.UpdatedAt.Equal(now))
}

func TestSQLiteStore_Positions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePosition(ctx, &domain.Position{Symbol: "B", Quantity: 100, CostPrice: dec("10.5")}))
	require.NoError(t, store.SavePosition(ctx, &domain.Position{Symbol: "A", Quantity: 200, CostPrice: dec("3")}))
	require.NoError(t, store.SavePosition(ctx, &domain.Position{Symbol: "B", Quantity: 300, CostPrice: dec("11")}))

	positions, err := store.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "A", positions[0].Symbol)
	assert.Equal(t, int64(300), positions[1].Quantity)

	require.NoError(t, store.DeletePosition(ctx, "A"))
	_, err = store.GetPosition(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Trades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.SaveTrade(ctx, &domain.TradeRecord{
			ID: id, Symbol: "X", Side: domain.SideBuy, Quantity: 100,
			Price: dec("10"), Amount: dec("1000"), CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.ListTrades(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r3", records[0].ID)
	assert.Equal(t, domain.SideBuy, records[0].Side)
	assert.True(t, records[1].Amount.Equal(dec("1000")))
}

func TestSQLiteStore_Quotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveQuote(ctx, &domain.Quote{Symbol: "X", CurrentPrice: dec("10")}))
	require.NoError(t, store.SaveQuote(ctx, &domain.Quote{Symbol: "Y", CurrentPrice: dec("20")}))
	require.NoError(t, store.SaveQuote(ctx, &domain.Quote{Symbol: "X", CurrentPrice: dec("11")}))

	quotes, err := store.GetQuotes(ctx, []string{"X", "Z"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.True(t, quotes["X"].CurrentPrice.Equal(dec("11")))
	assert.True(t, quotes["X"].ChangePercent.Equal(dec("10")), "change %s", quotes["X"].ChangePercent)

	require.NoError(t, store.RollPrevClose(ctx))
	all, err := store.ListQuotes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].ChangePercent.IsZero())

	empty, err := store.GetQuotes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_WithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx *SQLiteStore) error {
		require.NoError(t, tx.SavePosition(ctx, &domain.Position{Symbol: "X", Quantity: 1, CostPrice: dec("1")}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetPosition(ctx, "X")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "sandbox.db?_busy_timeout=5000", dsn("sandbox.db"))
	assert.Equal(t, "file:sandbox.db?cache=shared&_busy_timeout=5000", dsn("file:sandbox.db?cache=shared"))
}

func TestSQLiteStore_FileBusyTimeout(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sandbox.db"))
	require.NoError(t, err)
	defer store.Close()

	var timeout int
	require.NoError(t, store.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, busyTimeoutMs, timeout)
}
