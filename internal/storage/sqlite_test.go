package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florin-app/florin/internal/engine"
	"github.com/florin-app/florin/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "florin.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func testSnapshot() *engine.Snapshot {
	created := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	txDate := time.Date(2026, 6, 10, 12, 30, 0, 0, time.UTC)
	return &engine.Snapshot{
		ID:           "a4c3a778-9d8f-4d41-a5b8-42a6ee3c1e0a",
		CreatedAt:    created,
		Watermark:    txDate,
		HasWatermark: true,
		Transactions: []model.Transaction{
			{
				ID:           1,
				Seq:          1,
				Date:         txDate,
				Amount:       decimal.RequireFromString("123.45"),
				Type:         model.Deposit,
				ExternalIBAN: "NL39RABO0300065264",
				Description:  "salary",
				CategoryID:   1,
			},
			{
				ID:          2,
				Seq:         2,
				Date:        txDate.AddDate(0, 0, 1),
				Amount:      decimal.NewFromInt(50),
				Type:        model.Withdrawal,
				Description: "Allocation for saving goal 1",
				Internal:    true,
			},
		},
		Categories: []model.Category{{ID: 1, Name: "Income"}},
		Rules: []model.CategoryRule{
			{ID: 1, Description: "salary", Type: model.Deposit, CategoryID: 1, ApplyOnHistory: true},
		},
		Goals: []model.SavingGoal{
			{
				ID:                 1,
				Name:               "Bike",
				Goal:               decimal.NewFromInt(500),
				SavePerMonth:       decimal.NewFromInt(50),
				MinBalanceRequired: decimal.NewFromInt(100),
				Balance:            decimal.NewFromInt(50),
				EffectiveFrom:      txDate,
				Notified:           false,
			},
		},
		Requests: []model.PaymentRequest{
			{
				ID:               1,
				Description:      "split dinner",
				DueDate:          txDate.AddDate(0, 1, 0),
				Amount:           decimal.RequireFromString("123.45"),
				NumberOfRequests: 2,
				Filled:           false,
				MatchedIDs:       []int64{1},
			},
		},
		MessageRules: []model.MessageRule{
			{ID: 1, Type: model.MessageWarning, Value: decimal.NewFromInt(200), CategoryID: 1},
		},
		Messages: []model.Message{
			{ID: 1, Date: txDate, Type: model.MessageWarning, Text: "Balance dropped below zero!", Read: true},
		},
		Counters: engine.Counters{Tx: 2, Seq: 2, Category: 1, Rule: 1, Goal: 1, Request: 1, MessageRule: 1, Message: 1},
	}
}

func TestSQLiteStore_SaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, store.SaveSession(ctx, snap))

	loaded, err := store.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, snap.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(snap.CreatedAt))
	assert.True(t, got.HasWatermark)
	assert.True(t, got.Watermark.Equal(snap.Watermark))
	assert.Equal(t, snap.Counters, got.Counters)

	require.Len(t, got.Transactions, 2)
	assert.True(t, got.Transactions[0].Amount.Equal(snap.Transactions[0].Amount))
	assert.Equal(t, snap.Transactions[0].ExternalIBAN, got.Transactions[0].ExternalIBAN)
	assert.True(t, got.Transactions[1].Internal)

	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Income", got.Categories[0].Name)

	require.Len(t, got.Rules, 1)
	assert.True(t, got.Rules[0].ApplyOnHistory)

	require.Len(t, got.Goals, 1)
	assert.True(t, got.Goals[0].Balance.Equal(snap.Goals[0].Balance))
	assert.True(t, got.Goals[0].EffectiveFrom.Equal(snap.Goals[0].EffectiveFrom))

	require.Len(t, got.Requests, 1)
	assert.Equal(t, []int64{1}, got.Requests[0].MatchedIDs)
	assert.True(t, got.Requests[0].Amount.Equal(snap.Requests[0].Amount))

	require.Len(t, got.MessageRules, 1)
	assert.True(t, got.MessageRules[0].Value.Equal(snap.MessageRules[0].Value))

	require.Len(t, got.Messages, 1)
	assert.True(t, got.Messages[0].Read)
	assert.Equal(t, "Balance dropped below zero!", got.Messages[0].Text)
}

func TestSQLiteStore_SaveReplacesChildRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, store.SaveSession(ctx, snap))

	// Shrink the snapshot: the re-save must replace, not accumulate.
	snap.Transactions = snap.Transactions[:1]
	snap.Requests[0].MatchedIDs = nil
	require.NoError(t, store.SaveSession(ctx, snap))

	loaded, err := store.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Len(t, loaded[0].Transactions, 1)
	assert.Empty(t, loaded[0].Requests[0].MatchedIDs)
}

func TestSQLiteStore_MultipleSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testSnapshot()
	b := testSnapshot()
	b.ID = "b7e6f1aa-0c4d-4f25-8f7e-6f3b1d2c9e44"
	b.Transactions = nil

	require.NoError(t, store.SaveSession(ctx, a))
	require.NoError(t, store.SaveSession(ctx, b))

	loaded, err := store.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]*engine.Snapshot{loaded[0].ID: loaded[0], loaded[1].ID: loaded[1]}
	assert.Len(t, byID[a.ID].Transactions, 2)
	assert.Empty(t, byID[b.ID].Transactions)
}

func TestSQLiteStore_NoWatermark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	snap := testSnapshot()
	snap.HasWatermark = false
	snap.Watermark = time.Time{}

	require.NoError(t, store.SaveSession(ctx, snap))

	loaded, err := store.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.False(t, loaded[0].HasWatermark)
	assert.True(t, loaded[0].Watermark.IsZero())
}

func TestSQLiteStore_ValidatesInput(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveSession(context.Background(), nil)
	require.Error(t, err)

	snap := testSnapshot()
	snap.ID = ""
	err = store.SaveSession(context.Background(), snap)
	require.Error(t, err)
}
