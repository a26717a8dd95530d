package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/common"
	"github.com/florin-app/florin/internal/model"
)

func TestCandlestickHistory_DepositOneIntervalAgo(t *testing.T) {
	e, sid := testEngine(t)
	mustApply(t, e, sid, deposit(testNow.AddDate(0, 0, -1), "100"))

	candles, err := e.CandlestickHistory(context.Background(), sid, "day", 2)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}

	first := candles[0]
	if !first.Open.Equal(decimal.Zero) || !first.Close.Equal(decimal.NewFromInt(100)) {
		t.Errorf("first candle open/close = %s/%s, want 0/100", first.Open, first.Close)
	}
	if !first.High.Equal(decimal.NewFromInt(100)) || !first.Low.Equal(decimal.Zero) {
		t.Errorf("first candle high/low = %s/%s, want 100/0", first.High, first.Low)
	}
	if !first.Volume.Equal(decimal.NewFromInt(100)) {
		t.Errorf("first candle volume = %s, want 100", first.Volume)
	}

	second := candles[1]
	for _, v := range []decimal.Decimal{second.Open, second.Close, second.High, second.Low} {
		if !v.Equal(decimal.NewFromInt(100)) {
			t.Errorf("second candle value = %s, want 100 throughout", v)
		}
	}
	if !second.Volume.Equal(decimal.Zero) {
		t.Errorf("second candle volume = %s, want 0", second.Volume)
	}
}

func TestCandlestickHistory_EmptyLedger(t *testing.T) {
	e, sid := testEngine(t)

	candles, err := e.CandlestickHistory(context.Background(), sid, "month", 3)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3", len(candles))
	}
	for i, c := range candles {
		if !c.Open.Equal(decimal.Zero) || !c.Close.Equal(decimal.Zero) || !c.Volume.Equal(decimal.Zero) {
			t.Errorf("candle %d not flat zero: %+v", i, c)
		}
	}
}

func TestCandlestickHistory_WithdrawalLowersLow(t *testing.T) {
	e, sid := testEngine(t)
	mustApply(t, e, sid, deposit(testNow.Add(-4*time.Hour), "100"))
	mustApply(t, e, sid, withdrawal(testNow.Add(-3*time.Hour), "60"))
	mustApply(t, e, sid, deposit(testNow.Add(-2*time.Hour), "10"))

	candles, err := e.CandlestickHistory(context.Background(), sid, "day", 1)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	c := candles[0]
	if !c.High.Equal(decimal.NewFromInt(100)) {
		t.Errorf("high = %s, want 100", c.High)
	}
	if !c.Low.Equal(decimal.Zero) {
		t.Errorf("low = %s, want 0 (seeded from open)", c.Low)
	}
	if !c.Close.Equal(decimal.NewFromInt(50)) {
		t.Errorf("close = %s, want 50", c.Close)
	}
	// Volume is total movement, unsigned.
	if !c.Volume.Equal(decimal.NewFromInt(170)) {
		t.Errorf("volume = %s, want 170", c.Volume)
	}
}

func TestCandlestickHistory_BackdatedInsertChangesHistory(t *testing.T) {
	e, sid := testEngine(t)
	mustApply(t, e, sid, deposit(testNow, "50"))

	before, err := e.CandlestickHistory(context.Background(), sid, "day", 3)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	if !before[0].Close.Equal(decimal.Zero) {
		t.Fatalf("oldest candle close = %s, want 0 before backdated insert", before[0].Close)
	}

	// Two days back, before the oldest bucket's entries.
	mustApply(t, e, sid, deposit(testNow.AddDate(0, 0, -2), "200"))

	after, err := e.CandlestickHistory(context.Background(), sid, "day", 3)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	if !after[0].Close.Equal(decimal.NewFromInt(200)) {
		t.Errorf("oldest candle close = %s, want 200 after backdated insert", after[0].Close)
	}
	if !after[2].Close.Equal(decimal.NewFromInt(250)) {
		t.Errorf("newest candle close = %s, want 250", after[2].Close)
	}
}

func TestCandlestickHistory_CountClamped(t *testing.T) {
	e, sid := testEngine(t)

	low, err := e.CandlestickHistory(context.Background(), sid, "day", 0)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	if len(low) != 1 {
		t.Errorf("count 0 returned %d candles, want 1", len(low))
	}

	high, err := e.CandlestickHistory(context.Background(), sid, "day", 500)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	if len(high) != 200 {
		t.Errorf("count 500 returned %d candles, want 200", len(high))
	}
}

func TestCandlestickHistory_InvalidInterval(t *testing.T) {
	e, sid := testEngine(t)
	_, err := e.CandlestickHistory(context.Background(), sid, "fortnight", 2)
	if !errors.Is(err, common.ErrInvalidInterval) {
		t.Errorf("error = %v, want ErrInvalidInterval", err)
	}
}

func TestCandlestickHistory_IncludesGoalAllocations(t *testing.T) {
	e, sid := testEngine(t)
	ctx := context.Background()

	// Deposit in April, frontier in May: one boundary (May 1) gets replayed.
	mustApply(t, e, sid, deposit(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), "1000"))
	if _, err := e.CreateSavingGoal(ctx, sid, model.SavingGoal{
		Name:         "Bike",
		Goal:         decimal.NewFromInt(500),
		SavePerMonth: decimal.NewFromInt(200),
	}); err != nil {
		t.Fatalf("CreateSavingGoal() error = %v", err)
	}
	mustApply(t, e, sid, deposit(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), "50"))

	candles, err := e.CandlestickHistory(ctx, sid, "month", 2)
	if err != nil {
		t.Fatalf("CandlestickHistory() error = %v", err)
	}
	// May: 1000 - 200 (allocation) + 50 = 850 at close... June bucket carries it.
	last := candles[len(candles)-1]
	if !last.Close.Equal(decimal.NewFromInt(850)) {
		t.Errorf("latest close = %s, want 850 (allocation included)", last.Close)
	}
}
