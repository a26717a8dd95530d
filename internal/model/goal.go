package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/common"
)

// SavingGoal accumulates a monthly allocation until Goal is reached.
//
// Balance is derived state: the simulator recomputes it from the ledger and
// it is never directly settable after creation. EffectiveFrom records the
// ledger frontier at creation time; the goal only participates in month
// boundaries strictly after that instant. Notified tracks the one-time
// completion message so re-simulation never emits it twice.
type SavingGoal struct {
	EffectiveFrom      time.Time
	Name               string
	Goal               decimal.Decimal
	SavePerMonth       decimal.Decimal
	MinBalanceRequired decimal.Decimal
	Balance            decimal.Decimal
	ID                 int64
	Notified           bool
}

// Complete reports whether the goal has reached its target amount.
func (g *SavingGoal) Complete() bool {
	return g.Balance.GreaterThanOrEqual(g.Goal)
}

// Validate checks the goal against the input contract.
func (g *SavingGoal) Validate() error {
	if g.Name == "" {
		return common.NewValidationError("name", "must not be empty")
	}
	if !g.Goal.IsPositive() {
		return common.NewValidationError("goal", "must be greater than zero")
	}
	if g.SavePerMonth.IsNegative() {
		return common.NewValidationError("savePerMonth", "must not be negative")
	}
	if g.MinBalanceRequired.IsNegative() {
		return common.NewValidationError("minBalanceRequired", "must not be negative")
	}
	return nil
}
