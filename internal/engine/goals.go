package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/model"
)

// savingsIBAN marks internal allocation entries in the ledger.
const savingsIBAN = "SAVINGS"

type goalEvent struct {
	goal     *model.SavingGoal
	boundary time.Time
}

// resimulate rebuilds every goal's derived balance from the ledger. All
// internal allocation entries are discarded and the month boundaries between
// the first transaction and the ledger frontier are replayed in order: money
// available at a boundary depends on every earlier transaction, so a
// backdated insert invalidates everything downstream of it.
//
// Within one boundary, goals draw from a shared pool in creation order; a
// goal allocates min(savePerMonth, goal - balance) when the pool is at least
// minBalanceRequired. Returned events are the one-time goal completions.
func (s *Session) resimulate() []goalEvent {
	s.ledger.dropInternal()
	for _, g := range s.goals {
		g.Balance = decimal.Zero
	}

	first := s.ledger.first()
	if first == nil || len(s.goals) == 0 {
		return nil
	}
	frontier, ok := s.ledger.frontier()
	if !ok {
		return nil
	}

	var events []goalEvent
	for b := monthBoundaryAfter(first.Date); !b.After(frontier); b = b.AddDate(0, 1, 0) {
		available := s.ledger.balanceBefore(b)
		for _, g := range s.goals {
			if !g.EffectiveFrom.Before(b) || g.Complete() {
				continue
			}
			if available.LessThan(g.MinBalanceRequired) {
				continue
			}
			allocation := decimal.Min(g.SavePerMonth, g.Goal.Sub(g.Balance))
			if !allocation.IsPositive() {
				continue
			}
			g.Balance = g.Balance.Add(allocation)
			available = available.Sub(allocation)
			s.postAllocation(g, allocation, b)

			if g.Complete() && !g.Notified {
				g.Notified = true
				events = append(events, goalEvent{goal: g, boundary: b})
			}
		}
	}
	return events
}

// postAllocation writes the internal withdrawal that makes an allocation
// visible to the balance aggregator and to later goals' availability checks.
func (s *Session) postAllocation(g *model.SavingGoal, amount decimal.Decimal, boundary time.Time) {
	s.ledger.insert(&model.Transaction{
		ID:           s.nextTxID(),
		Seq:          s.nextSeq(),
		Date:         boundary,
		Amount:       amount,
		Type:         model.Withdrawal,
		ExternalIBAN: savingsIBAN,
		Description:  fmt.Sprintf("Allocation for saving goal %d", g.ID),
		Internal:     true,
	})
}

// monthBoundaryAfter returns the first calendar month start strictly after t.
func monthBoundaryAfter(t time.Time) time.Time {
	t = t.UTC()
	b := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !b.After(t) {
		b = b.AddDate(0, 1, 0)
	}
	return b
}

func goalFilledText(id int64) string {
	return fmt.Sprintf("Saving goal with id %d has been filled!", id)
}
