package engine

import (
	"fmt"
	"time"

	"github.com/florin-app/florin/internal/model"
)

type requestEvent struct {
	request *model.PaymentRequest
	ts      time.Time
	expired bool
}

// rematch rebuilds every payment request's matched set by walking the ledger
// deposits in order. Each deposit is consumed by at most the first unfilled
// request (ascending id) whose amount equals it exactly and whose due date
// has not passed at the deposit's timestamp. Withdrawals and internal entries
// never match.
//
// Expiry is detected lazily: a request raises its expiry event once the
// ledger frontier moves past its due date without the request being filled.
// There is no background clock.
func (s *Session) rematch() []requestEvent {
	filledAt := make(map[int64]time.Time, len(s.requests))
	for _, r := range s.requests {
		r.MatchedIDs = nil
		r.Filled = false
	}

	for _, t := range s.ledger.entries {
		if t.Internal || t.Type != model.Deposit {
			continue
		}
		for _, r := range s.requests {
			if r.Filled || len(r.MatchedIDs) >= r.NumberOfRequests {
				continue
			}
			if !t.Amount.Equal(r.Amount) || t.Date.After(r.DueDate) {
				continue
			}
			r.MatchedIDs = append(r.MatchedIDs, t.ID)
			if len(r.MatchedIDs) == r.NumberOfRequests {
				r.Filled = true
				filledAt[r.ID] = t.Date
			}
			break
		}
	}

	var events []requestEvent
	for _, r := range s.requests {
		if r.Filled && !r.FillNotified {
			r.FillNotified = true
			events = append(events, requestEvent{request: r, ts: filledAt[r.ID]})
		}
	}

	if frontier, ok := s.ledger.frontier(); ok {
		for _, r := range s.requests {
			if !r.Filled && !r.ExpiryNotified && frontier.After(r.DueDate) {
				r.ExpiryNotified = true
				events = append(events, requestEvent{request: r, ts: frontier, expired: true})
			}
		}
	}
	return events
}

func requestFilledText(id int64) string {
	return fmt.Sprintf("Payment request with id %d filled!", id)
}

func requestExpiredText(id int64) string {
	return fmt.Sprintf("Payment request with id %d has not been filled on time!", id)
}
