package engine

import (
	"time"

	"github.com/florin-app/florin/internal/model"
)

// Snapshot is the full persistable state of one session: every entity
// collection, the id counters and the notification watermark. Derived state
// (goal balances, internal allocations, matched sets) is included so that a
// restored session needs no replay.
type Snapshot struct {
	CreatedAt    time.Time
	Watermark    time.Time
	ID           string
	Transactions []model.Transaction
	Categories   []model.Category
	Rules        []model.CategoryRule
	Goals        []model.SavingGoal
	Requests     []model.PaymentRequest
	MessageRules []model.MessageRule
	Messages     []model.Message
	Counters     Counters
	HasWatermark bool
}

// snapshot copies the session state. Callers must hold the session lock.
func (s *Session) snapshot() *Snapshot {
	snap := &Snapshot{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		Watermark:    s.watermark,
		HasWatermark: s.hasWatermark,
		Counters:     s.counters,
	}
	for _, t := range s.ledger.entries {
		snap.Transactions = append(snap.Transactions, *t)
	}
	for _, c := range s.categories {
		snap.Categories = append(snap.Categories, *c)
	}
	for _, r := range s.rules {
		snap.Rules = append(snap.Rules, *r)
	}
	for _, g := range s.goals {
		snap.Goals = append(snap.Goals, *g)
	}
	for _, r := range s.requests {
		req := *r
		req.MatchedIDs = append([]int64(nil), r.MatchedIDs...)
		snap.Requests = append(snap.Requests, req)
	}
	for _, r := range s.messageRules {
		snap.MessageRules = append(snap.MessageRules, *r)
	}
	for _, m := range s.messages {
		snap.Messages = append(snap.Messages, *m)
	}
	return snap
}

// sessionFromSnapshot rebuilds a session, re-sorting the ledger by its
// ordering key rather than trusting stored order.
func sessionFromSnapshot(snap *Snapshot) *Session {
	s := newSession(snap.ID, snap.CreatedAt)
	s.watermark = snap.Watermark
	s.hasWatermark = snap.HasWatermark
	s.counters = snap.Counters
	for i := range snap.Transactions {
		t := snap.Transactions[i]
		s.ledger.insert(&t)
	}
	for i := range snap.Categories {
		c := snap.Categories[i]
		s.categories = append(s.categories, &c)
	}
	for i := range snap.Rules {
		r := snap.Rules[i]
		s.rules = append(s.rules, &r)
	}
	for i := range snap.Goals {
		g := snap.Goals[i]
		s.goals = append(s.goals, &g)
	}
	for i := range snap.Requests {
		r := snap.Requests[i]
		s.requests = append(s.requests, &r)
	}
	for i := range snap.MessageRules {
		r := snap.MessageRules[i]
		s.messageRules = append(s.messageRules, &r)
	}
	for i := range snap.Messages {
		m := snap.Messages[i]
		s.messages = append(s.messages, &m)
	}
	return s
}
