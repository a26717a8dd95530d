package engine

import (
	"sync"
	"time"

	"github.com/florin-app/florin/internal/model"
)

// Counters holds the per-session monotonic id sequences. Ids encode creation
// order and are never reused, which is what the classifier tie-break and the
// goal/request iteration order rely on.
type Counters struct {
	Tx          int64
	Seq         int64
	Category    int64
	Rule        int64
	Goal        int64
	Request     int64
	MessageRule int64
	Message     int64
}

// Session is the aggregate root for one isolated client. All collections are
// owned by the session; the mutex serializes the mutation pipeline so every
// stage sees a consistent ledger snapshot.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time

	ledger       ledger
	categories   []*model.Category
	rules        []*model.CategoryRule
	goals        []*model.SavingGoal
	requests     []*model.PaymentRequest
	messageRules []*model.MessageRule
	messages     []*model.Message

	counters Counters

	watermark    time.Time
	hasWatermark bool
}

func newSession(id string, now time.Time) *Session {
	return &Session{id: id, createdAt: now}
}

func (s *Session) nextTxID() int64 {
	s.counters.Tx++
	return s.counters.Tx
}

func (s *Session) nextSeq() int64 {
	s.counters.Seq++
	return s.counters.Seq
}

func (s *Session) nextCategoryID() int64 {
	s.counters.Category++
	return s.counters.Category
}

func (s *Session) nextRuleID() int64 {
	s.counters.Rule++
	return s.counters.Rule
}

func (s *Session) nextGoalID() int64 {
	s.counters.Goal++
	return s.counters.Goal
}

func (s *Session) nextRequestID() int64 {
	s.counters.Request++
	return s.counters.Request
}

func (s *Session) nextMessageRuleID() int64 {
	s.counters.MessageRule++
	return s.counters.MessageRule
}

func (s *Session) category(id int64) *model.Category {
	for _, c := range s.categories {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Session) rule(id int64) *model.CategoryRule {
	for _, r := range s.rules {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Session) appendMessage(ts time.Time, typ model.MessageType, text string) {
	s.counters.Message++
	s.messages = append(s.messages, &model.Message{
		ID:   s.counters.Message,
		Date: ts,
		Type: typ,
		Text: text,
	})
}

// pipeline runs the derived-state stages after a ledger mutation: goal
// re-simulation, payment request re-matching and notification evaluation.
// mutated is the inserted or updated transaction, nil for mutations that do
// not introduce an entry (deletes, rule changes). It returns the messages the
// mutation produced.
func (s *Session) pipeline(mutated *model.Transaction) []model.Message {
	before := len(s.messages)

	for _, ev := range s.resimulate() {
		s.appendMessage(ev.boundary, model.MessageInfo, goalFilledText(ev.goal.ID))
	}

	for _, ev := range s.rematch() {
		if ev.expired {
			s.appendMessage(ev.ts, model.MessageWarning, requestExpiredText(ev.request.ID))
		} else {
			s.appendMessage(ev.ts, model.MessageInfo, requestFilledText(ev.request.ID))
		}
	}

	if mutated != nil {
		s.evaluateTransaction(mutated)
	}

	out := make([]model.Message, 0, len(s.messages)-before)
	for _, m := range s.messages[before:] {
		out = append(out, *m)
	}
	return out
}
