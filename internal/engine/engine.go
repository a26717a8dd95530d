// Package engine implements the derived-state core: a per-session ledger of
// transactions plus the five views derived from it (category assignment,
// balance candlesticks, saving goal progress, payment request matching and
// threshold notifications). Transactions may arrive in any chronological
// order, so every mutation re-derives the affected views from the ledger's
// as-of-date ordering instead of patching them in arrival order.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/florin-app/florin/internal/common"
	"github.com/florin-app/florin/internal/model"
)

// Store persists session snapshots. The engine treats persistence as a
// best-effort collaborator: a failed save is logged, never surfaced, because
// the in-memory session remains the source of truth.
type Store interface {
	SaveSession(ctx context.Context, snap *Snapshot) error
	LoadSessions(ctx context.Context) ([]*Snapshot, error)
}

// Engine owns every session and serializes mutations per session. Sessions
// never share state, so they are processed fully in parallel; within one
// session the pipeline runs under the session lock.
type Engine struct {
	sessions map[string]*Session
	store    Store
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.RWMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore attaches a persistence backend.
func WithStore(store Store) Option {
	return func(e *Engine) { e.store = store }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine with no sessions.
func New(opts ...Option) *Engine {
	e := &Engine{
		sessions: make(map[string]*Session),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore loads every persisted session into memory. Called once at startup,
// before the engine serves requests.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	snaps, err := e.store.LoadSessions(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, snap := range snaps {
		e.sessions[snap.ID] = sessionFromSnapshot(snap)
	}
	e.logger.InfoContext(ctx, "restored sessions", "count", len(snaps))
	return nil
}

// CreateSession registers a new isolated session and returns its identifier.
func (e *Engine) CreateSession(ctx context.Context) (string, error) {
	s := newSession(uuid.NewString(), e.now())
	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()
	e.persist(ctx, s)
	return s.id, nil
}

// HasSession reports whether the session exists.
func (e *Engine) HasSession(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.sessions[id]
	return ok
}

func (e *Engine) session(id string) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, common.ErrNoSession
	}
	return s, nil
}

func (e *Engine) persist(ctx context.Context, s *Session) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveSession(ctx, s.snapshot()); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist session", "session", s.id, "error", err)
	}
}

// ApplyTransaction validates, classifies and inserts a transaction, then
// runs the full derived-state pipeline. It returns the stored transaction
// (with its resolved category) and the messages the mutation produced.
func (e *Engine) ApplyTransaction(ctx context.Context, sessionID string, tx model.Transaction) (model.Transaction, []model.Message, error) {
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, nil, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.Transaction{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.CategoryID != 0 && s.category(tx.CategoryID) == nil {
		return model.Transaction{}, nil, fmt.Errorf("category %d: %w", tx.CategoryID, common.ErrNotFound)
	}

	t := &model.Transaction{
		ID:           s.nextTxID(),
		Seq:          s.nextSeq(),
		Date:         tx.Date.UTC(),
		Amount:       tx.Amount,
		Type:         tx.Type,
		ExternalIBAN: tx.ExternalIBAN,
		Description:  tx.Description,
		CategoryID:   tx.CategoryID,
	}
	if t.CategoryID == 0 {
		s.classify(t)
	}
	s.ledger.insert(t)

	msgs := s.pipeline(t)
	e.persist(ctx, s)
	e.logger.DebugContext(ctx, "transaction applied",
		"session", s.id, "transaction", t.ID, "type", t.Type, "messages", len(msgs))
	return *t, msgs, nil
}

// GetTransaction returns a user transaction by id.
func (e *Engine) GetTransaction(ctx context.Context, sessionID string, id int64) (model.Transaction, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return model.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.ledger.get(id)
	if t == nil || t.Internal {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	return *t, nil
}

// ListTransactions returns user transactions in ledger order. Internal
// allocation entries are never listed. A categoryID of 0 means no filter; a
// limit of 0 or less means no limit.
func (e *Engine) ListTransactions(ctx context.Context, sessionID string, offset, limit int, categoryID int64) ([]model.Transaction, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Transaction, 0)
	for _, t := range s.ledger.user() {
		if categoryID != 0 && t.CategoryID != categoryID {
			continue
		}
		out = append(out, *t)
	}
	if offset > 0 {
		if offset >= len(out) {
			return []model.Transaction{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// UpdateTransaction replaces a transaction's fields and reruns the pipeline.
// The entry keeps its id and insertion sequence, so a timestamp tie after the
// update still resolves to the original arrival order.
func (e *Engine) UpdateTransaction(ctx context.Context, sessionID string, id int64, tx model.Transaction) (model.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ledger.get(id)
	if t == nil || t.Internal {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if tx.CategoryID != 0 && s.category(tx.CategoryID) == nil {
		return model.Transaction{}, fmt.Errorf("category %d: %w", tx.CategoryID, common.ErrNotFound)
	}

	s.ledger.remove(id)
	t.Date = tx.Date.UTC()
	t.Amount = tx.Amount
	t.Type = tx.Type
	t.ExternalIBAN = tx.ExternalIBAN
	t.Description = tx.Description
	t.CategoryID = tx.CategoryID
	if t.CategoryID == 0 {
		s.classify(t)
	}
	s.ledger.insert(t)

	s.pipeline(t)
	e.persist(ctx, s)
	return *t, nil
}

// DeleteTransaction removes a transaction and reruns the pipeline.
func (e *Engine) DeleteTransaction(ctx context.Context, sessionID string, id int64) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ledger.get(id)
	if t == nil || t.Internal {
		return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	s.ledger.remove(id)
	s.pipeline(nil)
	e.persist(ctx, s)
	return nil
}

// AssignCategory explicitly sets a transaction's category, overriding
// whatever the classifier resolved.
func (e *Engine) AssignCategory(ctx context.Context, sessionID string, txID, categoryID int64) (model.Transaction, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return model.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ledger.get(txID)
	if t == nil || t.Internal {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", txID, common.ErrNotFound)
	}
	if s.category(categoryID) == nil {
		return model.Transaction{}, fmt.Errorf("category %d: %w", categoryID, common.ErrNotFound)
	}
	t.CategoryID = categoryID
	s.pipeline(nil)
	e.persist(ctx, s)
	return *t, nil
}

// CreateCategory adds a category.
func (e *Engine) CreateCategory(ctx context.Context, sessionID string, c model.Category) (model.Category, error) {
	if err := c.Validate(); err != nil {
		return model.Category{}, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cat := &model.Category{ID: s.nextCategoryID(), Name: c.Name}
	s.categories = append(s.categories, cat)
	e.persist(ctx, s)
	return *cat, nil
}

// ListCategories returns categories in creation order.
func (e *Engine) ListCategories(ctx context.Context, sessionID string) ([]model.Category, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	return out, nil
}

// GetCategory returns a category by id.
func (e *Engine) GetCategory(ctx context.Context, sessionID string, id int64) (model.Category, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return model.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.category(id)
	if c == nil {
		return model.Category{}, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	return *c, nil
}

// UpdateCategory renames a category.
func (e *Engine) UpdateCategory(ctx context.Context, sessionID string, id int64, upd model.Category) (model.Category, error) {
	if err := upd.Validate(); err != nil {
		return model.Category{}, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.category(id)
	if c == nil {
		return model.Category{}, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	c.Name = upd.Name
	e.persist(ctx, s)
	return *c, nil
}

// DeleteCategory removes a category and clears it from every transaction
// that carried it. Rules targeting the deleted category stay but stop
// resolving.
func (e *Engine) DeleteCategory(ctx context.Context, sessionID string, id int64) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	for _, t := range s.ledger.entries {
		if t.CategoryID == id {
			t.CategoryID = 0
		}
	}
	s.pipeline(nil)
	e.persist(ctx, s)
	return nil
}

// ApplyCategoryRule adds a rule and, when the rule asks for history
// application, re-classifies the existing ledger as if the rule had always
// existed. Returns the rule and the transactions whose assignment changed.
func (e *Engine) ApplyCategoryRule(ctx context.Context, sessionID string, rule model.CategoryRule) (model.CategoryRule, []model.Transaction, error) {
	if err := rule.Validate(); err != nil {
		return model.CategoryRule{}, nil, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.CategoryRule{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.category(rule.CategoryID) == nil {
		return model.CategoryRule{}, nil, fmt.Errorf("category %d: %w", rule.CategoryID, common.ErrNotFound)
	}

	r := &model.CategoryRule{
		ID:             s.nextRuleID(),
		Description:    rule.Description,
		IBAN:           rule.IBAN,
		Type:           rule.Type,
		CategoryID:     rule.CategoryID,
		ApplyOnHistory: rule.ApplyOnHistory,
	}
	s.rules = append(s.rules, r)

	var reclassified []model.Transaction
	if r.ApplyOnHistory {
		reclassified = s.applyRuleToHistory(r)
		s.pipeline(nil)
	}
	e.persist(ctx, s)
	return *r, reclassified, nil
}

// ListCategoryRules returns rules in creation order.
func (e *Engine) ListCategoryRules(ctx context.Context, sessionID string) ([]model.CategoryRule, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CategoryRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	return out, nil
}

// GetCategoryRule returns a rule by id.
func (e *Engine) GetCategoryRule(ctx context.Context, sessionID string, id int64) (model.CategoryRule, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return model.CategoryRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(id)
	if r == nil {
		return model.CategoryRule{}, fmt.Errorf("category rule %d: %w", id, common.ErrNotFound)
	}
	return *r, nil
}

// UpdateCategoryRule replaces a rule's matching fields. History is never
// reapplied on update; the changed rule affects future classification only.
func (e *Engine) UpdateCategoryRule(ctx context.Context, sessionID string, id int64, upd model.CategoryRule) (model.CategoryRule, error) {
	if err := upd.Validate(); err != nil {
		return model.CategoryRule{}, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.CategoryRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(id)
	if r == nil {
		return model.CategoryRule{}, fmt.Errorf("category rule %d: %w", id, common.ErrNotFound)
	}
	if s.category(upd.CategoryID) == nil {
		return model.CategoryRule{}, fmt.Errorf("category %d: %w", upd.CategoryID, common.ErrNotFound)
	}
	r.Description = upd.Description
	r.IBAN = upd.IBAN
	r.Type = upd.Type
	r.CategoryID = upd.CategoryID
	e.persist(ctx, s)
	return *r, nil
}

// DeleteCategoryRule removes a rule from all future matching. A re-created
// rule gets a fresh, later id and loses the original's place in the
// tie-break order.
func (e *Engine) DeleteCategoryRule(ctx context.Context, sessionID string, id int64) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			e.persist(ctx, s)
			return nil
		}
	}
	return fmt.Errorf("category rule %d: %w", id, common.ErrNotFound)
}

// CandlestickHistory aggregates the ledger into count buckets of the given
// interval width, ending at the bucket containing now. Unrecognized interval
// names are rejected; out-of-range counts are clamped to [1, 200].
func (e *Engine) CandlestickHistory(ctx context.Context, sessionID, interval string, count int) ([]model.Candlestick, error) {
	iv, err := model.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candlestickHistory(iv, count, e.now()), nil
}

// CreateSavingGoal adds a goal. The goal participates in month boundaries
// strictly after the ledger frontier at creation time.
func (e *Engine) CreateSavingGoal(ctx context.Context, sessionID string, goal model.SavingGoal) (model.SavingGoal, error) {
	if err := goal.Validate(); err != nil {
		return model.SavingGoal{}, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.SavingGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := &model.SavingGoal{
		ID:                 s.nextGoalID(),
		Name:               goal.Name,
		Goal:               goal.Goal,
		SavePerMonth:       goal.SavePerMonth,
		MinBalanceRequired: goal.MinBalanceRequired,
	}
	if frontier, ok := s.ledger.frontier(); ok {
		g.EffectiveFrom = frontier
	}
	s.goals = append(s.goals, g)
	e.persist(ctx, s)
	return *g, nil
}

// ListSavingGoals returns goals in creation order, derived balances included.
func (e *Engine) ListSavingGoals(ctx context.Context, sessionID string) ([]model.SavingGoal, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SavingGoal, 0, len(s.goals))
	for _, g := range s.goals {
		out = append(out, *g)
	}
	return out, nil
}

// DeleteSavingGoal removes a goal. Re-simulation reclaims its allocations, so
// the money returns to the account balance.
func (e *Engine) DeleteSavingGoal(ctx context.Context, sessionID string, id int64) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i, g := range s.goals {
		if g.ID == id {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("saving goal %d: %w", id, common.ErrNotFound)
	}
	s.pipeline(nil)
	e.persist(ctx, s)
	return nil
}

// CreatePaymentRequest adds a request and immediately re-derives matching, so
// deposits already in the ledger can satisfy it and an already-passed due
// date expires it on the next ledger observation.
func (e *Engine) CreatePaymentRequest(ctx context.Context, sessionID string, req model.PaymentRequest) (model.PaymentRequest, error) {
	if err := req.Validate(); err != nil {
		return model.PaymentRequest{}, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.PaymentRequest{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &model.PaymentRequest{
		ID:               s.nextRequestID(),
		Description:      req.Description,
		DueDate:          req.DueDate.UTC(),
		Amount:           req.Amount,
		NumberOfRequests: req.NumberOfRequests,
	}
	s.requests = append(s.requests, r)
	s.pipeline(nil)
	e.persist(ctx, s)
	return *r, nil
}

// ListPaymentRequests returns requests in creation order, matched
// transactions included.
func (e *Engine) ListPaymentRequests(ctx context.Context, sessionID string) ([]model.PaymentRequest, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PaymentRequest, 0, len(s.requests))
	for _, r := range s.requests {
		req := *r
		req.MatchedIDs = append([]int64(nil), r.MatchedIDs...)
		out = append(out, req)
	}
	return out, nil
}

// MatchedTransactions resolves a request's matched transaction ids to the
// ledger entries, in match order.
func (e *Engine) MatchedTransactions(ctx context.Context, sessionID string, requestID int64) ([]model.Transaction, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID != requestID {
			continue
		}
		out := make([]model.Transaction, 0, len(r.MatchedIDs))
		for _, id := range r.MatchedIDs {
			if t := s.ledger.get(id); t != nil {
				out = append(out, *t)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("payment request %d: %w", requestID, common.ErrNotFound)
}

// CreateMessageRule adds a spend-threshold rule. The rule only evaluates
// transactions processed after its creation.
func (e *Engine) CreateMessageRule(ctx context.Context, sessionID string, rule model.MessageRule) (model.MessageRule, error) {
	if err := rule.Validate(); err != nil {
		return model.MessageRule{}, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return model.MessageRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.category(rule.CategoryID) == nil {
		return model.MessageRule{}, fmt.Errorf("category %d: %w", rule.CategoryID, common.ErrNotFound)
	}
	r := &model.MessageRule{
		ID:         s.nextMessageRuleID(),
		Type:       rule.Type,
		Value:      rule.Value,
		CategoryID: rule.CategoryID,
	}
	s.messageRules = append(s.messageRules, r)
	e.persist(ctx, s)
	return *r, nil
}

// ListMessageRules returns rules in creation order.
func (e *Engine) ListMessageRules(ctx context.Context, sessionID string) ([]model.MessageRule, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MessageRule, 0, len(s.messageRules))
	for _, r := range s.messageRules {
		out = append(out, *r)
	}
	return out, nil
}

// ListMessages returns messages in creation order, unread only by default.
func (e *Engine) ListMessages(ctx context.Context, sessionID string, unreadOnly bool) ([]model.Message, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if unreadOnly && m.Read {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

// MarkMessageRead acknowledges a message. Messages are never deleted.
func (e *Engine) MarkMessageRead(ctx context.Context, sessionID string, id int64) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			m.Read = true
			e.persist(ctx, s)
			return nil
		}
	}
	return fmt.Errorf("message %d: %w", id, common.ErrNotFound)
}
