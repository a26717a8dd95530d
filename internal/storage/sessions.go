package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/engine"
	"github.com/florin-app/florin/internal/model"
)

// timeFormat is the canonical storage layout for timestamps.
const timeFormat = time.RFC3339Nano

// SaveSession writes a full session snapshot inside one transaction: child
// rows are replaced wholesale, so the stored state always matches exactly one
// in-memory snapshot and a crash can never leave a half-written session.
func (s *SQLiteStore) SaveSession(ctx context.Context, snap *engine.Snapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParameter)
	}
	if err := validateString(snap.ID, "snapshot ID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var watermark any
	if snap.HasWatermark {
		watermark = snap.Watermark.UTC().Format(timeFormat)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO sessions
		(id, created_at, watermark, has_watermark, tx_counter, seq_counter,
		 category_counter, rule_counter, goal_counter, request_counter,
		 message_rule_counter, message_counter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 watermark = excluded.watermark,
		 has_watermark = excluded.has_watermark,
		 tx_counter = excluded.tx_counter,
		 seq_counter = excluded.seq_counter,
		 category_counter = excluded.category_counter,
		 rule_counter = excluded.rule_counter,
		 goal_counter = excluded.goal_counter,
		 request_counter = excluded.request_counter,
		 message_rule_counter = excluded.message_rule_counter,
		 message_counter = excluded.message_counter`,
		snap.ID, snap.CreatedAt.UTC().Format(timeFormat), watermark, snap.HasWatermark,
		snap.Counters.Tx, snap.Counters.Seq, snap.Counters.Category, snap.Counters.Rule,
		snap.Counters.Goal, snap.Counters.Request, snap.Counters.MessageRule, snap.Counters.Message,
	); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	tables := []string{
		"payment_request_matches", "payment_requests", "messages", "message_rules",
		"saving_goals", "category_rules", "categories", "transactions",
	}
	for _, table := range tables {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, snap.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i := range snap.Transactions {
		t := &snap.Transactions[i]
		if _, err = tx.ExecContext(ctx, `INSERT INTO transactions
			(session_id, id, seq, date, amount, type, external_iban, description, category_id, internal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, t.ID, t.Seq, t.Date.UTC().Format(timeFormat), t.Amount.String(),
			string(t.Type), t.ExternalIBAN, t.Description, t.CategoryID, t.Internal,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", t.ID, err)
		}
	}

	for i := range snap.Categories {
		c := &snap.Categories[i]
		if _, err = tx.ExecContext(ctx, `INSERT INTO categories (session_id, id, name) VALUES (?, ?, ?)`,
			snap.ID, c.ID, c.Name); err != nil {
			return fmt.Errorf("failed to insert category %d: %w", c.ID, err)
		}
	}

	for i := range snap.Rules {
		r := &snap.Rules[i]
		if _, err = tx.ExecContext(ctx, `INSERT INTO category_rules
			(session_id, id, description, iban, type, category_id, apply_on_history)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, r.ID, r.Description, r.IBAN, string(r.Type), r.CategoryID, r.ApplyOnHistory,
		); err != nil {
			return fmt.Errorf("failed to insert category rule %d: %w", r.ID, err)
		}
	}

	for i := range snap.Goals {
		g := &snap.Goals[i]
		if _, err = tx.ExecContext(ctx, `INSERT INTO saving_goals
			(session_id, id, name, goal, save_per_month, min_balance_required, balance, effective_from, notified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, g.ID, g.Name, g.Goal.String(), g.SavePerMonth.String(),
			g.MinBalanceRequired.String(), g.Balance.String(),
			g.EffectiveFrom.UTC().Format(timeFormat), g.Notified,
		); err != nil {
			return fmt.Errorf("failed to insert saving goal %d: %w", g.ID, err)
		}
	}

	for i := range snap.Requests {
		r := &snap.Requests[i]
		if _, err = tx.ExecContext(ctx, `INSERT INTO payment_requests
			(session_id, id, description, due_date, amount, number_of_requests, filled, fill_notified, expiry_notified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, r.ID, r.Description, r.DueDate.UTC().Format(timeFormat), r.Amount.String(),
			r.NumberOfRequests, r.Filled, r.FillNotified, r.ExpiryNotified,
		); err != nil {
			return fmt.Errorf("failed to insert payment request %d: %w", r.ID, err)
		}
		for pos, txID := range r.MatchedIDs {
			if _, err = tx.ExecContext(ctx, `INSERT INTO payment_request_matches
				(session_id, request_id, position, transaction_id) VALUES (?, ?, ?, ?)`,
				snap.ID, r.ID, pos, txID,
			); err != nil {
				return fmt.Errorf("failed to insert match for request %d: %w", r.ID, err)
			}
		}
	}

	for i := range snap.MessageRules {
		r := &snap.MessageRules[i]
		if _, err = tx.ExecContext(ctx, `INSERT INTO message_rules (session_id, id, type, value, category_id)
			VALUES (?, ?, ?, ?, ?)`,
			snap.ID, r.ID, string(r.Type), r.Value.String(), r.CategoryID,
		); err != nil {
			return fmt.Errorf("failed to insert message rule %d: %w", r.ID, err)
		}
	}

	for i := range snap.Messages {
		m := &snap.Messages[i]
		if _, err = tx.ExecContext(ctx, `INSERT INTO messages (session_id, id, date, type, text, read)
			VALUES (?, ?, ?, ?, ?, ?)`,
			snap.ID, m.ID, m.Date.UTC().Format(timeFormat), string(m.Type), m.Text, m.Read,
		); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session save: %w", err)
	}
	return nil
}

// LoadSessions reads every persisted session snapshot.
func (s *SQLiteStore) LoadSessions(ctx context.Context) ([]*engine.Snapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, watermark, has_watermark,
		tx_counter, seq_counter, category_counter, rule_counter, goal_counter,
		request_counter, message_rule_counter, message_counter FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*engine.Snapshot
	for rows.Next() {
		snap := &engine.Snapshot{}
		var createdAt string
		var watermark sql.NullString
		if err := rows.Scan(&snap.ID, &createdAt, &watermark, &snap.HasWatermark,
			&snap.Counters.Tx, &snap.Counters.Seq, &snap.Counters.Category, &snap.Counters.Rule,
			&snap.Counters.Goal, &snap.Counters.Request, &snap.Counters.MessageRule, &snap.Counters.Message,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if snap.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if watermark.Valid {
			if snap.Watermark, err = parseTime(watermark.String); err != nil {
				return nil, err
			}
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	for _, snap := range snaps {
		if err := s.loadSessionEntities(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", snap.ID, err)
		}
	}
	return snaps, nil
}

func (s *SQLiteStore) loadSessionEntities(ctx context.Context, snap *engine.Snapshot) error {
	if err := s.loadTransactions(ctx, snap); err != nil {
		return err
	}
	if err := s.loadCategories(ctx, snap); err != nil {
		return err
	}
	if err := s.loadCategoryRules(ctx, snap); err != nil {
		return err
	}
	if err := s.loadSavingGoals(ctx, snap); err != nil {
		return err
	}
	if err := s.loadPaymentRequests(ctx, snap); err != nil {
		return err
	}
	if err := s.loadMessageRules(ctx, snap); err != nil {
		return err
	}
	return s.loadMessages(ctx, snap)
}

func (s *SQLiteStore) loadTransactions(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, seq, date, amount, type, external_iban,
		description, category_id, internal FROM transactions WHERE session_id = ? ORDER BY date, seq`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t model.Transaction
		var date, amount, typ string
		if err := rows.Scan(&t.ID, &t.Seq, &date, &amount, &typ,
			&t.ExternalIBAN, &t.Description, &t.CategoryID, &t.Internal); err != nil {
			return fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Date, err = parseTime(date); err != nil {
			return err
		}
		if t.Amount, err = parseDecimal(amount); err != nil {
			return err
		}
		t.Type = model.TransactionType(typ)
		snap.Transactions = append(snap.Transactions, t)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadCategories(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM categories WHERE session_id = ? ORDER BY id`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return fmt.Errorf("failed to scan category: %w", err)
		}
		snap.Categories = append(snap.Categories, c)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadCategoryRules(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description, iban, type, category_id,
		apply_on_history FROM category_rules WHERE session_id = ? ORDER BY id`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query category rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r model.CategoryRule
		var typ string
		if err := rows.Scan(&r.ID, &r.Description, &r.IBAN, &typ, &r.CategoryID, &r.ApplyOnHistory); err != nil {
			return fmt.Errorf("failed to scan category rule: %w", err)
		}
		r.Type = model.TransactionType(typ)
		snap.Rules = append(snap.Rules, r)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadSavingGoals(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, goal, save_per_month,
		min_balance_required, balance, effective_from, notified
		FROM saving_goals WHERE session_id = ? ORDER BY id`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query saving goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var g model.SavingGoal
		var goal, save, minBalance, balance, effectiveFrom string
		if err := rows.Scan(&g.ID, &g.Name, &goal, &save, &minBalance, &balance,
			&effectiveFrom, &g.Notified); err != nil {
			return fmt.Errorf("failed to scan saving goal: %w", err)
		}
		if g.Goal, err = parseDecimal(goal); err != nil {
			return err
		}
		if g.SavePerMonth, err = parseDecimal(save); err != nil {
			return err
		}
		if g.MinBalanceRequired, err = parseDecimal(minBalance); err != nil {
			return err
		}
		if g.Balance, err = parseDecimal(balance); err != nil {
			return err
		}
		if g.EffectiveFrom, err = parseTime(effectiveFrom); err != nil {
			return err
		}
		snap.Goals = append(snap.Goals, g)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadPaymentRequests(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description, due_date, amount,
		number_of_requests, filled, fill_notified, expiry_notified
		FROM payment_requests WHERE session_id = ? ORDER BY id`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query payment requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r model.PaymentRequest
		var dueDate, amount string
		if err := rows.Scan(&r.ID, &r.Description, &dueDate, &amount,
			&r.NumberOfRequests, &r.Filled, &r.FillNotified, &r.ExpiryNotified); err != nil {
			return fmt.Errorf("failed to scan payment request: %w", err)
		}
		if r.DueDate, err = parseTime(dueDate); err != nil {
			return err
		}
		if r.Amount, err = parseDecimal(amount); err != nil {
			return err
		}
		snap.Requests = append(snap.Requests, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range snap.Requests {
		r := &snap.Requests[i]
		matchRows, err := s.db.QueryContext(ctx, `SELECT transaction_id FROM payment_request_matches
			WHERE session_id = ? AND request_id = ? ORDER BY position`, snap.ID, r.ID)
		if err != nil {
			return fmt.Errorf("failed to query request matches: %w", err)
		}
		for matchRows.Next() {
			var txID int64
			if err := matchRows.Scan(&txID); err != nil {
				_ = matchRows.Close()
				return fmt.Errorf("failed to scan request match: %w", err)
			}
			r.MatchedIDs = append(r.MatchedIDs, txID)
		}
		if err := matchRows.Err(); err != nil {
			_ = matchRows.Close()
			return err
		}
		_ = matchRows.Close()
	}
	return nil
}

func (s *SQLiteStore) loadMessageRules(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, value, category_id FROM message_rules WHERE session_id = ? ORDER BY id`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query message rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r model.MessageRule
		var typ, value string
		if err := rows.Scan(&r.ID, &typ, &value, &r.CategoryID); err != nil {
			return fmt.Errorf("failed to scan message rule: %w", err)
		}
		if r.Value, err = parseDecimal(value); err != nil {
			return err
		}
		r.Type = model.MessageType(typ)
		snap.MessageRules = append(snap.MessageRules, r)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadMessages(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, type, text, read FROM messages WHERE session_id = ? ORDER BY id`, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var m model.Message
		var date, typ string
		if err := rows.Scan(&m.ID, &date, &typ, &m.Text, &m.Read); err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}
		if m.Date, err = parseTime(date); err != nil {
			return err
		}
		m.Type = model.MessageType(typ)
		snap.Messages = append(snap.Messages, m)
	}
	return rows.Err()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse stored amount %q: %w", s, err)
	}
	return d, nil
}
