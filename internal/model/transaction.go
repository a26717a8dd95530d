// Package model defines the core data structures for the florin backend.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/common"
)

// TransactionType distinguishes money entering from money leaving the account.
type TransactionType string

// Recognized transaction types.
const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
)

// ParseTransactionType converts a wire value into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case Deposit:
		return Deposit, nil
	case Withdrawal:
		return Withdrawal, nil
	default:
		return "", common.NewValidationError("type", "must be deposit or withdrawal")
	}
}

// Transaction is a single ledger entry. Ordering within a session is by
// (Date, Seq): Seq is a monotonically increasing counter assigned at insert
// time and never reused, so two entries with the same timestamp keep their
// arrival order.
//
// Internal marks entries synthesized by the saving goal simulator. They
// participate in balance computation but are excluded from user-facing
// transaction listings.
type Transaction struct {
	Date         time.Time
	ExternalIBAN string
	Description  string
	Amount       decimal.Decimal
	Type         TransactionType
	ID           int64
	Seq          int64
	CategoryID   int64 // 0 means uncategorized
	Internal     bool
}

// Signed returns the amount with deposit positive and withdrawal negative.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == Withdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Before reports whether t is ordered before o in the ledger.
func (t *Transaction) Before(o *Transaction) bool {
	if !t.Date.Equal(o.Date) {
		return t.Date.Before(o.Date)
	}
	return t.Seq < o.Seq
}

// Validate checks the transaction against the input contract: positive
// amount, a recognized type, a parseable date and a non-empty counterparty
// IBAN.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return common.NewValidationError("amount", "must be greater than zero")
	}
	if t.Type != Deposit && t.Type != Withdrawal {
		return common.NewValidationError("type", "must be deposit or withdrawal")
	}
	if t.Date.IsZero() {
		return common.NewValidationError("date", "must be a valid date-time")
	}
	if t.ExternalIBAN == "" {
		return common.NewValidationError("externalIBAN", "must not be empty")
	}
	return nil
}
