package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/common"
)

// PaymentRequest expects NumberOfRequests deposits of exactly Amount before
// DueDate. MatchedIDs holds the ids of the ledger deposits consumed so far;
// each deposit is consumed by at most one request across the session.
//
// FillNotified and ExpiryNotified keep the corresponding messages one-shot
// across re-matching runs.
type PaymentRequest struct {
	DueDate          time.Time
	Description      string
	Amount           decimal.Decimal
	MatchedIDs       []int64
	ID               int64
	NumberOfRequests int
	Filled           bool
	FillNotified     bool
	ExpiryNotified   bool
}

// Validate checks the request against the input contract.
func (p *PaymentRequest) Validate() error {
	if !p.Amount.IsPositive() {
		return common.NewValidationError("amount", "must be greater than zero")
	}
	if p.NumberOfRequests <= 0 {
		return common.NewValidationError("number_of_requests", "must be greater than zero")
	}
	if p.DueDate.IsZero() {
		return common.NewValidationError("due_date", "must be a valid date-time")
	}
	return nil
}
