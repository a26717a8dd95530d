package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/common"
	"github.com/florin-app/florin/internal/model"
)

func init() {
	// Amounts go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Accepted request date layouts: RFC 3339 plus the minute-precision variant
// older clients send.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, common.NewValidationError("date", "must be a valid date-time")
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type errorBody struct {
	Error string `json:"error"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

type transactionRequest struct {
	Date         string          `json:"date"`
	ExternalIBAN string          `json:"externalIBAN"`
	Type         string          `json:"type"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	CategoryID   int64           `json:"category_id"`
}

type transactionResponse struct {
	Date         string          `json:"date"`
	ExternalIBAN string          `json:"externalIBAN"`
	Type         string          `json:"type"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	ID           int64           `json:"id"`
	CategoryID   *int64          `json:"category_id,omitempty"`
}

func toTransactionResponse(t model.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:           t.ID,
		Date:         formatDate(t.Date),
		Amount:       t.Amount,
		ExternalIBAN: t.ExternalIBAN,
		Type:         string(t.Type),
		Description:  t.Description,
	}
	if t.CategoryID != 0 {
		id := t.CategoryID
		resp.CategoryID = &id
	}
	return resp
}

func toTransactionResponses(ts []model.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryResponse struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

type categoryRuleRequest struct {
	Description    *string `json:"description"`
	IBAN           *string `json:"iBAN"`
	Type           string  `json:"type"`
	CategoryID     int64   `json:"category_id"`
	ApplyOnHistory bool    `json:"applyOnHistory"`
}

type categoryRuleResponse struct {
	Description    string `json:"description"`
	IBAN           string `json:"iBAN"`
	Type           string `json:"type"`
	ID             int64  `json:"id"`
	CategoryID     int64  `json:"category_id"`
	ApplyOnHistory bool   `json:"applyOnHistory"`
}

func toCategoryRuleResponse(r model.CategoryRule) categoryRuleResponse {
	return categoryRuleResponse{
		ID:             r.ID,
		Description:    r.Description,
		IBAN:           r.IBAN,
		Type:           string(r.Type),
		CategoryID:     r.CategoryID,
		ApplyOnHistory: r.ApplyOnHistory,
	}
}

type candlestickResponse struct {
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp int64           `json:"timestamp"`
}

func toCandlestickResponses(cs []model.Candlestick) []candlestickResponse {
	out := make([]candlestickResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, candlestickResponse{
			Open:      c.Open,
			Close:     c.Close,
			High:      c.High,
			Low:       c.Low,
			Volume:    c.Volume,
			Timestamp: c.Timestamp.Unix(),
		})
	}
	return out
}

type savingGoalRequest struct {
	Name               string          `json:"name"`
	Goal               decimal.Decimal `json:"goal"`
	SavePerMonth       decimal.Decimal `json:"savePerMonth"`
	MinBalanceRequired decimal.Decimal `json:"minBalanceRequired"`
}

type savingGoalResponse struct {
	Name               string          `json:"name"`
	Goal               decimal.Decimal `json:"goal"`
	SavePerMonth       decimal.Decimal `json:"savePerMonth"`
	MinBalanceRequired decimal.Decimal `json:"minBalanceRequired"`
	Balance            decimal.Decimal `json:"balance"`
	ID                 int64           `json:"id"`
}

func toSavingGoalResponse(g model.SavingGoal) savingGoalResponse {
	return savingGoalResponse{
		ID:                 g.ID,
		Name:               g.Name,
		Goal:               g.Goal,
		SavePerMonth:       g.SavePerMonth,
		MinBalanceRequired: g.MinBalanceRequired,
		Balance:            g.Balance,
	}
}

type paymentRequestRequest struct {
	Description      string          `json:"description"`
	DueDate          string          `json:"due_date"`
	Amount           decimal.Decimal `json:"amount"`
	NumberOfRequests int             `json:"number_of_requests"`
}

type paymentRequestResponse struct {
	Description      string                `json:"description"`
	DueDate          string                `json:"due_date"`
	Amount           decimal.Decimal       `json:"amount"`
	Transactions     []transactionResponse `json:"transactions"`
	ID               int64                 `json:"id"`
	NumberOfRequests int                   `json:"number_of_requests"`
	Filled           bool                  `json:"filled"`
}

type messageRuleRequest struct {
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	CategoryID int64           `json:"category_id"`
}

type messageRuleResponse struct {
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
}

type messageResponse struct {
	Message string `json:"message"`
	Date    string `json:"date"`
	Type    string `json:"type"`
	ID      int64  `json:"id"`
	Read    bool   `json:"read"`
}

func toMessageResponses(ms []model.Message) []messageResponse {
	out := make([]messageResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, messageResponse{
			ID:      m.ID,
			Message: m.Text,
			Date:    formatDate(m.Date),
			Type:    string(m.Type),
			Read:    m.Read,
		})
	}
	return out
}
