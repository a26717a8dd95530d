package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/common"
)

// MessageType is the severity of a notification.
type MessageType string

// Recognized message types.
const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
)

// ParseMessageType converts a wire value into a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(s) {
	case MessageInfo:
		return MessageInfo, nil
	case MessageWarning:
		return MessageWarning, nil
	default:
		return "", common.NewValidationError("type", "must be info or warning")
	}
}

// Message is a one-shot notification produced by the notification engine.
// Messages are appended, never deleted; the only mutation is the read
// acknowledgement.
type Message struct {
	Date time.Time
	Text string
	Type MessageType
	ID   int64
	Read bool
}

// MessageRule triggers a message when the trailing 30-day spend in a
// category exceeds Value.
type MessageRule struct {
	Value      decimal.Decimal
	Type       MessageType
	ID         int64
	CategoryID int64
}

// Validate checks the rule against the input contract.
func (r *MessageRule) Validate() error {
	if r.Type != MessageInfo && r.Type != MessageWarning {
		return common.NewValidationError("type", "must be info or warning")
	}
	if r.Value.IsNegative() {
		return common.NewValidationError("value", "must not be negative")
	}
	if r.CategoryID <= 0 {
		return common.NewValidationError("category_id", "must reference a category")
	}
	return nil
}

// FormatAmount renders a monetary amount the way message texts expect:
// integral values keep one decimal place ("100.0"), everything else uses the
// shortest exact representation.
func FormatAmount(d decimal.Decimal) string {
	s := d.String()
	if strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}
