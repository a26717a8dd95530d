package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{name: "integral value keeps one decimal", amount: "100", want: "100.0"},
		{name: "zero", amount: "0", want: "0.0"},
		{name: "fractional value unchanged", amount: "19.95", want: "19.95"},
		{name: "single decimal unchanged", amount: "250.5", want: "250.5"},
		{name: "negative integral", amount: "-40", want: "-40.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decimal.RequireFromString(tt.amount)
			if got := FormatAmount(d); got != tt.want {
				t.Errorf("FormatAmount(%s) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}

func TestParseMessageType(t *testing.T) {
	if _, err := ParseMessageType("info"); err != nil {
		t.Errorf("ParseMessageType(info) error = %v", err)
	}
	if _, err := ParseMessageType("warning"); err != nil {
		t.Errorf("ParseMessageType(warning) error = %v", err)
	}
	if _, err := ParseMessageType("error"); err == nil {
		t.Error("ParseMessageType(error) expected error, got nil")
	}
}

func TestMessageRule_Validate(t *testing.T) {
	valid := MessageRule{Type: MessageWarning, Value: decimal.NewFromInt(100), CategoryID: 1}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	badType := MessageRule{Type: "loud", Value: decimal.NewFromInt(100), CategoryID: 1}
	if err := badType.Validate(); err == nil {
		t.Error("Validate() expected error for unknown type")
	}

	negative := MessageRule{Type: MessageInfo, Value: decimal.NewFromInt(-1), CategoryID: 1}
	if err := negative.Validate(); err == nil {
		t.Error("Validate() expected error for negative value")
	}

	noCategory := MessageRule{Type: MessageInfo, Value: decimal.NewFromInt(100)}
	if err := noCategory.Validate(); err == nil {
		t.Error("Validate() expected error for missing category")
	}
}
