package model

import (
	"strings"

	"github.com/florin-app/florin/internal/common"
)

// Category is a flat label for grouping transactions. No hierarchy.
type Category struct {
	Name string
	ID   int64
}

// Validate checks the category against the input contract.
func (c *Category) Validate() error {
	if c.Name == "" {
		return common.NewValidationError("name", "must not be empty")
	}
	return nil
}

// CategoryRule assigns a category to transactions matching its patterns.
// An empty pattern string is a wildcard matching any value. The rule id also
// encodes creation order: lower ids were created earlier.
type CategoryRule struct {
	Description    string
	IBAN           string
	Type           TransactionType
	ID             int64
	CategoryID     int64
	ApplyOnHistory bool
}

// Matches reports whether the rule applies to the transaction: the type must
// be equal, the IBAN pattern must be empty or equal to the transaction's
// IBAN, and the description pattern must be empty or a substring of the
// transaction's description. A non-empty pattern longer than the field it is
// compared against can never match.
func (r *CategoryRule) Matches(t *Transaction) bool {
	if r.Type != t.Type {
		return false
	}
	if r.IBAN != "" && r.IBAN != t.ExternalIBAN {
		return false
	}
	if r.Description != "" && !strings.Contains(t.Description, r.Description) {
		return false
	}
	return true
}

// Specificity counts the non-wildcard fields the rule constrains. Among
// matching rules, higher specificity wins.
func (r *CategoryRule) Specificity() int {
	n := 0
	if r.IBAN != "" {
		n++
	}
	if r.Description != "" {
		n++
	}
	return n
}

// Validate checks the rule against the input contract.
func (r *CategoryRule) Validate() error {
	if r.Type != Deposit && r.Type != Withdrawal {
		return common.NewValidationError("type", "must be deposit or withdrawal")
	}
	if r.CategoryID <= 0 {
		return common.NewValidationError("category_id", "must reference a category")
	}
	return nil
}
