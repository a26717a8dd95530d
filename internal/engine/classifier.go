package engine

import (
	"github.com/florin-app/florin/internal/model"
)

// bestRule selects the winning rule for a transaction: highest specificity
// first, ties broken by the earliest-created still-existing rule. Returns nil
// when nothing matches.
func bestRule(rules []*model.CategoryRule, t *model.Transaction) *model.CategoryRule {
	var best *model.CategoryRule
	bestSpec := -1
	for _, r := range rules {
		if !r.Matches(t) {
			continue
		}
		spec := r.Specificity()
		if spec > bestSpec || (spec == bestSpec && best != nil && r.ID < best.ID) {
			best = r
			bestSpec = spec
		}
	}
	return best
}

// classify assigns a category to t from the current rule set. Never
// categorizing is a valid outcome; a rule whose target category has been
// deleted is skipped.
func (s *Session) classify(t *model.Transaction) {
	if r := bestRule(s.rules, t); r != nil && s.category(r.CategoryID) != nil {
		t.CategoryID = r.CategoryID
	}
}

// applyRuleToHistory re-classifies every existing user transaction as if the
// new rule had existed all along: an assignment only changes where the new
// rule wins the priority contest against whatever matched before. Returns the
// transactions whose assignment changed.
func (s *Session) applyRuleToHistory(rule *model.CategoryRule) []model.Transaction {
	if s.category(rule.CategoryID) == nil {
		return nil
	}
	var changed []model.Transaction
	for _, t := range s.ledger.entries {
		if t.Internal {
			continue
		}
		if bestRule(s.rules, t) != rule {
			continue
		}
		if t.CategoryID != rule.CategoryID {
			t.CategoryID = rule.CategoryID
			changed = append(changed, *t)
		}
	}
	return changed
}
