package feed

import "strings"

// ConditionSettings gates feed processing on submitted values. A feed with
// no condition, or a disabled one, always runs.
type ConditionSettings struct {
	Enabled   bool            `json:"enabled"`
	LogicType string          `json:"logic_type"` // "all" (default) or "any"
	Rules     []ConditionRule `json:"rules"`
}

// ConditionRule compares one submitted field value against a constant.
type ConditionRule struct {
	FieldID  string `json:"field_id"`
	Operator string `json:"operator"` // "is", "isnot", "contains"
	Value    string `json:"value"`
}

// Evaluator decides whether a feed's condition is met for a submission.
// The orchestrator takes this as an interface so a richer host-side
// evaluator can be substituted.
type Evaluator interface {
	IsMet(f *Feed, form Form, sub Submission) bool
}

// RuleEvaluator evaluates the built-in rule format.
type RuleEvaluator struct{}

// IsMet applies the feed's condition rules with all/any combination logic.
func (RuleEvaluator) IsMet(f *Feed, form Form, sub Submission) bool {
	cond := f.Meta.Condition
	if cond == nil || !cond.Enabled || len(cond.Rules) == 0 {
		return true
	}

	matchAny := strings.EqualFold(cond.LogicType, "any")
	for _, rule := range cond.Rules {
		matched := rule.matches(sub)
		if matchAny && matched {
			return true
		}
		if !matchAny && !matched {
			return false
		}
	}
	return !matchAny
}

func (r ConditionRule) matches(sub Submission) bool {
	value := sub.Value(r.FieldID)
	switch r.Operator {
	case "isnot":
		return value != r.Value
	case "contains":
		return strings.Contains(value, r.Value)
	default: // "is"
		return value == r.Value
	}
}
