package integrity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	domainBooking "github.com/booking-engine/booking-engine/internal/domain/booking"
	domainCommission "github.com/booking-engine/booking-engine/internal/domain/commission"
)

// Rule is a configurable audit expression evaluated against each accepted
// booking and its commission. A rule that evaluates to true yields an
// advisory violation.
type Rule struct {
	Name    string `json:"name"`
	Expr    string `json:"expr"`
	Message string `json:"message,omitempty"`
}

// ParseRules decodes the JSON rule list from configuration.
func ParseRules(raw string) ([]Rule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var rules []Rule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("parse integrity rules: %w", err)
	}
	for _, r := range rules {
		if r.Name == "" || r.Expr == "" {
			return nil, errors.New("integrity rule needs a name and an expr")
		}
		if _, err := govaluate.NewEvaluableExpression(r.Expr); err != nil {
			return nil, fmt.Errorf("integrity rule %q: %w", r.Name, err)
		}
	}
	return rules, nil
}

// evaluateRule runs one expression against the audit context. Expressions
// must evaluate to a boolean.
func evaluateRule(rule Rule, params map[string]interface{}) (bool, error) {
	expr, err := govaluate.NewEvaluableExpression(rule.Expr)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	matched, ok := result.(bool)
	if !ok {
		return false, errors.New("rule did not evaluate to boolean")
	}
	return matched, nil
}

// ruleParams flattens a booking and its commission into the expression
// context. Numeric fields are float64 for govaluate arithmetic.
func ruleParams(b *domainBooking.Booking, rec *domainCommission.CommissionRecord) map[string]interface{} {
	params := map[string]interface{}{
		"price":           float64(b.Price),
		"durationMinutes": float64(b.DurationMinutes),
		"responseStatus":  string(b.ResponseStatus),
		"providerKind":    string(b.ProviderKind),
		"serviceType":     b.ServiceType,
		"hasCommission":   rec != nil,
	}
	if rec != nil {
		params["amount"] = float64(rec.Amount)
		if b.AcceptedAt != nil {
			params["issueLatencyMs"] = float64(rec.CreatedAt.Sub(*b.AcceptedAt).Milliseconds())
		}
	}
	return params
}
