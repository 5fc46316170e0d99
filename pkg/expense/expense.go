// Package expense turns resolved routes into expense line items. All currency
// arithmetic stays in fixed-point decimal; rounding happens exactly once, at
// the final line-amount stage, and its mode is a configurable default. The
// rounded components must reconcile against the rule's declared total within
// one minimal currency unit.
package expense

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/railstation/railrec/pkg/constants"
	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/resolve"
)

const (
	// RoundHalfEven is banker's rounding, the default mode.
	RoundHalfEven RoundingMode = "half_even"
	// RoundHalfUp rounds ties away from zero.
	RoundHalfUp RoundingMode = "half_up"
)

// RoundingMode selects how line amounts are rounded to the currency's
// minor unit.
type RoundingMode string

// String returns the string representation of a RoundingMode.
func (m RoundingMode) String() string {
	return string(m)
}

// ParseRoundingMode parses a mode name. Empty input selects the default.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "half_even", "half-even", "bankers":
		return RoundHalfEven, nil
	case "half_up", "half-up":
		return RoundHalfUp, nil
	default:
		return "", errors.NewValidationError(0, "rounding_mode", s, "unknown rounding mode")
	}
}

// Line is one priced component of a shipment's expense. Components of the
// same shipment share a route ID; their rounded amounts reconcile against
// the rule's total.
type Line struct {
	ShipmentID      string          `json:"shipment_id"`
	RouteID         string          `json:"route_id"`
	Component       string          `json:"component"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	RoundingApplied bool            `json:"rounding_applied,omitempty"`
}

// minorUnits maps currency codes to their minor-unit exponent. Unlisted
// currencies use the default.
var minorUnits = map[string]int32{
	"RUB": 2,
	"USD": 2,
	"EUR": 2,
	"KZT": 2,
	"CNY": 2,
	"JPY": 0,
}

// Exponent returns the minor-unit exponent for a currency code.
func Exponent(currency string) int32 {
	if exp, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return exp
	}
	return constants.DefaultCurrencyExponent
}

// Calculator produces expense lines from resolved routes. Stateless; one
// Calculator is shared across workers.
type Calculator struct {
	mode RoundingMode
}

// NewCalculator creates a Calculator with the given rounding mode. An empty
// mode selects the default.
func NewCalculator(mode RoundingMode) *Calculator {
	if mode == "" {
		mode = RoundHalfEven
	}
	return &Calculator{mode: mode}
}

// Calculate produces one line per rate component of the route's matched
// entry. Unmatched routes and routes without a priced rule produce no lines
// and no error. An imbalance between the rounded component sum and the
// rule's declared total beyond one minimal currency unit is an
// ImbalanceError, fatal for this shipment only.
func (c *Calculator) Calculate(rt *resolve.ResolvedRoute) ([]Line, error) {
	if rt.MatchedEntry == nil {
		return nil, nil
	}
	rule := rt.MatchedEntry.RateRule
	if rule.Empty() {
		return nil, nil
	}

	currency := rule.CurrencyOrDefault()
	exp := Exponent(currency)

	lines := make([]Line, 0, len(rule.Components))
	sum := decimal.Zero
	for _, comp := range rule.Components {
		rounded := c.round(comp.Amount, exp)
		lines = append(lines, Line{
			ShipmentID:      rt.ShipmentID,
			RouteID:         rt.RouteID,
			Component:       comp.Component,
			Amount:          rounded,
			Currency:        currency,
			RoundingApplied: !rounded.Equal(comp.Amount),
		})
		sum = sum.Add(rounded)
	}

	// Conservation: one minimal currency unit of accumulated drift is
	// tolerated, anything beyond is a calculation error.
	declared := c.round(rule.Total(), exp)
	unit := decimal.New(1, -exp)
	if sum.Sub(declared).Abs().GreaterThan(unit) {
		return nil, errors.NewImbalanceError(rt.ShipmentID, declared.String(), sum.String(), unit.String())
	}

	return lines, nil
}

func (c *Calculator) round(d decimal.Decimal, exp int32) decimal.Decimal {
	switch c.mode {
	case RoundHalfUp:
		return d.Round(exp)
	default:
		return d.RoundBank(exp)
	}
}

// Totals sums line amounts per currency. Order-independent, so it merges
// worker output safely.
func Totals(lines []Line) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, l := range lines {
		totals[l.Currency] = totals[l.Currency].Add(l.Amount)
	}
	return totals
}
