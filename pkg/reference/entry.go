package reference

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/railstation/railrec/pkg/constants"
)

// Wildcard matches any value in a match key field. An empty field means the
// same thing.
const Wildcard = "*"

// MatchKey is the selector of a reference entry: which shipments it applies
// to. Origin, destination, and carrier may be wildcards; the effective window
// may be open on either end. EffectiveTo is inclusive.
type MatchKey struct {
	Origin        string     `json:"origin,omitempty" yaml:"origin,omitempty"`
	Destination   string     `json:"destination,omitempty" yaml:"destination,omitempty"`
	Carrier       string     `json:"carrier,omitempty" yaml:"carrier,omitempty"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty" yaml:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" yaml:"effective_to,omitempty"`
}

// Matches reports whether the key selects a shipment with the given
// attributes on the given date.
func (k MatchKey) Matches(origin, destination, carrier string, date time.Time) bool {
	if !fieldMatches(k.Origin, origin) {
		return false
	}
	if !fieldMatches(k.Destination, destination) {
		return false
	}
	if !fieldMatches(k.Carrier, carrier) {
		return false
	}
	return k.InWindow(date)
}

// InWindow reports whether the date falls inside the effective window.
// Comparison is at day granularity; the upper bound is inclusive.
func (k MatchKey) InWindow(date time.Time) bool {
	d := DateOnly(date)
	if k.EffectiveFrom != nil && d.Before(DateOnly(*k.EffectiveFrom)) {
		return false
	}
	if k.EffectiveTo != nil && d.After(DateOnly(*k.EffectiveTo)) {
		return false
	}
	return true
}

// Specificity counts the constrained fields of the key. A higher count wins
// the same-layer tie-break.
func (k MatchKey) Specificity() int {
	n := 0
	for _, f := range []string{k.Origin, k.Destination, k.Carrier} {
		if !isWildcard(f) {
			n++
		}
	}
	if k.EffectiveFrom != nil {
		n++
	}
	if k.EffectiveTo != nil {
		n++
	}
	return n
}

func fieldMatches(keyField, value string) bool {
	if isWildcard(keyField) {
		return true
	}
	return keyField == value
}

func isWildcard(s string) bool {
	return s == "" || s == Wildcard
}

// DateOnly truncates a time to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RateComponent is one priced component of a rate rule, e.g. base freight or
// a fuel adjustment.
type RateComponent struct {
	Component string          `json:"component" yaml:"component"`
	Amount    decimal.Decimal `json:"amount" yaml:"amount"`
}

// RateRule is the pricing attached to a reference entry. DeclaredTotal, when
// present, is what the components must sum to within one minimal currency
// unit after rounding.
type RateRule struct {
	Currency      string           `json:"currency,omitempty" yaml:"currency,omitempty"`
	Components    []RateComponent  `json:"components" yaml:"components"`
	DeclaredTotal *decimal.Decimal `json:"declared_total,omitempty" yaml:"declared_total,omitempty"`
}

// Total returns the declared total, or the exact component sum when none is
// declared.
func (r RateRule) Total() decimal.Decimal {
	if r.DeclaredTotal != nil {
		return *r.DeclaredTotal
	}
	sum := decimal.Zero
	for _, c := range r.Components {
		sum = sum.Add(c.Amount)
	}
	return sum
}

// CurrencyOrDefault returns the rule's currency, falling back to the system
// default when the rule names none.
func (r RateRule) CurrencyOrDefault() string {
	if r.Currency != "" {
		return r.Currency
	}
	return constants.DefaultCurrency
}

// Empty reports whether the rule prices nothing.
func (r RateRule) Empty() bool {
	return len(r.Components) == 0
}

// ReferenceEntry is one row of a reference table. Entries are read-only for
// the duration of a run.
type ReferenceEntry struct {
	ID              string            `json:"id" yaml:"id" validate:"required"`
	MatchKey        MatchKey          `json:"match_key" yaml:"match_key"`
	RouteAttributes map[string]string `json:"route_attributes" yaml:"route_attributes" validate:"required,min=1"`
	RateRule        RateRule          `json:"rate_rule" yaml:"rate_rule"`
	SourceLayer     Layer             `json:"source_layer" yaml:"source_layer" validate:"required,oneof=Base Exception Override"`
}

// Matches reports whether the entry applies to the given shipment attributes.
func (e *ReferenceEntry) Matches(origin, destination, carrier string, date time.Time) bool {
	return e.MatchKey.Matches(origin, destination, carrier, date)
}

// Specificity returns the entry's tie-break strength.
func (e *ReferenceEntry) Specificity() int {
	return e.MatchKey.Specificity()
}
