package reference

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/railstation/railrec/pkg/errors"
)

var validate = validator.New()

// Lint runs data-quality checks over a snapshot: per-entry structural
// validation, effective-window ordering, and overlapping windows between
// same-key entries of one layer. Findings are returned as a list; an empty
// list means the snapshot is clean. A structurally unusable snapshot yields
// a single finding.
func (s *Snapshot) Lint() []error {
	if err := s.Validate(); err != nil {
		return []error{err}
	}

	var findings []error
	for _, layer := range Layers() {
		entries := s.Entries(layer)
		for i := range entries {
			findings = append(findings, lintEntry(&entries[i])...)
		}
		findings = append(findings, lintOverlaps(layer, entries)...)
	}
	return findings
}

func lintEntry(e *ReferenceEntry) []error {
	var findings []error

	if err := validate.Struct(e); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, verr := range verrs {
				findings = append(findings, errors.NewValidationError(
					0, verr.Field(), verr.Value(),
					fmt.Sprintf("entry %s failed %s validation", e.ID, verr.Tag())))
			}
		} else {
			findings = append(findings, err)
		}
	}

	k := e.MatchKey
	if k.EffectiveFrom != nil && k.EffectiveTo != nil && k.EffectiveTo.Before(*k.EffectiveFrom) {
		findings = append(findings, errors.NewValidationError(
			0, "effective_to", k.EffectiveTo,
			fmt.Sprintf("entry %s window ends before it starts", e.ID)))
	}

	for _, c := range e.RateRule.Components {
		if c.Amount.IsNegative() {
			findings = append(findings, errors.NewValidationError(
				0, "amount", c.Amount.String(),
				fmt.Sprintf("entry %s component %s has a negative amount", e.ID, c.Component)))
		}
	}

	return findings
}

// lintOverlaps flags pairs of entries in one layer whose selector fields are
// identical and whose effective windows intersect. Such pairs will produce a
// conflict for every shipment they both match.
func lintOverlaps(layer Layer, entries []ReferenceEntry) []error {
	var findings []error
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			a, b := &entries[i], &entries[j]
			if !sameSelector(a.MatchKey, b.MatchKey) {
				continue
			}
			if windowsOverlap(a.MatchKey, b.MatchKey) {
				findings = append(findings, errors.NewConflictError(
					"", layer.String(), []string{a.ID, b.ID}))
			}
		}
	}
	return findings
}

func sameSelector(a, b MatchKey) bool {
	return a.Origin == b.Origin && a.Destination == b.Destination && a.Carrier == b.Carrier
}

// windowsOverlap treats open ends as unbounded. Upper bounds are inclusive.
func windowsOverlap(a, b MatchKey) bool {
	aStartsBeforeBEnds := b.EffectiveTo == nil || a.EffectiveFrom == nil ||
		!DateOnly(*a.EffectiveFrom).After(DateOnly(*b.EffectiveTo))
	bStartsBeforeAEnds := a.EffectiveTo == nil || b.EffectiveFrom == nil ||
		!DateOnly(*b.EffectiveFrom).After(DateOnly(*a.EffectiveTo))
	return aStartsBeforeBEnds && bStartsBeforeAEnds
}
