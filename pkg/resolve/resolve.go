// Package resolve determines the winning reference entry for each shipment.
// Precedence across layers is fixed (Override > Exception > Base); ambiguity
// inside the winning layer is broken deterministically and flagged as a
// data-quality conflict rather than resolved silently. Unmatched shipments
// are reported, never dropped.
package resolve

import (
	"sort"

	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/reference"
	"github.com/railstation/railrec/pkg/stg"
)

// ResolvedRoute is the outcome of resolving one shipment against a snapshot.
// Exactly one ResolvedRoute exists per shipment record, matched or not.
type ResolvedRoute struct {
	ShipmentID      string                    `json:"shipment_id"`
	RouteID         string                    `json:"route_id,omitempty"`
	MatchedEntry    *reference.ReferenceEntry `json:"matched_entry,omitempty"`
	ResolutionLayer reference.Layer           `json:"resolution_layer,omitempty"`

	// Conflicts lists entry IDs that also matched but lost: same-layer ties
	// and lower-layer matches alike.
	Conflicts []string `json:"conflicts,omitempty"`

	// InheritedFrom names the trip's loaded leg this route was adopted
	// from. Empty when the shipment resolved directly.
	InheritedFrom string `json:"inherited_from,omitempty"`

	// Err carries the shipment's failure, if any: a reference conflict, a
	// route ID collision, or an expense imbalance. Never a run-level fatal.
	Err error `json:"-"`
}

// Matched reports whether a reference entry won.
func (r ResolvedRoute) Matched() bool {
	return r.MatchedEntry != nil
}

// Unmatched reports whether no layer had an applicable entry.
func (r ResolvedRoute) Unmatched() bool {
	return r.MatchedEntry == nil
}

// Conflicted reports whether same-layer ambiguity was flagged.
func (r *ResolvedRoute) Conflicted() bool {
	return errors.IsConflict(r.Err)
}

// Resolver matches shipments against one frozen snapshot. It holds no
// mutable state, so a single Resolver is shared across workers.
type Resolver struct {
	snapshot *reference.Snapshot
}

// NewResolver creates a Resolver over a snapshot. The snapshot must already
// be validated; the resolver treats it as read-only.
func NewResolver(snapshot *reference.Snapshot) *Resolver {
	return &Resolver{snapshot: snapshot}
}

// Resolve returns the ResolvedRoute for one shipment.
//
// Candidates are the entries of each layer whose match key selects the
// shipment's (origin, destination, carrier) and whose effective window
// contains the shipment date. The highest-precedence layer with any
// candidate wins; everything else that matched goes into Conflicts. More
// than one candidate inside the winning layer violates the reference
// invariant: the most specific key wins the tie-break and the shipment is
// flagged with a ConflictError, but resolution still completes.
func (r *Resolver) Resolve(rec *stg.ShipmentRecord) ResolvedRoute {
	resolved := ResolvedRoute{ShipmentID: rec.ShipmentID}

	var winner *reference.ReferenceEntry
	var sameLayer []string

	for _, layer := range reference.Layers() {
		candidates := r.candidates(layer, rec)
		if len(candidates) == 0 {
			continue
		}
		if winner == nil {
			ordered := orderBySpecificity(candidates)
			winner = ordered[0]
			resolved.ResolutionLayer = layer
			for _, e := range ordered[1:] {
				sameLayer = append(sameLayer, e.ID)
			}
			continue
		}
		// A lower layer also matched: record the losers.
		for _, e := range candidates {
			resolved.Conflicts = append(resolved.Conflicts, e.ID)
		}
	}

	if winner == nil {
		return resolved
	}

	resolved.MatchedEntry = winner
	if len(sameLayer) > 0 {
		resolved.Conflicts = append(sameLayer, resolved.Conflicts...)
		resolved.Err = errors.NewConflictError(rec.ShipmentID, resolved.ResolutionLayer.String(), sameLayer)
	}
	return resolved
}

// candidates returns the layer's entries applicable to the shipment.
func (r *Resolver) candidates(layer reference.Layer, rec *stg.ShipmentRecord) []*reference.ReferenceEntry {
	entries := r.snapshot.Entries(layer)
	var out []*reference.ReferenceEntry
	for i := range entries {
		if entries[i].Matches(rec.Origin, rec.Destination, rec.Carrier, rec.ShipmentDate) {
			out = append(out, &entries[i])
		}
	}
	return out
}

// orderBySpecificity sorts candidates best-first: most constrained match key
// wins, then lexicographic entry ID as the final deterministic fallback.
func orderBySpecificity(entries []*reference.ReferenceEntry) []*reference.ReferenceEntry {
	out := make([]*reference.ReferenceEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(a, b int) bool {
		sa, sb := out[a].Specificity(), out[b].Specificity()
		if sa != sb {
			return sa > sb
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// InheritTrips fills unmatched legs from their trip's resolved loaded leg.
// Only legs that resolved directly can donate; a direct match is never
// overridden. The records and routes must be index-aligned. Returns how many
// routes were inherited.
func InheritTrips(records []stg.ShipmentRecord, routes []ResolvedRoute) int {
	type donor struct {
		routeID string
		entry   *reference.ReferenceEntry
		layer   reference.Layer
		from    string
	}
	donors := make(map[int]donor)

	for i := range records {
		rec := &records[i]
		if rec.TripID == 0 || rec.LoadStatus != stg.LoadStatusLoaded {
			continue
		}
		rt := &routes[i]
		if rt.Matched() && rt.RouteID != "" && rt.Err == nil {
			donors[rec.TripID] = donor{
				routeID: rt.RouteID,
				entry:   rt.MatchedEntry,
				layer:   rt.ResolutionLayer,
				from:    rt.ShipmentID,
			}
		}
	}

	inherited := 0
	for i := range records {
		rec := &records[i]
		rt := &routes[i]
		if rec.TripID == 0 || rt.Matched() || rt.Err != nil {
			continue
		}
		d, ok := donors[rec.TripID]
		if !ok || d.from == rt.ShipmentID {
			continue
		}
		rt.RouteID = d.routeID
		rt.MatchedEntry = d.entry
		rt.ResolutionLayer = d.layer
		rt.InheritedFrom = d.from
		inherited++
	}
	return inherited
}
