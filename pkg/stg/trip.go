package stg

import "sort"

// AssignTrips groups legs into trips. Legs are ordered by wagon and report
// date; a Loaded leg opens a new trip, and a following Empty leg of the same
// wagon belongs to that trip (the empty run back from a delivery). Empty legs
// with no preceding Loaded leg, and legs without trip markers, stay at trip
// zero.
//
// The input is not mutated; the returned records carry trip IDs. Trip IDs are
// sequential in the sorted order, so identical inputs always produce
// identical assignments.
func AssignTrips(records []ShipmentRecord) []ShipmentRecord {
	out := make([]ShipmentRecord, len(records))
	copy(out, records)

	// Sort positions, not the output: the caller's row order is preserved.
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := out[order[a]], out[order[b]]
		if ra.Wagon != rb.Wagon {
			return ra.Wagon < rb.Wagon
		}
		return ra.EffectiveReportDate().Before(rb.EffectiveReportDate())
	})

	nextTrip := 0
	openTrip := 0
	currentWagon := ""

	for _, idx := range order {
		rec := &out[idx]
		if rec.Wagon == "" {
			continue
		}
		if rec.Wagon != currentWagon {
			currentWagon = rec.Wagon
			openTrip = 0
		}
		switch rec.LoadStatus {
		case LoadStatusLoaded:
			nextTrip++
			openTrip = nextTrip
			rec.TripID = openTrip
		case LoadStatusEmpty:
			rec.TripID = openTrip
		default:
			// Unknown status never joins a trip.
		}
	}

	return out
}

// TripIndex maps each trip to the shipment IDs of its member legs, with the
// opening Loaded leg first. Trip zero (unassigned legs) is excluded.
func TripIndex(records []ShipmentRecord) map[int][]string {
	index := make(map[int][]string)
	for _, rec := range records {
		if rec.TripID == 0 {
			continue
		}
		if rec.LoadStatus == LoadStatusLoaded {
			index[rec.TripID] = append([]string{rec.ShipmentID}, index[rec.TripID]...)
		} else {
			index[rec.TripID] = append(index[rec.TripID], rec.ShipmentID)
		}
	}
	return index
}
