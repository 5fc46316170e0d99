package stg

import (
	"testing"
	"time"
)

func leg(t *testing.T, wagon, id, reportDate string, status LoadStatus) ShipmentRecord {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", reportDate, time.UTC)
	if err != nil {
		t.Fatalf("bad test date %q: %v", reportDate, err)
	}
	return ShipmentRecord{
		ShipmentID:   id,
		Origin:       "A",
		Destination:  "B",
		ShipmentDate: d,
		ReportDate:   d,
		Wagon:        wagon,
		LoadStatus:   status,
	}
}

func TestAssignTrips(t *testing.T) {
	records := []ShipmentRecord{
		leg(t, "00000001", "w1-load1", "2024-03-01", LoadStatusLoaded),
		leg(t, "00000001", "w1-empty1", "2024-03-05", LoadStatusEmpty),
		leg(t, "00000001", "w1-load2", "2024-03-10", LoadStatusLoaded),
		leg(t, "00000002", "w2-empty-orphan", "2024-03-01", LoadStatusEmpty),
		leg(t, "00000002", "w2-load1", "2024-03-02", LoadStatusLoaded),
	}

	out := AssignTrips(records)

	byID := make(map[string]ShipmentRecord, len(out))
	for _, r := range out {
		byID[r.ShipmentID] = r
	}

	if byID["w1-load1"].TripID == 0 {
		t.Error("loaded leg should open a trip")
	}
	if byID["w1-empty1"].TripID != byID["w1-load1"].TripID {
		t.Error("empty leg should inherit the open trip of its wagon")
	}
	if byID["w1-load2"].TripID == byID["w1-load1"].TripID {
		t.Error("a second loaded leg opens a new trip")
	}
	if byID["w2-empty-orphan"].TripID != 0 {
		t.Error("an empty leg before any loaded leg stays at trip zero")
	}
	if byID["w2-load1"].TripID == 0 || byID["w2-load1"].TripID == byID["w1-load1"].TripID {
		t.Error("trips never span wagons")
	}
}

func TestAssignTripsDoesNotMutateInput(t *testing.T) {
	records := []ShipmentRecord{
		leg(t, "00000001", "a", "2024-03-01", LoadStatusLoaded),
	}
	_ = AssignTrips(records)
	if records[0].TripID != 0 {
		t.Error("input records must not be mutated")
	}
}

func TestAssignTripsPreservesRowOrder(t *testing.T) {
	records := []ShipmentRecord{
		leg(t, "00000002", "second-wagon", "2024-03-01", LoadStatusLoaded),
		leg(t, "00000001", "first-wagon", "2024-03-01", LoadStatusLoaded),
	}
	out := AssignTrips(records)
	if out[0].ShipmentID != "second-wagon" || out[1].ShipmentID != "first-wagon" {
		t.Error("AssignTrips must keep the caller's row order")
	}
}

func TestAssignTripsDeterministic(t *testing.T) {
	records := []ShipmentRecord{
		leg(t, "00000001", "a", "2024-03-01", LoadStatusLoaded),
		leg(t, "00000001", "b", "2024-03-02", LoadStatusEmpty),
		leg(t, "00000002", "c", "2024-03-01", LoadStatusLoaded),
		leg(t, "00000002", "d", "2024-03-03", LoadStatusEmpty),
	}

	first := AssignTrips(records)
	for i := 0; i < 50; i++ {
		again := AssignTrips(records)
		for j := range again {
			if again[j].TripID != first[j].TripID {
				t.Fatalf("run %d: trip assignment changed for %s", i, again[j].ShipmentID)
			}
		}
	}
}

func TestAssignTripsIgnoresWagonlessRows(t *testing.T) {
	rec := leg(t, "", "no-wagon", "2024-03-01", LoadStatusLoaded)
	out := AssignTrips([]ShipmentRecord{rec})
	if out[0].TripID != 0 {
		t.Error("rows without a wagon never join trips")
	}
}

func TestTripIndex(t *testing.T) {
	records := []ShipmentRecord{
		leg(t, "00000001", "empty-leg", "2024-03-05", LoadStatusEmpty),
		leg(t, "00000001", "loaded-leg", "2024-03-01", LoadStatusLoaded),
	}
	out := AssignTrips(records)

	index := TripIndex(out)
	if len(index) != 1 {
		t.Fatalf("trips = %d, want 1", len(index))
	}
	for _, members := range index {
		if len(members) != 2 {
			t.Fatalf("members = %d, want 2", len(members))
		}
		if members[0] != "loaded-leg" {
			t.Errorf("opening leg should come first, got %v", members)
		}
	}
}

func TestIdentity(t *testing.T) {
	rec := ShipmentRecord{ShipmentID: "custom", Wagon: "00000001", Invoice: "N1"}
	if rec.Identity() != "00000001|N1" {
		t.Errorf("Identity() = %q", rec.Identity())
	}
	rec.Invoice = ""
	if rec.Identity() != "custom" {
		t.Errorf("Identity() fallback = %q", rec.Identity())
	}
}
