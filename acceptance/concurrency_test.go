package acceptance

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Concurrent transitions on the same rental must serialize: exactly one
// writer wins and the rest observe the state it left behind.
func TestConcurrentAcceptSingleWinner(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 7 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0201", stationID)
	rentalID := ts.CreateTestRental(t, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})

	// Evidence goes in up front so every contender passes the photo gate.
	for _, p := range photoRefs(3) {
		w := ts.POST("/rentals/"+rentalID+"/evidence", map[string]any{
			"id":    p["id"],
			"phase": "PICKUP",
			"url":   p["url"],
		}, asStaff("auth0|staff-a"))
		decodeData(t, w, http.StatusCreated, nil)
	}

	const contenders = 5

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
				"photos": []map[string]string{},
			}, asStaff("auth0|staff-a"))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, w := range results {
		switch w.Code {
		case http.StatusOK:
			won++
		case http.StatusConflict:
			lost++
		default:
			t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
		}
	}
	if won != 1 || lost != contenders-1 {
		t.Fatalf("expected exactly one winner, got %d winners and %d losers", won, lost)
	}

	var version int64
	if err := ts.DB.Get(&version, `SELECT version FROM rentals WHERE id = $1`, rentalID); err != nil {
		t.Fatalf("failed to read rental version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected a single version bump, got version %d", version)
	}
}

func TestConcurrentSettleNoDoubleCollection(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 7 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0202", stationID)
	rentalID := startOngoingRental(t, ts, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})
	recordReturn(t, ts, rentalID, []map[string]any{
		{"kind": "damage", "amount": 400000, "reason": "cracked rear light"},
	})

	// Two desks try to collect the same 100000 balance at once.
	const contenders = 2

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ts.POST("/rentals/"+rentalID+"/settle/cash", map[string]any{
				"amount": 100000,
			}, asStaff("auth0|staff-b"))
		}(i)
	}
	wg.Wait()

	var won int
	for _, w := range results {
		switch w.Code {
		case http.StatusOK:
			won++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one settlement to land, got %d", won)
	}

	// Only one payment row exists; the loser did not double-collect.
	var paid int64
	if err := ts.DB.Get(&paid, `SELECT COALESCE(sum(amount), 0) FROM payments WHERE rental_id = $1 AND type = 'CASH'`, rentalID); err != nil {
		t.Fatalf("failed to sum payments: %v", err)
	}
	if paid != 100000 {
		t.Fatalf("expected 100000 collected exactly once, got %d", paid)
	}
}
