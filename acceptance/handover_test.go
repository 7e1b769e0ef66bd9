package acceptance

import (
	"net/http"
	"testing"
)

func TestAcceptHandover(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 1 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0001", stationID)
	rentalID := ts.CreateTestRental(t, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})

	w := ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
		"photos": photoRefs(3),
		"odoKm":  1000,
		"soc":    0.9,
		"notes":  "small scratch on left mirror",
	}, asStaff("auth0|staff-a"))

	var rt rentalView
	decodeData(t, w, http.StatusOK, &rt)
	if rt.Status != "ONGOING" {
		t.Fatalf("expected ONGOING after accept, got %s", rt.Status)
	}
	if got := ts.VehicleStatus(t, vehicleID); got != "RENTED" {
		t.Fatalf("expected vehicle RENTED after accept, got %s", got)
	}

	// Accepting twice is a state error, not a repeat.
	w = ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
		"photos": photoRefs(3),
	}, asStaff("auth0|staff-a"))
	requireError(t, w, http.StatusConflict, "INVALID_STATE")
}

func TestAcceptHandover_RequiresThreePhotos(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 1 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0002", stationID)
	rentalID := ts.CreateTestRental(t, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})

	w := ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
		"photos": photoRefs(2),
	}, asStaff("auth0|staff-a"))
	requireError(t, w, http.StatusBadRequest, "VALIDATION_FAILED")

	// The two photos are registered; topping up to three lets the accept
	// through without resubmitting them.
	w = ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
		"photos": photoRefs(1),
	}, asStaff("auth0|staff-a"))

	var rt rentalView
	decodeData(t, w, http.StatusOK, &rt)
	if rt.Status != "ONGOING" {
		t.Fatalf("expected ONGOING, got %s", rt.Status)
	}
}

func TestAcceptHandover_VehicleUnavailable(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 1 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0003", stationID)
	rentalID := ts.CreateTestRental(t, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})

	if _, err := ts.DB.Exec(`UPDATE vehicles SET status = 'MAINTENANCE' WHERE id = $1`, vehicleID); err != nil {
		t.Fatalf("failed to set vehicle status: %v", err)
	}

	w := ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
		"photos": photoRefs(3),
	}, asStaff("auth0|staff-a"))
	requireError(t, w, http.StatusUnprocessableEntity, "VEHICLE_UNAVAILABLE")
}

func TestRejectHandover(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 1 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0004", stationID)
	rentalID := ts.CreateTestRental(t, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})

	w := ts.POST("/rentals/"+rentalID+"/handover/reject", map[string]any{
		"reason": "abc",
	}, asStaff("auth0|staff-a"))
	requireError(t, w, http.StatusBadRequest, "VALIDATION_FAILED")

	w = ts.POST("/rentals/"+rentalID+"/handover/reject", map[string]any{
		"reason": "customer arrived without a valid licence",
		"photos": photoRefs(1),
	}, asStaff("auth0|staff-a"))

	var rt rentalView
	decodeData(t, w, http.StatusOK, &rt)
	if rt.Status != "REJECTED" {
		t.Fatalf("expected REJECTED, got %s", rt.Status)
	}

	// The vehicle never left the station.
	if got := ts.VehicleStatus(t, vehicleID); got != "AVAILABLE" {
		t.Fatalf("expected vehicle AVAILABLE after reject, got %s", got)
	}
}

func TestCancelRental(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 1 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0005", stationID)

	t.Run("before pickup", func(t *testing.T) {
		rentalID := ts.CreateTestRental(t, rentalParams{
			VehicleID: vehicleID,
			StationID: stationID,
			BasePrice: 200000,
			Rate:      50000,
			Deposit:   500000,
		})

		w := ts.POST("/rentals/"+rentalID+"/cancel", nil, asStaff("auth0|staff-a"))

		var rt rentalView
		decodeData(t, w, http.StatusOK, &rt)
		if rt.Status != "CANCELLED" {
			t.Fatalf("expected CANCELLED, got %s", rt.Status)
		}
	})

	t.Run("after pickup", func(t *testing.T) {
		rentalID := ts.CreateTestRental(t, rentalParams{
			VehicleID: vehicleID,
			StationID: stationID,
			BasePrice: 200000,
			Rate:      50000,
			Deposit:   500000,
		})

		w := ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
			"photos": photoRefs(3),
			"odoKm":  1000,
			"soc":    0.9,
		}, asStaff("auth0|staff-a"))
		decodeData(t, w, http.StatusOK, nil)

		w = ts.POST("/rentals/"+rentalID+"/cancel", nil, asStaff("auth0|staff-a"))
		requireError(t, w, http.StatusConflict, "INVALID_STATE")
	})
}

func TestAuditTrail(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 1 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0006", stationID)
	rentalID := ts.CreateTestRental(t, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})

	w := ts.POST("/rentals/"+rentalID+"/handover/accept", map[string]any{
		"photos": photoRefs(3),
	}, asStaff("auth0|staff-a"))
	decodeData(t, w, http.StatusOK, nil)

	w = ts.GET("/rentals/"+rentalID, asStaff("auth0|staff-a"))

	var rt rentalView
	decodeData(t, w, http.StatusOK, &rt)
	if len(rt.Transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(rt.Transitions))
	}
	tr := rt.Transitions[0]
	if tr.From != "CONFIRMED" || tr.To != "ONGOING" {
		t.Fatalf("unexpected transition %s -> %s", tr.From, tr.To)
	}
	if tr.Actor == "" || tr.Actor == "system" {
		t.Fatalf("expected staff attribution on accept, got %q", tr.Actor)
	}
}

func TestEvidenceRegistrationIdempotent(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 1 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0007", stationID)
	rentalID := ts.CreateTestRental(t, rentalParams{
		VehicleID: vehicleID,
		StationID: stationID,
		BasePrice: 200000,
		Rate:      50000,
		Deposit:   500000,
	})

	p := photoRefs(1)[0]
	register := func() int {
		t.Helper()
		w := ts.POST("/rentals/"+rentalID+"/evidence", map[string]any{
			"id":    p["id"],
			"phase": "PICKUP",
			"url":   p["url"],
		}, asStaff("auth0|staff-a"))

		var out struct {
			PhaseCount int `json:"phaseCount"`
		}
		decodeData(t, w, http.StatusCreated, &out)
		return out.PhaseCount
	}

	if got := register(); got != 1 {
		t.Fatalf("expected phase count 1 after first registration, got %d", got)
	}
	// A retried upload confirms the reference without raising the count.
	if got := register(); got != 1 {
		t.Fatalf("duplicate registration must not raise the count, got %d", got)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := NewTestServer(t)

	w := ts.POST("/rentals", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}
}
