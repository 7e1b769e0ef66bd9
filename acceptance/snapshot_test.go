package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// The pricing snapshot is fixed at booking confirmation. Whatever happens
// to the rental afterwards, the payload read back must be byte-identical
// to the one returned at creation.
func TestPricingSnapshotFixedAtCreation(t *testing.T) {
	ts := NewTestServer(t)

	stationID := ts.CreateTestStation(t, "District 5 Hub")
	vehicleID := ts.CreateTestVehicle(t, "EV-0401", stationID)

	body := map[string]any{
		"bookingId":     uuid.NewString(),
		"customerId":    uuid.NewString(),
		"vehicleId":     vehicleID,
		"stationId":     stationID,
		"bookedStartAt": time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
		"bookedEndAt":   time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		"pricingSnapshot": map[string]any{
			"basePrice":      200000,
			"rate":           50000,
			"deposit":        500000,
			"insurancePrice": 15000,
			"taxes":          8000,
			"currency":       "VND",
			"rentalType":     "hourly",
			"durationUnits":  4,
			"policyVersion":  "2026-02",
			"rawBase":        197500,
			"hours":          4,
			"days":           0,
		},
	}

	var created struct {
		ID      string          `json:"id"`
		Pricing json.RawMessage `json:"pricingSnapshot"`
	}
	w := ts.POST("/rentals", body, asStaff("auth0|staff-a"))
	decodeData(t, w, http.StatusCreated, &created)
	if len(created.Pricing) == 0 {
		t.Fatal("expected a pricing snapshot on the create response")
	}

	fetchSnapshot := func() json.RawMessage {
		t.Helper()
		var got struct {
			Pricing json.RawMessage `json:"pricingSnapshot"`
		}
		w := ts.GET("/rentals/"+created.ID, asStaff("auth0|staff-a"))
		decodeData(t, w, http.StatusOK, &got)
		return got.Pricing
	}

	step := func(name, path string, body map[string]any) {
		t.Helper()
		w := ts.POST("/rentals/"+created.ID+path, body, asStaff("auth0|staff-a"))
		decodeData(t, w, http.StatusOK, nil)
		if got := fetchSnapshot(); !bytes.Equal(got, created.Pricing) {
			t.Fatalf("snapshot changed after %s:\nbefore %s\nafter  %s", name, created.Pricing, got)
		}
	}

	step("accept", "/handover/accept", map[string]any{
		"photos": photoRefs(3),
		"odoKm":  1000,
		"soc":    0.9,
	})
	step("return", "/return", map[string]any{
		"photos": photoRefs(1),
		"odoKm":  1010,
		"soc":    0.7,
	})
	step("settle", "/settle/cash", map[string]any{"amount": 0})
}
