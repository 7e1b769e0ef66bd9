// Package vehicle is the read-mostly EV directory. The rental engine
// consults it for the "vehicle available at station" handover precondition
// and updates its status inside the handover/return transactions.
package vehicle

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusRented      Status = "RENTED"
	StatusMaintenance Status = "MAINTENANCE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusMaintenance:
		return true
	}
	return false
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Vehicle represents one EV in the fleet.
type Vehicle struct {
	// ID is the internal identifier.
	ID uuid.UUID
	// Label is the physical plate/sticker on the vehicle, scannable at the
	// station (e.g. "EV-0421").
	Label string

	Status Status

	Location pgtype.Point

	// BatterySoc is the last reported state of charge, 0.0-1.0.
	BatterySoc float64 `db:"battery_soc"`
	// OdoKm is the last recorded odometer reading.
	OdoKm int64 `db:"odo_km"`

	StationID   *uuid.UUID `db:"station_id"`
	StationName *string    `db:"station_name"`

	// DisplayName is the customer-facing model name (e.g. "VinFast Evo200").
	DisplayName *string `db:"display_name"`
	ImageURL    *string `db:"image_url"`
}
