// Package evidence stores photo references tied to a rental and a handover
// phase. Photos are append-only: they are never mutated or moved between
// rentals, and registration is idempotent per client-generated reference so
// uploads can be retried freely before the transition that consumes them.
package evidence

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Phase string

const (
	PhasePickup       Phase = "PICKUP"
	PhasePickupReject Phase = "PICKUP_REJECT"
	PhaseReturn       Phase = "RETURN"
)

func (p Phase) Valid() bool {
	switch p {
	case PhasePickup, PhasePickupReject, PhaseReturn:
		return true
	}
	return false
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// Photo is one evidence reference. ID is generated by the uploading client
// and doubles as the idempotency key. URL points into the external object
// store; the engine never holds image bytes.
type Photo struct {
	ID       uuid.UUID `db:"id" json:"id"`
	RentalID uuid.UUID `db:"rental_id" json:"rentalId"`
	Phase    Phase     `db:"phase" json:"phase"`
	URL      string    `db:"url" json:"url"`
	TakenAt  time.Time `db:"taken_at" json:"takenAt"`
}
