// Package rental owns the lifecycle of a single vehicle rental, from the
// confirmed booking through handover, return inspection and settlement.
package rental

import (
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed     Status = "CONFIRMED"
	StatusOngoing       Status = "ONGOING"
	StatusReturnPending Status = "RETURN_PENDING"
	StatusCompleted     Status = "COMPLETED"
	StatusRejected      Status = "REJECTED"
	StatusCancelled     Status = "CANCELLED"
	StatusDisputed      Status = "DISPUTED"
)

// Terminal reports whether no further transition can leave the status.
// DISPUTED is deliberately not terminal: it exits to COMPLETED or REJECTED
// through a manual resolution.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusOngoing, StatusReturnPending,
		StatusCompleted, StatusRejected, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

type RentalType string

const (
	TypeHourly RentalType = "hourly"
	TypeDaily  RentalType = "daily"
)

// PricingSnapshot is the price quote fixed at booking confirmation. It is
// write-once: no transition touches these columns after the rental row is
// created. RawBase, Hours and Days retain the computation inputs for audit
// and are never recomputed.
type PricingSnapshot struct {
	BasePrice      int64      `db:"base_price" json:"basePrice"`
	Rate           int64      `db:"rate" json:"rate"`
	Deposit        int64      `db:"deposit" json:"deposit"`
	InsurancePrice int64      `db:"insurance_price" json:"insurancePrice"`
	Taxes          int64      `db:"taxes" json:"taxes"`
	Currency       string     `db:"currency" json:"currency"`
	RentalType     RentalType `db:"rental_type" json:"rentalType"`
	DurationUnits  int32      `db:"duration_units" json:"durationUnits"`
	PolicyVersion  string     `db:"policy_version" json:"policyVersion"`

	RawBase int64 `db:"raw_base" json:"rawBase"`
	Hours   int32 `db:"raw_hours" json:"hours"`
	Days    int32 `db:"raw_days" json:"days"`
}

// Rental is the aggregate root. All money is in integer minor units of
// Pricing.Currency.
type Rental struct {
	ID         uuid.UUID `db:"id"`
	BookingID  uuid.UUID `db:"booking_id"`
	CustomerID uuid.UUID `db:"customer_id"`
	VehicleID  uuid.UUID `db:"vehicle_id"`
	StationID  uuid.UUID `db:"station_id"`

	Status  Status `db:"status"`
	Version int64  `db:"version"`

	PricingSnapshot

	// DepositIntentID is set when the deposit was taken as a card hold;
	// refunds then go back to the card instead of being paid out in cash.
	DepositIntentID sql.NullString `db:"deposit_intent_id"`

	BookedStartAt time.Time `db:"booked_start_at"`
	BookedEndAt   time.Time `db:"booked_end_at"`

	PickedUpAt    sql.NullTime    `db:"picked_up_at"`
	PickupStaffID uuid.NullUUID   `db:"pickup_staff_id"`
	PickupOdoKm   sql.NullInt64   `db:"pickup_odo_km"`
	PickupSoc     sql.NullFloat64 `db:"pickup_soc"`
	PickupNotes   sql.NullString  `db:"pickup_notes"`

	RejectedAt    sql.NullTime   `db:"rejected_at"`
	RejectStaffID uuid.NullUUID  `db:"reject_staff_id"`
	RejectReason  sql.NullString `db:"reject_reason"`

	ReturnedAt    sql.NullTime    `db:"returned_at"`
	ReturnStaffID uuid.NullUUID   `db:"return_staff_id"`
	ReturnOdoKm   sql.NullInt64   `db:"return_odo_km"`
	ReturnSoc     sql.NullFloat64 `db:"return_soc"`

	RentalFee   sql.NullInt64 `db:"rental_fee"`
	LateFee     sql.NullInt64 `db:"late_fee"`
	DamageFee   sql.NullInt64 `db:"damage_fee"`
	CleaningFee sql.NullInt64 `db:"cleaning_fee"`
	OtherFees   sql.NullInt64 `db:"other_fees"`
	ExtraFees   sql.NullInt64 `db:"extra_fees"`
	TotalCharge sql.NullInt64 `db:"total_charge"`

	DisputeNote    sql.NullString `db:"dispute_note"`
	ResolutionNote sql.NullString `db:"resolution_note"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Charges returns the settled charge record. The second return is false
// until a return has been recorded; before that the charges are undefined,
// not zero.
func (r Rental) Charges() (Charges, bool) {
	if !r.TotalCharge.Valid {
		return Charges{}, false
	}
	return Charges{
		RentalFee:   r.RentalFee.Int64,
		LateFee:     r.LateFee.Int64,
		DamageFee:   r.DamageFee.Int64,
		CleaningFee: r.CleaningFee.Int64,
		OtherFees:   r.OtherFees.Int64,
		ExtraFees:   r.ExtraFees.Int64,
		Total:       r.TotalCharge.Int64,
	}, true
}

// Transition is one audit row: who moved the rental between which statuses.
type Transition struct {
	ID         int64     `db:"id"`
	RentalID   uuid.UUID `db:"rental_id"`
	FromStatus Status    `db:"from_status"`
	ToStatus   Status    `db:"to_status"`
	Actor      string    `db:"actor"`
	OccurredAt time.Time `db:"occurred_at"`
}
