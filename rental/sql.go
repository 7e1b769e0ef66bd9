package rental

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrVehicleUnavailable is returned when the handover precondition on the
// vehicle directory fails: the vehicle is not AVAILABLE at the rental's
// station at accept time.
var ErrVehicleUnavailable = errors.New("vehicle is not available at the station")

// ErrAmountMismatch covers the refund path of cash settlement: the staff
// must enter the exact refund delta (or zero); there is no change-making.
var ErrAmountMismatch = errors.New("payment amount does not match the expected settlement amount")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a CONFIRMED rental with its pricing snapshot fixed. The
// snapshot columns are never written again after this.
func (r *Repository) Create(ctx context.Context, rt *Rental) error {
	return r.db.GetContext(ctx, rt, createQuery,
		rt.ID, rt.BookingID, rt.CustomerID, rt.VehicleID, rt.StationID,
		rt.BasePrice, rt.Rate, rt.Deposit,
		rt.InsurancePrice, rt.Taxes, rt.Currency,
		rt.RentalType, rt.DurationUnits, rt.PolicyVersion,
		rt.RawBase, rt.Hours, rt.Days,
		rt.DepositIntentID, rt.BookedStartAt, rt.BookedEndAt,
	)
}

const createQuery = `
INSERT INTO rentals (
  id, booking_id, customer_id, vehicle_id, station_id, status, version,
  base_price, rate, deposit, insurance_price, taxes, currency, rental_type,
  duration_units, policy_version, raw_base, raw_hours, raw_days,
  deposit_intent_id, booked_start_at, booked_end_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, 'CONFIRMED', 1,
        $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
        $18, $19, $20, now(), now())
RETURNING *
`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Rental, error) {
	var rt Rental
	err := r.db.GetContext(ctx, &rt, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrNotFound
	}
	return rt, err
}

const getByIDQuery = `SELECT * FROM rentals WHERE id = $1`

// ListByStation fetches rentals at a station ordered by creation time,
// newest first, optionally filtered by status. It also returns the total
// matching count for pagination metadata.
func (r *Repository) ListByStation(ctx context.Context, stationID uuid.UUID, status *Status, limit, offset int) ([]Rental, int, error) {
	var (
		rentals []Rental
		total   int
		err     error
	)
	if status != nil {
		if err = r.db.GetContext(ctx, &total, countByStationStatusQuery, stationID, *status); err != nil {
			return nil, 0, err
		}
		err = r.db.SelectContext(ctx, &rentals, listByStationStatusQuery, stationID, *status, limit, offset)
	} else {
		if err = r.db.GetContext(ctx, &total, countByStationQuery, stationID); err != nil {
			return nil, 0, err
		}
		err = r.db.SelectContext(ctx, &rentals, listByStationQuery, stationID, limit, offset)
	}
	return rentals, total, err
}

const countByStationQuery = `SELECT count(*) FROM rentals WHERE station_id = $1`

const listByStationQuery = `
SELECT * FROM rentals WHERE station_id = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

const countByStationStatusQuery = `SELECT count(*) FROM rentals WHERE station_id = $1 AND status = $2`

const listByStationStatusQuery = `
SELECT * FROM rentals WHERE station_id = $1 AND status = $2
ORDER BY created_at DESC LIMIT $3 OFFSET $4
`

// ListTransitions returns the audit trail for a rental, oldest first.
func (r *Repository) ListTransitions(ctx context.Context, rentalID uuid.UUID) ([]Transition, error) {
	var ts []Transition
	err := r.db.SelectContext(ctx, &ts, listTransitionsQuery, rentalID)
	return ts, err
}

const listTransitionsQuery = `
SELECT * FROM rental_transitions WHERE rental_id = $1 ORDER BY occurred_at ASC, id ASC
`

// AcceptHandover moves a CONFIRMED rental to ONGOING. The pickup evidence
// count and the vehicle's availability are both checked inside the same
// transaction that commits the transition, so a transition never lands on
// evidence that was not there at commit time.
func (r *Repository) AcceptHandover(ctx context.Context, id uuid.UUID, actor Actor, odoKm *int64, soc *float64, notes string) (Rental, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Rental{}, err
	}
	defer tx.Rollback()

	rt, err := lockRental(ctx, tx, id)
	if err != nil {
		return Rental{}, err
	}

	var photos int
	if err := tx.GetContext(ctx, &photos, countEvidenceQuery, id, "PICKUP"); err != nil {
		return Rental{}, err
	}

	if err := checkAccept(rt, photos, soc); err != nil {
		return Rental{}, err
	}

	var vehicleStatus string
	err = tx.GetContext(ctx, &vehicleStatus, lockVehicleQuery, rt.VehicleID, rt.StationID)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrVehicleUnavailable
	}
	if err != nil {
		return Rental{}, err
	}
	if vehicleStatus != "AVAILABLE" {
		return Rental{}, ErrVehicleUnavailable
	}

	staffID := actorUUID(actor)
	var updated Rental
	err = tx.GetContext(ctx, &updated, acceptQuery, id, rt.Version, staffID, nullInt(odoKm), nullFloat(soc), sql.NullString{String: notes, Valid: notes != ""})
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrConflict
	}
	if err != nil {
		return Rental{}, err
	}

	if _, err := tx.ExecContext(ctx, markVehicleRentedQuery, rt.VehicleID); err != nil {
		return Rental{}, err
	}

	if err := insertTransition(ctx, tx, id, rt.Status, StatusOngoing, actor); err != nil {
		return Rental{}, err
	}

	return updated, tx.Commit()
}

const countEvidenceQuery = `SELECT count(*) FROM evidence_photos WHERE rental_id = $1 AND phase = $2`

const lockVehicleQuery = `SELECT status FROM vehicles WHERE id = $1 AND station_id = $2 FOR UPDATE`

const acceptQuery = `
UPDATE rentals
SET status = 'ONGOING', picked_up_at = now(), pickup_staff_id = $3,
    pickup_odo_km = $4, pickup_soc = $5, pickup_notes = $6,
    version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

const markVehicleRentedQuery = `UPDATE vehicles SET status = 'RENTED' WHERE id = $1`

// RejectHandover is the staff-initiated negative outcome of the handover
// inspection. It is terminal and distinct from cancellation. Evidence is
// optional on this path.
func (r *Repository) RejectHandover(ctx context.Context, id uuid.UUID, actor Actor, reason string) (Rental, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Rental{}, err
	}
	defer tx.Rollback()

	rt, err := lockRental(ctx, tx, id)
	if err != nil {
		return Rental{}, err
	}

	if err := checkReject(rt, reason); err != nil {
		return Rental{}, err
	}

	var updated Rental
	err = tx.GetContext(ctx, &updated, rejectQuery, id, rt.Version, actorUUID(actor), reason)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrConflict
	}
	if err != nil {
		return Rental{}, err
	}

	if err := insertTransition(ctx, tx, id, rt.Status, StatusRejected, actor); err != nil {
		return Rental{}, err
	}

	return updated, tx.Commit()
}

const rejectQuery = `
UPDATE rentals
SET status = 'REJECTED', rejected_at = now(), reject_staff_id = $3,
    reject_reason = $4, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

// Cancel is the customer- or system-initiated exit, allowed only before
// any staff interaction with the vehicle.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (Rental, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Rental{}, err
	}
	defer tx.Rollback()

	rt, err := lockRental(ctx, tx, id)
	if err != nil {
		return Rental{}, err
	}

	if err := checkCancel(rt); err != nil {
		return Rental{}, err
	}

	var updated Rental
	err = tx.GetContext(ctx, &updated, cancelQuery, id, rt.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrConflict
	}
	if err != nil {
		return Rental{}, err
	}

	if err := insertTransition(ctx, tx, id, rt.Status, StatusCancelled, actor); err != nil {
		return Rental{}, err
	}

	return updated, tx.Commit()
}

const cancelQuery = `
UPDATE rentals
SET status = 'CANCELLED', version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

// RecordReturn moves an ONGOING rental to RETURN_PENDING and settles the
// charge record from the pricing snapshot, the return timestamp and the
// staff-entered fee lines. Charges exist only from this point on.
func (r *Repository) RecordReturn(ctx context.Context, id uuid.UUID, actor Actor, odoKm int64, soc float64, lines []FeeLine) (Rental, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Rental{}, err
	}
	defer tx.Rollback()

	rt, err := lockRental(ctx, tx, id)
	if err != nil {
		return Rental{}, err
	}

	var photos int
	if err := tx.GetContext(ctx, &photos, countEvidenceQuery, id, "RETURN"); err != nil {
		return Rental{}, err
	}

	if err := checkReturn(rt, odoKm, soc, photos); err != nil {
		return Rental{}, err
	}

	returnedAt := time.Now().UTC()
	charges, err := CalculateCharges(rt.PricingSnapshot, rt.BookedEndAt, returnedAt, lines)
	if err != nil {
		return Rental{}, err
	}

	var updated Rental
	err = tx.GetContext(ctx, &updated, recordReturnQuery,
		id, rt.Version, returnedAt, actorUUID(actor), odoKm, soc,
		charges.RentalFee, charges.LateFee, charges.DamageFee,
		charges.CleaningFee, charges.OtherFees, charges.ExtraFees, charges.Total,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrConflict
	}
	if err != nil {
		return Rental{}, err
	}

	if _, err := tx.ExecContext(ctx, markVehicleReturnedQuery, rt.VehicleID, odoKm, soc); err != nil {
		return Rental{}, err
	}

	if err := insertTransition(ctx, tx, id, rt.Status, StatusReturnPending, actor); err != nil {
		return Rental{}, err
	}

	return updated, tx.Commit()
}

const recordReturnQuery = `
UPDATE rentals
SET status = 'RETURN_PENDING', returned_at = $3, return_staff_id = $4,
    return_odo_km = $5, return_soc = $6,
    rental_fee = $7, late_fee = $8, damage_fee = $9, cleaning_fee = $10,
    other_fees = $11, extra_fees = $12, total_charge = $13,
    version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

const markVehicleReturnedQuery = `
UPDATE vehicles SET status = 'AVAILABLE', odo_km = $2, battery_soc = $3 WHERE id = $1
`

// FlagDispute parks a RETURN_PENDING rental in DISPUTED pending manual
// resolution.
func (r *Repository) FlagDispute(ctx context.Context, id uuid.UUID, actor Actor, note string) (Rental, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Rental{}, err
	}
	defer tx.Rollback()

	rt, err := lockRental(ctx, tx, id)
	if err != nil {
		return Rental{}, err
	}

	if err := checkDispute(rt, note); err != nil {
		return Rental{}, err
	}

	var updated Rental
	err = tx.GetContext(ctx, &updated, flagDisputeQuery, id, rt.Version, note)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrConflict
	}
	if err != nil {
		return Rental{}, err
	}

	if err := insertTransition(ctx, tx, id, rt.Status, StatusDisputed, actor); err != nil {
		return Rental{}, err
	}

	return updated, tx.Commit()
}

const flagDisputeQuery = `
UPDATE rentals
SET status = 'DISPUTED', dispute_note = $3, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

// ResolveDispute records the manual resolution of a DISPUTED rental.
// Resolving to COMPLETED requires the payment delta to be resolved: any
// amount owed must already have been collected, and a refund still due is
// issued as part of the resolution. Resolving to REJECTED closes the
// rental without payment movement.
func (r *Repository) ResolveDispute(ctx context.Context, id uuid.UUID, actor Actor, outcome Status, note string) (SettleResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return SettleResult{}, err
	}
	defer tx.Rollback()

	rt, err := lockRental(ctx, tx, id)
	if err != nil {
		return SettleResult{}, err
	}

	if err := checkResolve(rt, outcome, note); err != nil {
		return SettleResult{}, err
	}

	res := SettleResult{Completed: outcome == StatusCompleted}

	if outcome == StatusCompleted {
		delta := Reconcile(rt.TotalCharge.Int64, rt.Deposit)
		res.Delta = delta

		if delta.NeedsPayment {
			paid, err := sumCashPayments(ctx, tx, id)
			if err != nil {
				return SettleResult{}, err
			}
			if paid < delta.Amount {
				return SettleResult{}, ErrOutstandingBalance
			}
		}
		if delta.NeedsRefund {
			if err := res.recordRefund(ctx, tx, rt, delta.Amount); err != nil {
				return SettleResult{}, err
			}
		}
	}

	var updated Rental
	err = tx.GetContext(ctx, &updated, resolveDisputeQuery, id, rt.Version, outcome, note)
	if errors.Is(err, sql.ErrNoRows) {
		return SettleResult{}, ErrConflict
	}
	if err != nil {
		return SettleResult{}, err
	}
	res.Rental = updated

	if err := insertTransition(ctx, tx, id, rt.Status, outcome, actor); err != nil {
		return SettleResult{}, err
	}

	return res, tx.Commit()
}

const resolveDisputeQuery = `
UPDATE rentals
SET status = $3, resolution_note = $4, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

// SettleResult reports what a settlement attempt did. When RefundCard is
// true the caller must push the refund of RefundAmount to the card
// processor; the payment row is already committed.
type SettleResult struct {
	Rental        Rental
	Delta         Delta
	Completed     bool
	PaymentStatus string
	TxnRef        string
	RefundCard    bool
	RefundAmount  int64
}

// SettleCash applies a cash amount against the outstanding settlement
// delta of a RETURN_PENDING rental. Exact semantics:
//
//   - zero delta: amount must be 0; the rental completes with no payment
//     record;
//   - amount owed: partial payments accumulate, overshoot is rejected, and
//     the payment that lands exactly on the remainder completes the rental;
//   - refund owed: amount must be 0 or the exact refund delta; the refund
//     is recorded (card or cash, depending on how the deposit was held)
//     and the rental completes.
func (r *Repository) SettleCash(ctx context.Context, id uuid.UUID, actor Actor, amount int64, note string) (SettleResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return SettleResult{}, err
	}
	defer tx.Rollback()

	rt, err := lockRental(ctx, tx, id)
	if err != nil {
		return SettleResult{}, err
	}

	if err := checkSettle(rt); err != nil {
		return SettleResult{}, err
	}

	delta := Reconcile(rt.TotalCharge.Int64, rt.Deposit)
	res := SettleResult{Delta: delta}

	switch {
	case delta.NeedsPayment:
		paid, err := sumCashPayments(ctx, tx, id)
		if err != nil {
			return SettleResult{}, err
		}
		settled, err := delta.ApplyCashPayment(paid, amount)
		if err != nil {
			return SettleResult{}, err
		}

		res.TxnRef = newTxnRef("CASH")
		res.PaymentStatus = PaymentStatusPartial
		if settled {
			res.PaymentStatus = PaymentStatusSuccess
		}
		if _, err := tx.ExecContext(ctx, insertPaymentQuery,
			uuid.New(), id, res.TxnRef, "CASH", res.PaymentStatus, amount, nullStr(note)); err != nil {
			return SettleResult{}, err
		}
		res.Completed = settled

	case delta.NeedsRefund:
		if amount != 0 && amount != delta.Amount {
			return SettleResult{}, ErrAmountMismatch
		}
		if err := res.recordRefund(ctx, tx, rt, delta.Amount); err != nil {
			return SettleResult{}, err
		}
		res.Completed = true

	default:
		if amount != 0 {
			return SettleResult{}, ErrNoMovementDue
		}
		res.Completed = true
	}

	if res.Completed {
		var updated Rental
		err = tx.GetContext(ctx, &updated, completeQuery, id, rt.Version)
		if errors.Is(err, sql.ErrNoRows) {
			return SettleResult{}, ErrConflict
		}
		if err != nil {
			return SettleResult{}, err
		}
		res.Rental = updated

		if err := insertTransition(ctx, tx, id, rt.Status, StatusCompleted, actor); err != nil {
			return SettleResult{}, err
		}
	} else {
		// Partial payment: the rental stays RETURN_PENDING but the version
		// still moves so concurrent settlement attempts serialize cleanly.
		var updated Rental
		err = tx.GetContext(ctx, &updated, touchQuery, id, rt.Version)
		if errors.Is(err, sql.ErrNoRows) {
			return SettleResult{}, ErrConflict
		}
		if err != nil {
			return SettleResult{}, err
		}
		res.Rental = updated
	}

	return res, tx.Commit()
}

const completeQuery = `
UPDATE rentals
SET status = 'COMPLETED', version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

const touchQuery = `
UPDATE rentals SET version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING *
`

// Payment statuses persisted on payment rows. The lowercase partial value
// mirrors the transaction-level contract: the rental itself never exposes
// a partial status.
const (
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusPartial = "partial"
)

const insertPaymentQuery = `
INSERT INTO payments (id, rental_id, txn_ref, type, status, amount, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
`

const sumCashQuery = `
SELECT COALESCE(sum(amount), 0) FROM payments WHERE rental_id = $1 AND type = 'CASH'
`

func (res *SettleResult) recordRefund(ctx context.Context, tx *sqlx.Tx, rt Rental, amount int64) error {
	refundType := "REFUND_CASH"
	if rt.DepositIntentID.Valid {
		refundType = "REFUND_CARD"
		res.RefundCard = true
	}
	res.RefundAmount = amount
	res.TxnRef = newTxnRef("RFD")
	res.PaymentStatus = PaymentStatusSuccess
	_, err := tx.ExecContext(ctx, insertPaymentQuery,
		uuid.New(), rt.ID, res.TxnRef, refundType, PaymentStatusSuccess, amount, sql.NullString{})
	return err
}

func sumCashPayments(ctx context.Context, tx *sqlx.Tx, rentalID uuid.UUID) (int64, error) {
	var paid int64
	err := tx.GetContext(ctx, &paid, sumCashQuery, rentalID)
	return paid, err
}

func lockRental(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Rental, error) {
	var rt Rental
	err := tx.GetContext(ctx, &rt, lockRentalQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Rental{}, ErrNotFound
	}
	return rt, err
}

const lockRentalQuery = `SELECT * FROM rentals WHERE id = $1 FOR UPDATE`

func insertTransition(ctx context.Context, tx *sqlx.Tx, rentalID uuid.UUID, from, to Status, actor Actor) error {
	_, err := tx.ExecContext(ctx, insertTransitionQuery, rentalID, from, to, actor.String())
	return err
}

const insertTransitionQuery = `
INSERT INTO rental_transitions (rental_id, from_status, to_status, actor, occurred_at)
VALUES ($1, $2, $3, $4, now())
`

func newTxnRef(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New())
}

func actorUUID(a Actor) uuid.NullUUID {
	id, ok := a.StaffID()
	return uuid.NullUUID{UUID: id, Valid: ok}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
