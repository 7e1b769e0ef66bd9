package rental

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func confirmedRental() Rental {
	return Rental{
		ID:     uuid.New(),
		Status: StatusConfirmed,
		PricingSnapshot: PricingSnapshot{
			BasePrice:  200000,
			Rate:       50000,
			Deposit:    500000,
			Currency:   "VND",
			RentalType: TypeHourly,
		},
	}
}

func TestCheckAccept(t *testing.T) {
	r := confirmedRental()

	assert.NoError(t, checkAccept(r, 3, nil))
	assert.NoError(t, checkAccept(r, 5, nil))

	assert.ErrorIs(t, checkAccept(r, 2, nil), ErrInsufficientEvidence)
	assert.ErrorIs(t, checkAccept(r, 0, nil), ErrInsufficientEvidence)

	bad := 1.2
	assert.ErrorIs(t, checkAccept(r, 3, &bad), ErrSocOutOfRange)

	r.Status = StatusOngoing
	var ise *InvalidStateError
	assert.ErrorAs(t, checkAccept(r, 3, nil), &ise)
	assert.Equal(t, StatusOngoing, ise.Status)
}

func TestCheckReject(t *testing.T) {
	r := confirmedRental()

	assert.NoError(t, checkReject(r, "brake lever snapped"))
	assert.NoError(t, checkReject(r, "12345"))

	assert.ErrorIs(t, checkReject(r, "bad"), ErrReasonTooShort)
	assert.ErrorIs(t, checkReject(r, "    a    "), ErrReasonTooShort)

	r.Status = StatusCompleted
	var ise *InvalidStateError
	assert.ErrorAs(t, checkReject(r, "brake lever snapped"), &ise)
}

func TestCheckCancel(t *testing.T) {
	r := confirmedRental()
	assert.NoError(t, checkCancel(r))

	// A pickup record blocks cancellation even if status were racy.
	r.PickedUpAt = sql.NullTime{Time: time.Now(), Valid: true}
	var ise *InvalidStateError
	assert.ErrorAs(t, checkCancel(r), &ise)

	r = confirmedRental()
	r.Status = StatusOngoing
	assert.ErrorAs(t, checkCancel(r), &ise)
}

func TestCheckReturn(t *testing.T) {
	r := confirmedRental()
	r.Status = StatusOngoing
	r.PickupOdoKm = sql.NullInt64{Int64: 1200, Valid: true}

	assert.NoError(t, checkReturn(r, 1250, 0.4, 1))
	assert.NoError(t, checkReturn(r, 1200, 0.4, 2))

	assert.ErrorIs(t, checkReturn(r, 1199, 0.4, 1), ErrOdometerRegression)
	assert.ErrorIs(t, checkReturn(r, 1250, -0.1, 1), ErrSocOutOfRange)
	assert.ErrorIs(t, checkReturn(r, 1250, 0.4, 0), ErrReturnEvidence)

	r.Status = StatusReturnPending
	var ise *InvalidStateError
	assert.ErrorAs(t, checkReturn(r, 1250, 0.4, 1), &ise)
}

func TestCheckDisputeAndResolve(t *testing.T) {
	r := confirmedRental()
	r.Status = StatusReturnPending

	assert.NoError(t, checkDispute(r, "customer contests damage fee"))
	assert.ErrorIs(t, checkDispute(r, "  "), ErrDisputeNote)

	r.Status = StatusDisputed
	assert.NoError(t, checkResolve(r, StatusCompleted, "fee waived"))
	assert.NoError(t, checkResolve(r, StatusRejected, "damage confirmed"))
	assert.ErrorIs(t, checkResolve(r, StatusCancelled, "x"), ErrResolutionOutcome)
	assert.ErrorIs(t, checkResolve(r, StatusCompleted, ""), ErrResolutionNote)

	r.Status = StatusOngoing
	var ise *InvalidStateError
	assert.ErrorAs(t, checkResolve(r, StatusCompleted, "fee waived"), &ise)
}

func TestCheckSettle(t *testing.T) {
	r := confirmedRental()
	r.Status = StatusReturnPending

	// Charges must be defined; they only exist once a return is recorded.
	assert.ErrorIs(t, checkSettle(r), ErrChargesUndefined)

	r.TotalCharge = sql.NullInt64{Int64: 200000, Valid: true}
	assert.NoError(t, checkSettle(r))

	r.Status = StatusCompleted
	var ise *InvalidStateError
	assert.ErrorAs(t, checkSettle(r), &ise)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusDisputed.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.False(t, StatusOngoing.Terminal())
	assert.False(t, StatusReturnPending.Terminal())
}

func TestActorAttribution(t *testing.T) {
	id := uuid.New()

	a := StaffActor(id)
	got, ok := a.StaffID()
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, id.String(), a.String())

	s := SystemActor()
	_, ok = s.StaffID()
	assert.False(t, ok)
	assert.Equal(t, "system", s.String())
}
