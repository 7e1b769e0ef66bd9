package rental

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MinPickupPhotos is the evidence floor for accepting a handover.
const MinPickupPhotos = 3

// MinRejectReasonLen is the shortest reject reason staff may record.
const MinRejectReasonLen = 5

var (
	ErrNotFound = errors.New("rental not found")

	// ErrConflict signals a lost race on a rental: the caller holds a stale
	// view and must re-fetch before retrying. Distinct from validation
	// errors, which mean the request itself is wrong.
	ErrConflict = errors.New("rental was modified concurrently")

	ErrInsufficientEvidence = fmt.Errorf("at least %d pickup photos required", MinPickupPhotos)
	ErrReasonTooShort       = fmt.Errorf("reject reason must be at least %d characters", MinRejectReasonLen)
	ErrOdometerRegression   = errors.New("return odometer reading is below the pickup reading")
	ErrSocOutOfRange        = errors.New("state of charge must be between 0 and 1")
	ErrReturnEvidence       = errors.New("at least 1 return photo required")
	ErrChargesUndefined     = errors.New("charges are undefined until a return is recorded")
	ErrFeeNeedsReason       = errors.New("non-zero fee requires a justification")
	ErrNegativeFee          = errors.New("fee amount cannot be negative")
	ErrResolutionNote       = errors.New("dispute resolution requires a note")
	ErrDisputeNote          = errors.New("dispute requires an annotation")
	ErrResolutionOutcome    = errors.New("dispute must resolve to COMPLETED or REJECTED")
	ErrOutstandingBalance   = errors.New("outstanding balance must be settled before completion")
)

// InvalidStateError reports a transition attempted from the wrong source
// status. The caller must re-fetch the rental; retrying the same call will
// not succeed.
type InvalidStateError struct {
	Status  Status
	Trigger string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a rental in status %s", e.Trigger, e.Status)
}

// Actor identifies who caused a transition, for audit attribution. Every
// mutating call carries one; there is no anonymous transition.
type Actor struct {
	staffID uuid.UUID
	system  bool
}

func StaffActor(id uuid.UUID) Actor { return Actor{staffID: id} }

func SystemActor() Actor { return Actor{system: true} }

func (a Actor) StaffID() (uuid.UUID, bool) {
	if a.system {
		return uuid.Nil, false
	}
	return a.staffID, true
}

func (a Actor) String() string {
	if a.system {
		return "system"
	}
	return a.staffID.String()
}

// checkAccept validates the accept-handover trigger. photoCount is the
// number of PICKUP-phase photos already registered for the rental, counted
// inside the same transaction that commits the transition.
func checkAccept(r Rental, photoCount int, soc *float64) error {
	if r.Status != StatusConfirmed {
		return &InvalidStateError{Status: r.Status, Trigger: "accept handover for"}
	}
	if photoCount < MinPickupPhotos {
		return ErrInsufficientEvidence
	}
	if soc != nil && (*soc < 0 || *soc > 1) {
		return ErrSocOutOfRange
	}
	return nil
}

func checkReject(r Rental, reason string) error {
	if r.Status != StatusConfirmed {
		return &InvalidStateError{Status: r.Status, Trigger: "reject handover for"}
	}
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < MinRejectReasonLen {
		return ErrReasonTooShort
	}
	return nil
}

func checkCancel(r Rental) error {
	if r.Status != StatusConfirmed || r.PickedUpAt.Valid {
		return &InvalidStateError{Status: r.Status, Trigger: "cancel"}
	}
	return nil
}

// checkReturn validates the record-return trigger. The odometer guard is a
// hard validation error, never a clamp: a reading below pickup would poison
// any future mileage-derived fee.
func checkReturn(r Rental, odoKm int64, soc float64, photoCount int) error {
	if r.Status != StatusOngoing {
		return &InvalidStateError{Status: r.Status, Trigger: "record a return for"}
	}
	if r.PickupOdoKm.Valid && odoKm < r.PickupOdoKm.Int64 {
		return ErrOdometerRegression
	}
	if soc < 0 || soc > 1 {
		return ErrSocOutOfRange
	}
	if photoCount < 1 {
		return ErrReturnEvidence
	}
	return nil
}

func checkDispute(r Rental, note string) error {
	if r.Status != StatusReturnPending {
		return &InvalidStateError{Status: r.Status, Trigger: "dispute"}
	}
	if strings.TrimSpace(note) == "" {
		return ErrDisputeNote
	}
	return nil
}

func checkResolve(r Rental, outcome Status, note string) error {
	if r.Status != StatusDisputed {
		return &InvalidStateError{Status: r.Status, Trigger: "resolve"}
	}
	if outcome != StatusCompleted && outcome != StatusRejected {
		return ErrResolutionOutcome
	}
	if strings.TrimSpace(note) == "" {
		return ErrResolutionNote
	}
	return nil
}

func checkSettle(r Rental) error {
	if r.Status != StatusReturnPending {
		return &InvalidStateError{Status: r.Status, Trigger: "settle"}
	}
	if !r.TotalCharge.Valid {
		return ErrChargesUndefined
	}
	return nil
}
