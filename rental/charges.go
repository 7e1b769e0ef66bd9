package rental

import (
	"strings"
	"time"
)

// FeeKind labels a staff-entered fee line captured at return time.
type FeeKind string

const (
	FeeDamage   FeeKind = "damage"
	FeeCleaning FeeKind = "cleaning"
	FeeOther    FeeKind = "other"
)

// FeeLine is one staff-entered extra charge. Any non-zero line must carry a
// justification.
type FeeLine struct {
	Kind   FeeKind `json:"kind"`
	Amount int64   `json:"amount"`
	Reason string  `json:"reason"`
}

// Charges is the settled charge record derived at return time.
type Charges struct {
	RentalFee   int64 `json:"rentalFee"`
	LateFee     int64 `json:"lateFee"`
	DamageFee   int64 `json:"damageFee"`
	CleaningFee int64 `json:"cleaningFee"`
	OtherFees   int64 `json:"otherFees"`
	ExtraFees   int64 `json:"extraFees"`
	Total       int64 `json:"total"`
}

// CalculateCharges derives the final charges from the pricing snapshot, the
// booked end time and the staff-entered fee lines. The rental fee is the
// snapshot base price as-is; only overage past the booked end is billed on
// top, at the snapshot rate per started hour (hourly rentals) or day (daily
// rentals).
func CalculateCharges(snap PricingSnapshot, bookedEnd, returnedAt time.Time, lines []FeeLine) (Charges, error) {
	ch := Charges{
		RentalFee: snap.BasePrice,
		LateFee:   lateFee(snap, bookedEnd, returnedAt),
	}

	for _, l := range lines {
		if l.Amount < 0 {
			return Charges{}, ErrNegativeFee
		}
		if l.Amount > 0 && strings.TrimSpace(l.Reason) == "" {
			return Charges{}, ErrFeeNeedsReason
		}
		switch l.Kind {
		case FeeDamage:
			ch.DamageFee += l.Amount
		case FeeCleaning:
			ch.CleaningFee += l.Amount
		case FeeOther:
			ch.OtherFees += l.Amount
		default:
			ch.ExtraFees += l.Amount
		}
	}

	ch.Total = ch.RentalFee + ch.LateFee + ch.DamageFee + ch.CleaningFee + ch.OtherFees + ch.ExtraFees
	return ch, nil
}

func lateFee(snap PricingSnapshot, bookedEnd, returnedAt time.Time) int64 {
	overage := returnedAt.Sub(bookedEnd)
	if overage <= 0 {
		return 0
	}
	unit := time.Hour
	if snap.RentalType == TypeDaily {
		unit = 24 * time.Hour
	}
	units := int64(overage / unit)
	if overage%unit != 0 {
		units++
	}
	return units * snap.Rate
}
