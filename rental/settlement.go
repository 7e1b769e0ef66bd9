package rental

import "errors"

var (
	ErrNonPositiveAmount = errors.New("payment amount must be positive")
	ErrNoMovementDue     = errors.New("nothing to settle; no payment expected")
	ErrAmountOvershoot   = errors.New("payment amount exceeds the outstanding balance")
)

// Delta is the reconciliation of the settled charges against the deposit
// held at booking time. At most one of NeedsPayment and NeedsRefund is
// true; an exact match means the rental closes with zero movement.
type Delta struct {
	NeedsPayment bool  `json:"needsPayment"`
	NeedsRefund  bool  `json:"needsRefund"`
	Amount       int64 `json:"amount"`
}

// Reconcile computes the payment delta between total charges and the
// deposit. Amount is always non-negative: the direction is carried by the
// flags.
func Reconcile(total, deposit int64) Delta {
	switch {
	case total > deposit:
		return Delta{NeedsPayment: true, Amount: total - deposit}
	case total < deposit:
		return Delta{NeedsRefund: true, Amount: deposit - total}
	}
	return Delta{}
}

// ApplyCashPayment validates a cash payment of amount against the delta,
// given the sum already collected in earlier partial payments. It returns
// whether this payment fully settles the balance. Partial payments
// accumulate; overshooting the remainder is rejected outright because the
// cash path does no change-making.
func (d Delta) ApplyCashPayment(alreadyPaid, amount int64) (settled bool, err error) {
	if !d.NeedsPayment {
		return false, ErrNoMovementDue
	}
	if amount <= 0 {
		return false, ErrNonPositiveAmount
	}
	remaining := d.Amount - alreadyPaid
	if amount > remaining {
		return false, ErrAmountOvershoot
	}
	return amount == remaining, nil
}
