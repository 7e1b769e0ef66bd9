package payment

import (
	"context"
	"sync"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/refund"
)

// RefundIssuer pushes a deposit refund back to the processor that holds
// it. The settlement transaction commits the refund record first; issuing
// is fire-and-forget from the handler, mirroring how invoicing is done
// after a ride ends.
type RefundIssuer interface {
	IssueRefund(ctx context.Context, paymentIntentID string, amount int64) error
}

// StripeIssuer refunds against the PaymentIntent that held the deposit.
type StripeIssuer struct{}

func (StripeIssuer) IssueRefund(_ context.Context, paymentIntentID string, amount int64) error {
	_, err := refund.New(&stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amount),
	})
	return err
}

// FakeIssuer records refund calls for tests. Refunds are issued from a
// goroutine, so access is guarded.
type FakeIssuer struct {
	mu      sync.Mutex
	refunds []FakeRefund
}

type FakeRefund struct {
	PaymentIntentID string
	Amount          int64
}

func (f *FakeIssuer) IssueRefund(_ context.Context, paymentIntentID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, FakeRefund{PaymentIntentID: paymentIntentID, Amount: amount})
	return nil
}

func (f *FakeIssuer) Issued() []FakeRefund {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeRefund(nil), f.refunds...)
}
