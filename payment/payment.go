// Package payment records money movement against rentals. Rows are
// append-only; the rental repository writes them inside its settlement
// transactions and this package reads them back out.
package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeCash       Type = "CASH"
	TypeRefundCash Type = "REFUND_CASH"
	TypeRefundCard Type = "REFUND_CARD"
)

type Payment struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	RentalID  uuid.UUID      `db:"rental_id" json:"rentalId"`
	TxnRef    string         `db:"txn_ref" json:"txnRef"`
	Type      Type           `db:"type" json:"type"`
	Status    string         `db:"status" json:"status"`
	Amount    int64          `db:"amount" json:"amount"`
	Note      sql.NullString `db:"note" json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}
