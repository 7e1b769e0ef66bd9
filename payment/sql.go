package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListByRental(ctx context.Context, rentalID uuid.UUID) ([]Payment, error) {
	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, listByRentalQuery, rentalID)
	return payments, err
}

const listByRentalQuery = `
SELECT * FROM payments WHERE rental_id = $1 ORDER BY created_at ASC
`

// CashPaidTotal sums the cash collected against a rental so far.
func (r *Repository) CashPaidTotal(ctx context.Context, rentalID uuid.UUID) (int64, error) {
	var paid int64
	err := r.db.GetContext(ctx, &paid, cashPaidQuery, rentalID)
	return paid, err
}

const cashPaidQuery = `
SELECT COALESCE(sum(amount), 0) FROM payments WHERE rental_id = $1 AND type = 'CASH'
`
