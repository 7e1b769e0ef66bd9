package evidence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrInvalidPhase = errors.New("invalid evidence phase")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Add registers a photo reference. Re-registering the same reference id is
// a no-op, which is what makes upload retries safe.
func (r *Repository) Add(ctx context.Context, p Photo) error {
	if !p.Phase.Valid() {
		return ErrInvalidPhase
	}
	_, err := r.db.ExecContext(ctx, addQuery, p.ID, p.RentalID, p.Phase, p.URL, p.TakenAt)
	return err
}

const addQuery = `
INSERT INTO evidence_photos (id, rental_id, phase, url, taken_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`

func (r *Repository) ListByRental(ctx context.Context, rentalID uuid.UUID) ([]Photo, error) {
	var photos []Photo
	err := r.db.SelectContext(ctx, &photos, listByRentalQuery, rentalID)
	return photos, err
}

const listByRentalQuery = `
SELECT * FROM evidence_photos WHERE rental_id = $1 ORDER BY taken_at ASC
`

// CountByPhase reports how many photos a rental holds for one phase. The
// state machine re-counts inside its own transaction at commit time; this
// read is for display.
func (r *Repository) CountByPhase(ctx context.Context, rentalID uuid.UUID, phase Phase) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, countByPhaseQuery, rentalID, phase)
	return n, err
}

const countByPhaseQuery = `
SELECT count(*) FROM evidence_photos WHERE rental_id = $1 AND phase = $2
`
