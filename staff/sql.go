package staff

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var ErrNotFound = errors.New("staff member not found")

func (r *Repository) GetByAuth0ID(ctx context.Context, auth0ID string) (*Staff, error) {
	var s Staff
	err := r.db.GetContext(ctx, &s, getByAuth0IDQuery, auth0ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}
	return &s, nil
}

const getByAuth0IDQuery = "SELECT * FROM staff WHERE auth0_id = $1"

func (r *Repository) Create(ctx context.Context, auth0ID string) (*Staff, error) {
	var s Staff
	err := r.db.GetContext(ctx, &s, createQuery, uuid.New(), auth0ID)
	return &s, err
}

const createQuery = "INSERT INTO staff (id, auth0_id, created_at) VALUES ($1, $2, now()) RETURNING *"

func (r *Repository) UpdateProfile(ctx context.Context, auth0ID, email, name string) error {
	_, err := r.db.ExecContext(ctx, updateProfileQuery, email, name, auth0ID)
	return err
}

const updateProfileQuery = `UPDATE staff SET email = NULLIF($1, ''), name = NULLIF($2, '') WHERE auth0_id = $3`

func (r *Repository) AssignStation(ctx context.Context, auth0ID string, stationID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, assignStationQuery, stationID, auth0ID)
	return err
}

const assignStationQuery = `UPDATE staff SET station_id = $1 WHERE auth0_id = $2`
