package vehicle

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotAvailable = errors.New("vehicle not available")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetVehicles lists vehicles with their station names, optionally filtered
// by station and/or status.
func (r *Repository) GetVehicles(ctx context.Context, stationID *string, status *Status) ([]Vehicle, error) {
	var vehicles []Vehicle
	var err error
	switch {
	case stationID != nil && status != nil:
		err = r.db.SelectContext(ctx, &vehicles, getVehiclesByStationStatus, *stationID, *status)
	case stationID != nil:
		err = r.db.SelectContext(ctx, &vehicles, getVehiclesByStation, *stationID)
	case status != nil:
		err = r.db.SelectContext(ctx, &vehicles, getVehiclesByStatus, *status)
	default:
		err = r.db.SelectContext(ctx, &vehicles, getVehicles)
	}
	return vehicles, err
}

const getVehicles = `
SELECT v.*, s.name as station_name
FROM vehicles v
LEFT JOIN stations s ON v.station_id = s.id
`

const getVehiclesByStation = getVehicles + `WHERE v.station_id = $1`

const getVehiclesByStatus = getVehicles + `WHERE v.status = $1`

const getVehiclesByStationStatus = getVehicles + `WHERE v.station_id = $1 AND v.status = $2`

func (r *Repository) GetVehicle(ctx context.Context, label string) (Vehicle, error) {
	var v Vehicle
	err := r.db.GetContext(ctx, &v, getVehicle, label)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

const getVehicle = `SELECT * FROM vehicles WHERE label = $1`

func (r *Repository) GetVehicleByID(ctx context.Context, id string) (Vehicle, error) {
	var v Vehicle
	err := r.db.GetContext(ctx, &v, getVehicleByID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

const getVehicleByID = `SELECT * FROM vehicles WHERE id = $1`

// SetMaintenance pulls a vehicle out of (or back into) circulation. Only an
// AVAILABLE vehicle can go into maintenance; a RENTED one is owned by its
// active rental.
func (r *Repository) SetMaintenance(ctx context.Context, label string, down bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status Status
	err = tx.GetContext(ctx, &status, setMaintenance_lock, label)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	target := StatusAvailable
	if down {
		if status != StatusAvailable {
			return ErrNotAvailable
		}
		target = StatusMaintenance
	} else if status != StatusMaintenance {
		return ErrNotAvailable
	}

	if _, err = tx.ExecContext(ctx, setMaintenance_update, target, label); err != nil {
		return err
	}

	return tx.Commit()
}

const setMaintenance_lock = `SELECT status FROM vehicles WHERE label = $1 FOR UPDATE`
const setMaintenance_update = `UPDATE vehicles SET status = $1 WHERE label = $2`
