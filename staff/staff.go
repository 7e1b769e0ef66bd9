// Package staff holds the workstation accounts that attribute rental
// transitions. Rows are bootstrapped from the Auth0 identity on first
// login.
package staff

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Staff struct {
	ID        uuid.UUID      `db:"id"`
	Auth0ID   string         `db:"auth0_id"`
	StationID uuid.NullUUID  `db:"station_id"`
	Email     sql.NullString `db:"email"`
	Name      sql.NullString `db:"name"`
	CreatedAt time.Time      `db:"created_at"`
}
