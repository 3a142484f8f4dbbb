package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robonav/server/internal/model"
)

// LocationRepo reads robot position history
type LocationRepo interface {
	// Current returns the robot's latest location record and the name of the
	// named location at exactly those coordinates. ok is false when the robot
	// has no history.
	Current(ctx context.Context, robotID int64) (loc model.CurrentLocation, ok bool, err error)
}

type locationRepo struct {
	db *sql.DB
}

// NewLocationRepo creates a new LocationRepo instance
func NewLocationRepo(conn *sql.DB) LocationRepo {
	return &locationRepo{db: conn}
}

// Current picks the highest r_loc_id; ties between several names on the same
// coordinates resolve to the alphabetically first name.
func (r *locationRepo) Current(ctx context.Context, robotID int64) (model.CurrentLocation, bool, error) {
	var loc model.CurrentLocation
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT rl.r_loc_id, rl.robot_id, rl.x, rl.y, l.name
		FROM robot_location rl
		LEFT JOIN location l
		  ON rl.x = l.x AND rl.y = l.y AND rl.robot_id = l.robot_id
		WHERE rl.robot_id = $1
		ORDER BY rl.r_loc_id DESC, l.name ASC
		LIMIT 1
	`, robotID).Scan(
		&loc.Record.ID,
		&loc.Record.RobotID,
		&loc.Record.X,
		&loc.Record.Y,
		&name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CurrentLocation{}, false, nil
		}
		return model.CurrentLocation{}, false, fmt.Errorf("query current location: %w", err)
	}
	if name.Valid {
		loc.Name = &name.String
	}
	return loc, true, nil
}
