package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/robonav/server/internal/model"
)

// CallbackRepo reads messages reported back by robots
type CallbackRepo interface {
	// List returns callbacks oldest first, optionally restricted to one robot.
	List(ctx context.Context, robotID *int64) ([]model.Callback, error)
}

type callbackRepo struct {
	db *sql.DB
}

// NewCallbackRepo creates a new CallbackRepo instance
func NewCallbackRepo(conn *sql.DB) CallbackRepo {
	return &callbackRepo{db: conn}
}

func (r *callbackRepo) List(ctx context.Context, robotID *int64) ([]model.Callback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT callback_id, robot_id, payload, received_at
		FROM robot_callback
		WHERE $1::BIGINT IS NULL OR robot_id = $1
		ORDER BY callback_id
	`, robotID)
	if err != nil {
		return nil, fmt.Errorf("query callbacks: %w", err)
	}
	defer rows.Close()

	callbacks := make([]model.Callback, 0)
	for rows.Next() {
		var c model.Callback
		if err := rows.Scan(&c.ID, &c.RobotID, &c.Payload, &c.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan callback: %w", err)
		}
		callbacks = append(callbacks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate callbacks: %w", err)
	}
	return callbacks, nil
}
