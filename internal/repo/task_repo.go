package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/robonav/server/internal/model"
)

// TaskRepo defines the interface for task repository operations
type TaskRepo interface {
	List(ctx context.Context) ([]model.Task, error)
	IDsForRobot(ctx context.Context, robotID int64) ([]int64, error)
}

type taskRepo struct {
	db *sql.DB
}

// NewTaskRepo creates a new TaskRepo instance
func NewTaskRepo(conn *sql.DB) TaskRepo {
	return &taskRepo{db: conn}
}

// List returns all tasks ordered by id
func (r *taskRepo) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, name, robot_id, start
		FROM task
		ORDER BY task_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Name, &t.RobotID, &t.Start); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// IDsForRobot returns the ids of every task assigned to the robot. Never nil.
func (r *taskRepo) IDsForRobot(ctx context.Context, robotID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id
		FROM task
		WHERE robot_id = $1
		ORDER BY task_id
	`, robotID)
	if err != nil {
		return nil, fmt.Errorf("query robot tasks: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate robot tasks: %w", err)
	}
	return ids, nil
}
