package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robonav/server/internal/model"
)

// RobotRepo defines the interface for robot repository operations
type RobotRepo interface {
	List(ctx context.Context) ([]model.Robot, error)
	Get(ctx context.Context, id int64) (model.Robot, error)
	Create(ctx context.Context, battery int, pingMS *int) (model.Robot, error)
}

type robotRepo struct {
	db *sql.DB
}

// NewRobotRepo creates a new RobotRepo instance
func NewRobotRepo(conn *sql.DB) RobotRepo {
	return &robotRepo{db: conn}
}

// List returns every robot ordered by id
func (r *robotRepo) List(ctx context.Context) ([]model.Robot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT robot_id, battery, ping
		FROM robot
		ORDER BY robot_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query robots: %w", err)
	}
	defer rows.Close()

	var robots []model.Robot
	for rows.Next() {
		robot, err := scanRobot(rows)
		if err != nil {
			return nil, err
		}
		robots = append(robots, robot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate robots: %w", err)
	}
	return robots, nil
}

// Get retrieves a robot by id
func (r *robotRepo) Get(ctx context.Context, id int64) (model.Robot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT robot_id, battery, ping
		FROM robot
		WHERE robot_id = $1
	`, id)
	robot, err := scanRobot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Robot{}, ErrNotFound
	}
	return robot, err
}

// Create registers a new robot
func (r *robotRepo) Create(ctx context.Context, battery int, pingMS *int) (model.Robot, error) {
	robot := model.Robot{Battery: battery, PingMS: pingMS}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO robot (battery, ping)
		VALUES ($1, $2)
		RETURNING robot_id
	`, battery, pingMS).Scan(&robot.ID)
	if err != nil {
		return model.Robot{}, fmt.Errorf("insert robot: %w", err)
	}
	return robot, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRobot(s scanner) (model.Robot, error) {
	var robot model.Robot
	var ping sql.NullInt64
	if err := s.Scan(&robot.ID, &robot.Battery, &ping); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Robot{}, err
		}
		return model.Robot{}, fmt.Errorf("scan robot: %w", err)
	}
	if ping.Valid {
		v := int(ping.Int64)
		robot.PingMS = &v
	}
	return robot, nil
}
