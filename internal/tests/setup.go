package tests

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// TruncateTables empties every application table for a clean test state.
func TruncateTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE robot_callback, robot_instruction, task, location,
			robot_location, robot, email_confirmations, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// SeedRobot inserts a robot and returns its id
func SeedRobot(ctx context.Context, db *sql.DB, battery int, ping *int) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO robot (battery, ping) VALUES ($1, $2) RETURNING robot_id`,
		battery, ping,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("seed robot: %w", err)
	}
	return id, nil
}

// SeedLocation appends a location record for a robot
func SeedLocation(ctx context.Context, db *sql.DB, robotID int64, x, y float64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO robot_location (robot_id, x, y) VALUES ($1, $2, $3)`,
		robotID, x, y,
	)
	if err != nil {
		return fmt.Errorf("seed location: %w", err)
	}
	return nil
}

// SeedNamedLocation labels a coordinate pair for a robot
func SeedNamedLocation(ctx context.Context, db *sql.DB, name string, robotID int64, x, y float64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO location (name, x, y, robot_id) VALUES ($1, $2, $3, $4)`,
		name, x, y, robotID,
	)
	if err != nil {
		return fmt.Errorf("seed named location: %w", err)
	}
	return nil
}

// SeedTask assigns a task to a robot and returns its id
func SeedTask(ctx context.Context, db *sql.DB, name string, robotID int64) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO task (name, robot_id, start) VALUES ($1, $2, NOW()) RETURNING task_id`,
		name, robotID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("seed task: %w", err)
	}
	return id, nil
}

// Mailbox is a notifier that keeps messages in memory
type Mailbox struct {
	mu     sync.Mutex
	bodies map[string][]string
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{bodies: make(map[string][]string)}
}

// Send stores the message body under the recipient
func (m *Mailbox) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies[to] = append(m.bodies[to], body)
	return nil
}

// ConfirmationURI returns path and query of the last confirmation link sent to addr
func (m *Mailbox) ConfirmationURI(addr string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.bodies[addr]
	if len(msgs) == 0 {
		return "", fmt.Errorf("no mail for %s", addr)
	}
	body := msgs[len(msgs)-1]
	i := strings.Index(body, "http")
	if i < 0 {
		return "", fmt.Errorf("no link in mail for %s", addr)
	}
	u, err := url.Parse(strings.Fields(body[i:])[0])
	if err != nil {
		return "", err
	}
	return u.RequestURI(), nil
}
