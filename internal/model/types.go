package model

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmationState is the stored value of users.confirmed
type ConfirmationState int

const (
	StatePending   ConfirmationState = 0
	StateConfirmed ConfirmationState = 1
	StateDisabled  ConfirmationState = 2
)

func (s ConfirmationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Account represents a registered user
type Account struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	State        ConfirmationState
	CreatedAt    time.Time
}

// Robot is a fleet member. Ping is nil until the robot has reported a latency.
type Robot struct {
	ID      int64
	Battery int
	PingMS  *int
}

// LocationRecord is one entry of a robot's append-only position history
type LocationRecord struct {
	ID      int64
	RobotID int64
	X       float64
	Y       float64
}

// CurrentLocation is the latest LocationRecord of a robot and the name of the
// NamedLocation at exactly those coordinates, if any.
type CurrentLocation struct {
	Record LocationRecord
	Name   *string
}

// NamedLocation labels a coordinate pair for a single robot
type NamedLocation struct {
	Name    string
	X       float64
	Y       float64
	RobotID int64
}

// Task is assigned to exactly one robot
type Task struct {
	ID      int64
	Name    string
	RobotID int64
	Start   time.Time
}

// Instruction is a command queued for a robot by an authenticated account
type Instruction struct {
	ID       int64
	RobotID  int64
	Command  string
	IssuedBy uuid.UUID
	IssuedAt time.Time
}

// Callback is a message a robot reported back
type Callback struct {
	ID         int64
	RobotID    int64
	Payload    string
	ReceivedAt time.Time
}
