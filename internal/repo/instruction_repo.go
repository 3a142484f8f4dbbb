package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/robonav/server/internal/model"
)

// InstructionRepo records commands issued to robots
type InstructionRepo interface {
	// Create returns ErrNotFound if the robot does not exist.
	Create(ctx context.Context, robotID int64, command string, issuedBy uuid.UUID) (model.Instruction, error)
}

type instructionRepo struct {
	db *sql.DB
}

// NewInstructionRepo creates a new InstructionRepo instance
func NewInstructionRepo(conn *sql.DB) InstructionRepo {
	return &instructionRepo{db: conn}
}

// Create inserts a new instruction
func (r *instructionRepo) Create(ctx context.Context, robotID int64, command string, issuedBy uuid.UUID) (model.Instruction, error) {
	ins := model.Instruction{RobotID: robotID, Command: command, IssuedBy: issuedBy}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO robot_instruction (robot_id, command, issued_by)
		VALUES ($1, $2, $3)
		RETURNING instruction_id, issued_at
	`, robotID, command, issuedBy).Scan(&ins.ID, &ins.IssuedAt)
	if err != nil {
		if code, _, ok := pqCode(err); ok && code == pqForeignKeyViolation {
			return model.Instruction{}, ErrNotFound
		}
		return model.Instruction{}, fmt.Errorf("insert instruction: %w", err)
	}
	return ins, nil
}
