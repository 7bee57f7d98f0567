package schedule

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines operations for Schedule and its Assignment pool.
type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	// GetForUpdate loads the schedule and locks its row until the surrounding
	// transaction ends. Processing must go through it to avoid double fires.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	ListActiveIDs(ctx context.Context, kind Kind) ([]uuid.UUID, error)
	ListAll(ctx context.Context) ([]*Schedule, error)

	AddAssignment(ctx context.Context, a *Assignment) error
	// ListActiveAssignments returns active assignments of active members in
	// insertion order; rotation order is applied by the caller.
	ListActiveAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*Assignment, error)
}
