package occurrence

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines operations for Occurrence.
type Repository interface {
	Create(ctx context.Context, o *Occurrence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Occurrence, error)
	Update(ctx context.Context, o *Occurrence) error

	// ExistsForDay reports whether the schedule has any occurrence on the UTC day of dueDate.
	ExistsForDay(ctx context.Context, scheduleID uuid.UUID, dueDate time.Time) (bool, error)
	// ExistsForMemberOnDay narrows ExistsForDay to one assignee (OPT_IN schedules).
	ExistsForMemberOnDay(ctx context.Context, scheduleID, memberID uuid.UUID, dueDate time.Time) (bool, error)
	// Latest returns the occurrence with the greatest due date, or ErrNotFound.
	Latest(ctx context.Context, scheduleID uuid.UUID) (*Occurrence, error)
	ListPendingForMember(ctx context.Context, memberID uuid.UUID) ([]*Occurrence, error)
}
