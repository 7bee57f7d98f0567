// Package occurrence records each time an obligation became due for a member.
package occurrence

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("occurrence not found")
	ErrDuplicate = errors.New("duplicate occurrence (schedule_id, assignee_id, due_date)")
)

// Status is the lifecycle state of an occurrence.
type Status string

const (
	StatusPending   Status = "PENDING"   // chore waiting to be done
	StatusCompleted Status = "COMPLETED" // chore marked done by the assignee
	StatusPaid      Status = "PAID"      // allowance credited when the schedule fired
)

// Occurrence is one materialised due date of a schedule for one member.
// Corresponds to the 'occurrences' table.
type Occurrence struct {
	ID          uuid.UUID
	ScheduleID  uuid.UUID
	AssigneeID  uuid.UUID
	DueDate     time.Time // UTC midnight
	Status      Status
	AmountCents int64
	CreatedAt   time.Time
	CompletedAt sql.NullTime
}
