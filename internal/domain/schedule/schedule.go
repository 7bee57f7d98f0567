// Package schedule models recurring household obligations: when they recur,
// whether they are due today, and who they are assigned to.
package schedule

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Schedule is a configured obligation. Corresponds to the 'schedules' table.
type Schedule struct {
	ID             uuid.UUID
	Kind           Kind
	Title          string
	AmountCents    int64 // allowance payout; zero for chores
	AssignmentType AssignmentType
	CronExpr       sql.NullString // kept for display, never parsed
	State          State
	NextRunAt      sql.NullTime
	SupersededBy   uuid.NullUUID // set when a reconfiguration replaced this schedule
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignment links a member to a schedule's pool.
// Corresponds to the 'schedule_assignments' table.
type Assignment struct {
	ScheduleID    uuid.UUID
	MemberID      uuid.UUID
	RotationOrder sql.NullInt32
	IsActive      bool
	CreatedAt     time.Time
}
