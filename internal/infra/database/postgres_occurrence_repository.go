package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"household_schedule_bot/internal/domain/calendar"
	"household_schedule_bot/internal/domain/occurrence"

	"github.com/google/uuid"
)

const occurrenceColumns = `id, schedule_id, assignee_id, due_date, status, amount_cents, created_at, completed_at`

type PostgresOccurrenceRepository struct {
	db DBTX
}

func NewPostgresOccurrenceRepository(db DBTX) *PostgresOccurrenceRepository {
	return &PostgresOccurrenceRepository{db: db}
}

func (r *PostgresOccurrenceRepository) Create(ctx context.Context, o *occurrence.Occurrence) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	query := `INSERT INTO occurrences (id, schedule_id, assignee_id, due_date, status, amount_cents, completed_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		o.ID, o.ScheduleID, o.AssigneeID, dateOnly(o.DueDate), o.Status, o.AmountCents, o.CompletedAt,
	).Scan(&o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "occurrences_schedule_assignee_day_key") {
			return occurrence.ErrDuplicate
		}
		return fmt.Errorf("error creating occurrence: %w", err)
	}
	return nil
}

func (r *PostgresOccurrenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*occurrence.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences WHERE id = $1`
	o, err := scanOccurrence(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, occurrence.ErrNotFound
		}
		return nil, fmt.Errorf("error getting occurrence by ID: %w", err)
	}
	return o, nil
}

func (r *PostgresOccurrenceRepository) Update(ctx context.Context, o *occurrence.Occurrence) error {
	query := `UPDATE occurrences SET status = $1, completed_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, o.Status, o.CompletedAt, o.ID)
	if err != nil {
		return fmt.Errorf("error updating occurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading updated occurrence count: %w", err)
	}
	if n == 0 {
		return occurrence.ErrNotFound
	}
	return nil
}

func (r *PostgresOccurrenceRepository) ExistsForDay(ctx context.Context, scheduleID uuid.UUID, dueDate time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM occurrences WHERE schedule_id = $1 AND due_date = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, scheduleID, dateOnly(dueDate)).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking occurrence for day: %w", err)
	}
	return exists, nil
}

func (r *PostgresOccurrenceRepository) ExistsForMemberOnDay(ctx context.Context, scheduleID, memberID uuid.UUID, dueDate time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM occurrences WHERE schedule_id = $1 AND assignee_id = $2 AND due_date = $3)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, scheduleID, memberID, dateOnly(dueDate)).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking member occurrence for day: %w", err)
	}
	return exists, nil
}

func (r *PostgresOccurrenceRepository) Latest(ctx context.Context, scheduleID uuid.UUID) (*occurrence.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences
               WHERE schedule_id = $1 ORDER BY due_date DESC, created_at DESC LIMIT 1`
	o, err := scanOccurrence(r.db.QueryRowContext(ctx, query, scheduleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, occurrence.ErrNotFound
		}
		return nil, fmt.Errorf("error getting latest occurrence: %w", err)
	}
	return o, nil
}

func (r *PostgresOccurrenceRepository) ListPendingForMember(ctx context.Context, memberID uuid.UUID) ([]*occurrence.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences
               WHERE assignee_id = $1 AND status = $2 ORDER BY due_date, created_at`
	rows, err := r.db.QueryContext(ctx, query, memberID, occurrence.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("error listing pending occurrences: %w", err)
	}
	defer rows.Close()

	occurrences := make([]*occurrence.Occurrence, 0)
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning occurrence: %w", err)
		}
		occurrences = append(occurrences, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrences: %w", err)
	}
	return occurrences, nil
}

func scanOccurrence(row rowScanner) (*occurrence.Occurrence, error) {
	o := &occurrence.Occurrence{}
	err := row.Scan(&o.ID, &o.ScheduleID, &o.AssigneeID, &o.DueDate, &o.Status, &o.AmountCents, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		return nil, err
	}
	y, m, d := o.DueDate.Date()
	o.DueDate = calendar.Date(y, m, d)
	return o, nil
}

// dateOnly formats the UTC calendar day so DATE comparisons do not depend
// on the session time zone.
func dateOnly(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
