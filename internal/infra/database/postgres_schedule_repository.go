package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"household_schedule_bot/internal/domain/calendar"
	"household_schedule_bot/internal/domain/schedule"

	"github.com/google/uuid"
)

const scheduleColumns = `id, kind, title, amount_cents, assignment_type, cron_expr,
               frequency, day_of_week, day_of_month, interval_days,
               is_active, is_paused, start_date, end_date, last_processed_at,
               next_run_at, superseded_by, created_at, updated_at`

type PostgresScheduleRepository struct {
	db DBTX
}

func NewPostgresScheduleRepository(db DBTX) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `INSERT INTO schedules (id, kind, title, amount_cents, assignment_type, cron_expr,
               frequency, day_of_week, day_of_month, interval_days,
               is_active, is_paused, start_date, end_date, last_processed_at, next_run_at, superseded_by)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
               RETURNING created_at, updated_at`

	st := s.State
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.Kind, s.Title, s.AmountCents, s.AssignmentType, s.CronExpr,
		st.Frequency, st.Anchor.DayOfWeek, st.Anchor.DayOfMonth, st.Anchor.IntervalDays,
		st.IsActive, st.IsPaused, nullDate(st.StartDate), nullDate(st.EndDate), st.LastProcessedAt, nullDate(s.NextRunAt), s.SupersededBy,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating schedule: %w", err)
	}
	return nil
}

func (r *PostgresScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *PostgresScheduleRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id)
}

func (r *PostgresScheduleRepository) get(ctx context.Context, query string, id uuid.UUID) (*schedule.Schedule, error) {
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, schedule.ErrNotFound
		}
		return nil, fmt.Errorf("error getting schedule %s: %w", id, err)
	}
	return s, nil
}

func (r *PostgresScheduleRepository) Update(ctx context.Context, s *schedule.Schedule) error {
	query := `UPDATE schedules
               SET title = $1, amount_cents = $2, assignment_type = $3, cron_expr = $4,
                   frequency = $5, day_of_week = $6, day_of_month = $7, interval_days = $8,
                   is_active = $9, is_paused = $10, start_date = $11, end_date = $12,
                   last_processed_at = $13, next_run_at = $14, superseded_by = $15, updated_at = NOW()
               WHERE id = $16
               RETURNING updated_at`

	st := s.State
	err := r.db.QueryRowContext(ctx, query,
		s.Title, s.AmountCents, s.AssignmentType, s.CronExpr,
		st.Frequency, st.Anchor.DayOfWeek, st.Anchor.DayOfMonth, st.Anchor.IntervalDays,
		st.IsActive, st.IsPaused, nullDate(st.StartDate), nullDate(st.EndDate),
		st.LastProcessedAt, nullDate(s.NextRunAt), s.SupersededBy, s.ID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.ErrNotFound
		}
		return fmt.Errorf("error updating schedule: %w", err)
	}
	return nil
}

func (r *PostgresScheduleRepository) ListActiveIDs(ctx context.Context, kind schedule.Kind) ([]uuid.UUID, error) {
	query := `SELECT id FROM schedules WHERE kind = $1 AND is_active = TRUE ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("error listing active %s schedules: %w", kind, err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning schedule id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule ids: %w", err)
	}
	return ids, nil
}

func (r *PostgresScheduleRepository) ListAll(ctx context.Context) ([]*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]*schedule.Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}
	return schedules, nil
}

// AddAssignment inserts the member into the pool, reactivating an earlier
// assignment of the same member.
func (r *PostgresScheduleRepository) AddAssignment(ctx context.Context, a *schedule.Assignment) error {
	query := `INSERT INTO schedule_assignments (schedule_id, member_id, rotation_order, is_active)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (schedule_id, member_id)
               DO UPDATE SET rotation_order = EXCLUDED.rotation_order, is_active = EXCLUDED.is_active
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, a.ScheduleID, a.MemberID, a.RotationOrder, a.IsActive).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("error adding member %s to schedule %s: %w", a.MemberID, a.ScheduleID, err)
	}
	return nil
}

func (r *PostgresScheduleRepository) ListActiveAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*schedule.Assignment, error) {
	query := `SELECT sa.schedule_id, sa.member_id, sa.rotation_order, sa.is_active, sa.created_at
               FROM schedule_assignments sa
               JOIN members m ON m.id = sa.member_id
               WHERE sa.schedule_id = $1 AND sa.is_active = TRUE AND m.is_active = TRUE
               ORDER BY sa.created_at, sa.member_id`
	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("error listing assignments for schedule %s: %w", scheduleID, err)
	}
	defer rows.Close()

	assignments := make([]*schedule.Assignment, 0)
	for rows.Next() {
		a := &schedule.Assignment{}
		if err := rows.Scan(&a.ScheduleID, &a.MemberID, &a.RotationOrder, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return assignments, nil
}

func scanSchedule(row rowScanner) (*schedule.Schedule, error) {
	s := &schedule.Schedule{}
	st := &s.State
	err := row.Scan(
		&s.ID, &s.Kind, &s.Title, &s.AmountCents, &s.AssignmentType, &s.CronExpr,
		&st.Frequency, &st.Anchor.DayOfWeek, &st.Anchor.DayOfMonth, &st.Anchor.IntervalDays,
		&st.IsActive, &st.IsPaused, &st.StartDate, &st.EndDate, &st.LastProcessedAt,
		&s.NextRunAt, &s.SupersededBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.StartDate = utcDate(st.StartDate)
	st.EndDate = utcDate(st.EndDate)
	s.NextRunAt = utcDate(s.NextRunAt)
	if st.LastProcessedAt.Valid {
		st.LastProcessedAt.Time = st.LastProcessedAt.Time.UTC()
	}
	return s, nil
}

// utcDate re-anchors a DATE column to UTC midnight regardless of the
// session time zone the driver reported it in.
func utcDate(t sql.NullTime) sql.NullTime {
	if !t.Valid {
		return t
	}
	y, m, d := t.Time.Date()
	return sql.NullTime{Time: calendar.Date(y, m, d), Valid: true}
}

func nullDate(t sql.NullTime) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: dateOnly(t.Time), Valid: true}
}
