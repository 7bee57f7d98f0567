package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"household_schedule_bot/internal/domain/calendar"
	"household_schedule_bot/internal/domain/member"
	"household_schedule_bot/internal/domain/schedule"
	"household_schedule_bot/internal/domain/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrMemberAlreadyExists = fmt.Errorf("member with this Telegram ID already exists")
var ErrMemberAlreadyInactive = fmt.Errorf("member is already inactive")
var ErrScheduleUnchanged = fmt.Errorf("schedule is already in the requested state")
var ErrScheduleInactive = fmt.Errorf("schedule is inactive")

const maxUpcomingDays = 366

// ScheduleInput is what an admin supplies to create or reconfigure a schedule.
type ScheduleInput struct {
	Kind              schedule.Kind `validate:"oneof=ALLOWANCE CHORE"`
	Title             string        `validate:"required,max=200"`
	AmountCents       int64         `validate:"gte=0"`
	Frequency         schedule.Frequency
	Anchor            schedule.Anchor
	AssignmentType    schedule.AssignmentType `validate:"oneof=FIXED ROTATING OPT_IN"`
	CronExpr          string
	StartDate         sql.NullTime
	EndDate           sql.NullTime
	MemberTelegramIDs []int64 `validate:"dive,gt=0"` // pool in rotation order
}

var inputValidator = validator.New()

type AdminService struct {
	tx              store.Transactor
	adminTelegramID int64
	log             *logrus.Entry
	now             func() time.Time
}

func NewAdminService(tx store.Transactor, adminID int64, log *logrus.Entry) *AdminService {
	return &AdminService{
		tx:              tx,
		adminTelegramID: adminID,
		log:             log,
		now:             time.Now,
	}
}

// IsAdmin reports whether telegramID is the configured admin.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return telegramID == s.adminTelegramID
}

// AddMember handles the business logic for adding a new household member.
func (s *AdminService) AddMember(ctx context.Context, performingAdminID int64, telegramID int64, firstName string, lastNameValue string) (*member.Member, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	if firstName == "" {
		return nil, &schedule.ValidationError{Field: "firstName", Reason: "must not be empty"}
	}

	var lastName sql.NullString
	if lastNameValue != "" {
		lastName.String = lastNameValue
		lastName.Valid = true
	}

	var created *member.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		existing, err := repos.Members.GetByTelegramID(ctx, telegramID)
		switch {
		case err == nil && existing.IsActive:
			return ErrMemberAlreadyExists
		case err == nil:
			// A removed member coming back keeps their history.
			existing.FirstName, existing.LastName, existing.IsActive = firstName, lastName, true
			if err := repos.Members.Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to reactivate member: %w", err)
			}
			created = existing
			return nil
		case !errors.Is(err, member.ErrNotFound):
			return fmt.Errorf("failed to check existing member: %w", err)
		}

		m := &member.Member{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			IsActive:   true,
		}
		if err := repos.Members.Create(ctx, m); err != nil {
			if errors.Is(err, member.ErrDuplicateTelegramID) {
				return ErrMemberAlreadyExists
			}
			return fmt.Errorf("failed to create member in repository: %w", err)
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"member_id": created.ID, "telegram_id": telegramID}).Info("Member added")
	return created, nil
}

// RemoveMember deactivates a member. Their assignments stop being used
// because only active members are read into assignment pools.
func (s *AdminService) RemoveMember(ctx context.Context, performingAdminID int64, telegramID int64) (*member.Member, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	var target *member.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		m, err := repos.Members.GetByTelegramID(ctx, telegramID)
		if err != nil {
			if errors.Is(err, member.ErrNotFound) {
				return err
			}
			return fmt.Errorf("failed to get member by Telegram ID for removal: %w", err)
		}
		target = m
		if !m.IsActive {
			return ErrMemberAlreadyInactive
		}

		m.IsActive = false
		if err := repos.Members.Update(ctx, m); err != nil {
			return fmt.Errorf("failed to update member to inactive in repository: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrMemberAlreadyInactive) {
		return target, err
	}
	if err != nil {
		return nil, err
	}

	s.log.WithField("member_id", target.ID).Info("Member removed")
	return target, nil
}

func (s *AdminService) ListMembers(ctx context.Context, performingAdminID int64, activeOnly bool) ([]*member.Member, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	var members []*member.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		if activeOnly {
			members, err = repos.Members.ListActive(ctx)
		} else {
			members, err = repos.Members.ListAll(ctx)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// CreateSchedule validates the input, stores the schedule with its
// assignment pool and computes the first due date.
func (s *AdminService) CreateSchedule(ctx context.Context, performingAdminID int64, input ScheduleInput) (*schedule.Schedule, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	var created *schedule.Schedule
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		sch, memberIDs, err := s.buildSchedule(ctx, repos, input)
		if err != nil {
			return err
		}
		if err := s.persistSchedule(ctx, repos, sch, memberIDs); err != nil {
			return err
		}
		created = sch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"schedule_id": created.ID,
		"kind":        created.Kind,
		"frequency":   created.State.Frequency,
	}).Info("Schedule created")
	return created, nil
}

// ReconfigureSchedule replaces a schedule with a new one built from input.
// The old schedule is deactivated and points at its replacement. An input
// without members keeps the old assignment pool.
func (s *AdminService) ReconfigureSchedule(ctx context.Context, performingAdminID int64, id uuid.UUID, input ScheduleInput) (*schedule.Schedule, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	var replacement *schedule.Schedule
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		old, err := repos.Schedules.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !old.State.IsActive {
			return ErrScheduleInactive
		}

		input.Kind = old.Kind
		var oldPool []*schedule.Assignment
		if len(input.MemberTelegramIDs) == 0 {
			if oldPool, err = repos.Schedules.ListActiveAssignments(ctx, old.ID); err != nil {
				return fmt.Errorf("failed to load current assignments: %w", err)
			}
		}

		sch, memberIDs, err := s.buildSchedule(ctx, repos, input, oldPool...)
		if err != nil {
			return err
		}
		// Carrying the last fire over keeps a same-day reconfiguration from firing twice.
		sch.State.LastProcessedAt = old.State.LastProcessedAt
		if err := s.persistSchedule(ctx, repos, sch, memberIDs); err != nil {
			return err
		}

		old.State.IsActive = false
		old.NextRunAt = sql.NullTime{}
		old.SupersededBy = uuid.NullUUID{UUID: sch.ID, Valid: true}
		if err := repos.Schedules.Update(ctx, old); err != nil {
			return fmt.Errorf("failed to supersede schedule: %w", err)
		}
		replacement = sch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"schedule_id": id, "superseded_by": replacement.ID}).Info("Schedule reconfigured")
	return replacement, nil
}

func (s *AdminService) PauseSchedule(ctx context.Context, performingAdminID int64, id uuid.UUID) (*schedule.Schedule, error) {
	return s.changeState(ctx, performingAdminID, id, "paused", func(st *schedule.State) bool {
		if st.IsPaused {
			return false
		}
		st.IsPaused = true
		return true
	})
}

func (s *AdminService) ResumeSchedule(ctx context.Context, performingAdminID int64, id uuid.UUID) (*schedule.Schedule, error) {
	return s.changeState(ctx, performingAdminID, id, "resumed", func(st *schedule.State) bool {
		if !st.IsPaused {
			return false
		}
		st.IsPaused = false
		return true
	})
}

func (s *AdminService) ActivateSchedule(ctx context.Context, performingAdminID int64, id uuid.UUID) (*schedule.Schedule, error) {
	return s.changeState(ctx, performingAdminID, id, "activated", func(st *schedule.State) bool {
		if st.IsActive {
			return false
		}
		st.IsActive = true
		return true
	})
}

func (s *AdminService) DeactivateSchedule(ctx context.Context, performingAdminID int64, id uuid.UUID) (*schedule.Schedule, error) {
	return s.changeState(ctx, performingAdminID, id, "deactivated", func(st *schedule.State) bool {
		if !st.IsActive {
			return false
		}
		st.IsActive = false
		return true
	})
}

// changeState applies mutate to the locked schedule. mutate returns false
// when the schedule is already in the requested state.
func (s *AdminService) changeState(ctx context.Context, performingAdminID int64, id uuid.UUID, action string, mutate func(*schedule.State) bool) (*schedule.Schedule, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	var result *schedule.Schedule
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		sch, err := repos.Schedules.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		result = sch
		if !mutate(&sch.State) {
			return ErrScheduleUnchanged
		}
		if sch.State.IsActive && !sch.State.IsPaused {
			sch.NextRunAt = s.firstRun(sch.State)
		}
		if err := repos.Schedules.Update(ctx, sch); err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrScheduleUnchanged) {
		return result, err
	}
	if err != nil {
		return nil, err
	}

	s.log.WithField("schedule_id", id).Infof("Schedule %s", action)
	return result, nil
}

// UpcomingForSchedule lists the schedule's due dates for the next days days,
// starting today and limited to its start and end dates.
func (s *AdminService) UpcomingForSchedule(ctx context.Context, performingAdminID int64, id uuid.UUID, days int) ([]time.Time, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	if days <= 0 || days > maxUpcomingDays {
		return nil, &schedule.ValidationError{Field: "days", Reason: fmt.Sprintf("must be between 1 and %d", maxUpcomingDays)}
	}

	var sch *schedule.Schedule
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		sch, err = repos.Schedules.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return withinBounds(sch.State, schedule.UpcomingOccurrences(sch.State.Frequency, s.now(), days, sch.State.Anchor)), nil
}

func (s *AdminService) ListSchedules(ctx context.Context, performingAdminID int64) ([]*schedule.Schedule, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	var schedules []*schedule.Schedule
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		schedules, err = repos.Schedules.ListAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// buildSchedule validates input and resolves its members. When the input
// names no members, fallbackPool is used as the assignment pool.
func (s *AdminService) buildSchedule(ctx context.Context, repos store.Repositories, input ScheduleInput, fallbackPool ...*schedule.Assignment) (*schedule.Schedule, []uuid.UUID, error) {
	if input.AssignmentType == "" {
		input.AssignmentType = schedule.AssignmentFixed
	}
	if err := inputValidator.Struct(input); err != nil {
		return nil, nil, asValidationError(err)
	}
	if _, err := schedule.NewRule(input.Frequency, input.Anchor); err != nil {
		return nil, nil, err
	}
	if input.StartDate.Valid && input.EndDate.Valid && input.EndDate.Time.Before(input.StartDate.Time) {
		return nil, nil, &schedule.ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}

	var memberIDs []uuid.UUID
	if len(input.MemberTelegramIDs) == 0 {
		for _, a := range fallbackPool {
			memberIDs = append(memberIDs, a.MemberID)
		}
	}
	seen := make(map[int64]bool, len(input.MemberTelegramIDs))
	for _, tgID := range input.MemberTelegramIDs {
		if seen[tgID] {
			return nil, nil, &schedule.ValidationError{Field: "members", Reason: fmt.Sprintf("Telegram ID %d listed twice", tgID)}
		}
		seen[tgID] = true

		m, err := repos.Members.GetByTelegramID(ctx, tgID)
		if errors.Is(err, member.ErrNotFound) || (err == nil && !m.IsActive) {
			return nil, nil, &schedule.ValidationError{Field: "members", Reason: fmt.Sprintf("no active member with Telegram ID %d", tgID)}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to look up member %d: %w", tgID, err)
		}
		memberIDs = append(memberIDs, m.ID)
	}
	if len(memberIDs) == 0 {
		return nil, nil, &schedule.ValidationError{Field: "members", Reason: "at least one member is required"}
	}

	sch := &schedule.Schedule{
		ID:             uuid.New(),
		Kind:           input.Kind,
		Title:          input.Title,
		AmountCents:    input.AmountCents,
		AssignmentType: input.AssignmentType,
		State: schedule.State{
			Frequency: input.Frequency,
			Anchor:    input.Anchor,
			IsActive:  true,
			StartDate: dayOf(input.StartDate),
			EndDate:   dayOf(input.EndDate),
		},
	}
	if input.CronExpr != "" {
		sch.CronExpr = sql.NullString{String: input.CronExpr, Valid: true}
	}
	sch.NextRunAt = s.firstRun(sch.State)
	return sch, memberIDs, nil
}

func (s *AdminService) persistSchedule(ctx context.Context, repos store.Repositories, sch *schedule.Schedule, memberIDs []uuid.UUID) error {
	if err := repos.Schedules.Create(ctx, sch); err != nil {
		return fmt.Errorf("failed to create schedule in repository: %w", err)
	}
	for i, memberID := range memberIDs {
		a := &schedule.Assignment{
			ScheduleID:    sch.ID,
			MemberID:      memberID,
			RotationOrder: sql.NullInt32{Int32: int32(i), Valid: true},
			IsActive:      true,
		}
		if err := repos.Schedules.AddAssignment(ctx, a); err != nil {
			return fmt.Errorf("failed to assign member: %w", err)
		}
	}
	return nil
}

// firstRun is the first due day on or after today and the start date, or
// null when the rule cannot be computed.
func (s *AdminService) firstRun(state schedule.State) sql.NullTime {
	from := calendar.StartOfDay(s.now())
	if state.StartDate.Valid && state.StartDate.Time.After(from) {
		from = calendar.StartOfDay(state.StartDate.Time)
	}
	next, err := schedule.NextOccurrence(state.Frequency, calendar.AddDays(from, -1), state.Anchor)
	if err != nil {
		return sql.NullTime{}
	}
	if state.EndDate.Valid && next.After(calendar.StartOfDay(state.EndDate.Time)) {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: next, Valid: true}
}

func dayOf(t sql.NullTime) sql.NullTime {
	if !t.Valid {
		return t
	}
	return sql.NullTime{Time: calendar.StartOfDay(t.Time), Valid: true}
}

// asValidationError reports the first failing field the way the schedule
// package reports anchor problems.
func asValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &schedule.ValidationError{Field: fe.Field(), Reason: reason}
	}
	return fmt.Errorf("%w: %v", schedule.ErrValidation, err)
}
