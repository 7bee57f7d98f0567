package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"household_schedule_bot/internal/domain/calendar"
	"household_schedule_bot/internal/domain/member"
	"household_schedule_bot/internal/domain/occurrence"
	"household_schedule_bot/internal/domain/rotation"
	"household_schedule_bot/internal/domain/schedule"
	"household_schedule_bot/internal/domain/store"
	domainTelegram "household_schedule_bot/internal/domain/telegram"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var (
	ErrNotAssignee    = errors.New("occurrence is assigned to another member")
	ErrNotCompletable = errors.New("occurrence cannot be marked done")
)

// DoneButtonUnique identifies the inline "done" button attached to chore notices.
const DoneButtonUnique = "done"

// Summary counts what one processing run did.
type Summary struct {
	Seen    int // schedules examined
	Fired   int // allowance schedules that passed the gate
	Created int // occurrences written
	Skipped int // dates or members that already had an occurrence, or schedules with nobody assigned
	Errors  int // schedules whose transaction failed
}

// Recorder receives processing outcomes, typically for metrics.
type Recorder interface {
	ObserveDecision(kind schedule.Kind, reason schedule.Reason)
	AddOccurrences(kind schedule.Kind, n int)
	ProcessingFailed(kind schedule.Kind)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDecision(schedule.Kind, schedule.Reason) {}
func (nopRecorder) AddOccurrences(schedule.Kind, int)              {}
func (nopRecorder) ProcessingFailed(schedule.Kind)                 {}

// notice is a message queued inside a transaction and sent after commit.
type notice struct {
	chatID  int64
	text    string
	options *telebot.SendOptions
}

// ProcessingService fires due allowances and materialises chore occurrences.
type ProcessingService struct {
	tx             store.Transactor
	telegramClient domainTelegram.Client
	recorder       Recorder
	log            *logrus.Entry
	now            func() time.Time
}

func NewProcessingService(tx store.Transactor, tc domainTelegram.Client, recorder Recorder, log *logrus.Entry) *ProcessingService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ProcessingService{
		tx:             tx,
		telegramClient: tc,
		recorder:       recorder,
		log:            log,
		now:            time.Now,
	}
}

// ProcessAllowances runs the processing gate over every active allowance and
// credits the recipients of those that are due on the UTC day of now.
func (s *ProcessingService) ProcessAllowances(ctx context.Context, now time.Time) (Summary, error) {
	var summary Summary
	log := s.log.WithField("run", "allowances")

	ids, err := s.activeScheduleIDs(ctx, schedule.KindAllowance)
	if err != nil {
		return summary, err
	}
	log.WithField("count", len(ids)).Info("Processing allowance schedules")

	for _, id := range ids {
		summary.Seen++
		entry := log.WithField("schedule_id", id)

		var notices []notice
		var decision schedule.Decision
		var created, skipped int
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
			var err error
			decision, created, skipped, notices, err = s.fireAllowance(ctx, repos, id, now)
			return err
		})
		if err != nil {
			summary.Errors++
			s.recorder.ProcessingFailed(schedule.KindAllowance)
			entry.WithError(err).Error("Failed to process allowance schedule")
			continue
		}

		s.recorder.ObserveDecision(schedule.KindAllowance, decision.Reason)
		entry = entry.WithField("decision", decision.Reason)
		if decision.Fire && created > 0 {
			summary.Fired++
		}
		summary.Created += created
		summary.Skipped += skipped
		s.recorder.AddOccurrences(schedule.KindAllowance, created)
		entry.WithField("created", created).Debug("Allowance schedule evaluated")

		s.deliver(entry, notices)
	}

	log.WithFields(logrus.Fields{
		"seen": summary.Seen, "fired": summary.Fired, "created": summary.Created,
		"skipped": summary.Skipped, "errors": summary.Errors,
	}).Info("Allowance run finished")
	return summary, nil
}

func (s *ProcessingService) fireAllowance(ctx context.Context, repos store.Repositories, id uuid.UUID, now time.Time) (schedule.Decision, int, int, []notice, error) {
	sch, err := repos.Schedules.GetForUpdate(ctx, id)
	if err != nil {
		return schedule.Decision{}, 0, 0, nil, fmt.Errorf("failed to lock schedule: %w", err)
	}

	decision := schedule.Evaluate(sch.State, now)
	if !decision.Fire {
		return decision, 0, 0, nil, nil
	}

	pool, err := repos.Schedules.ListActiveAssignments(ctx, sch.ID)
	if err != nil {
		return decision, 0, 0, nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if len(pool) == 0 {
		// Left unprocessed so it fires once someone is assigned today.
		s.log.WithField("schedule_id", sch.ID).Warn("Allowance is due but has no active assignees")
		return decision, 0, 1, nil, nil
	}

	previous, err := latestAssignee(ctx, repos, sch.ID)
	if err != nil {
		return decision, 0, 0, nil, err
	}

	today := calendar.StartOfDay(now)
	var created, skipped int
	var notices []notice
	for _, memberID := range recipients(sch.AssignmentType, candidatesOf(pool), previous) {
		occ := &occurrence.Occurrence{
			ScheduleID:  sch.ID,
			AssigneeID:  memberID,
			DueDate:     today,
			Status:      occurrence.StatusPaid,
			AmountCents: sch.AmountCents,
		}
		occ.CompletedAt.Time, occ.CompletedAt.Valid = now.UTC(), true

		if err := repos.Occurrences.Create(ctx, occ); err != nil {
			if errors.Is(err, occurrence.ErrDuplicate) {
				skipped++
				continue
			}
			return decision, 0, 0, nil, fmt.Errorf("failed to create allowance occurrence: %w", err)
		}
		created++

		m, err := repos.Members.GetByID(ctx, memberID)
		if err != nil {
			return decision, 0, 0, nil, fmt.Errorf("failed to load member %s: %w", memberID, err)
		}
		notices = append(notices, notice{
			chatID: m.TelegramID,
			text:   fmt.Sprintf("Hi %s! Your allowance \"%s\" of %s has been paid.", m.FirstName, sch.Title, FormatAmount(sch.AmountCents)),
		})
	}

	sch.State = schedule.MarkProcessed(sch.State, now)
	sch.NextRunAt.Valid = false
	if rule, err := sch.State.Rule(); err == nil {
		if next, err := schedule.NextOccurrenceOf(rule, now); err == nil {
			sch.NextRunAt.Time, sch.NextRunAt.Valid = next, true
		}
	}
	if err := repos.Schedules.Update(ctx, sch); err != nil {
		return decision, 0, 0, nil, fmt.Errorf("failed to mark schedule processed: %w", err)
	}

	return decision, created, skipped, notices, nil
}

// GenerateChoreOccurrences creates pending occurrences for every active chore
// due within lookaheadDays days starting today. Days that already have an
// occurrence are left alone, so repeated runs create nothing new.
func (s *ProcessingService) GenerateChoreOccurrences(ctx context.Context, now time.Time, lookaheadDays int) (Summary, error) {
	var summary Summary
	log := s.log.WithFields(logrus.Fields{"run": "chores", "lookahead_days": lookaheadDays})

	ids, err := s.activeScheduleIDs(ctx, schedule.KindChore)
	if err != nil {
		return summary, err
	}
	log.WithField("count", len(ids)).Info("Generating chore occurrences")

	for _, id := range ids {
		summary.Seen++
		entry := log.WithField("schedule_id", id)

		var notices []notice
		var created, skipped int
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
			var err error
			created, skipped, notices, err = s.generateChores(ctx, repos, id, now, lookaheadDays)
			return err
		})
		if err != nil {
			summary.Errors++
			s.recorder.ProcessingFailed(schedule.KindChore)
			entry.WithError(err).Error("Failed to generate chore occurrences")
			continue
		}

		summary.Created += created
		summary.Skipped += skipped
		s.recorder.AddOccurrences(schedule.KindChore, created)
		entry.WithFields(logrus.Fields{"created": created, "skipped": skipped}).Debug("Chore schedule processed")

		s.deliver(entry, notices)
	}

	log.WithFields(logrus.Fields{
		"seen": summary.Seen, "created": summary.Created,
		"skipped": summary.Skipped, "errors": summary.Errors,
	}).Info("Chore run finished")
	return summary, nil
}

func (s *ProcessingService) generateChores(ctx context.Context, repos store.Repositories, id uuid.UUID, now time.Time, lookaheadDays int) (int, int, []notice, error) {
	sch, err := repos.Schedules.GetForUpdate(ctx, id)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to lock schedule: %w", err)
	}
	if !sch.State.IsActive || sch.State.IsPaused {
		return 0, 1, nil, nil
	}

	dates := withinBounds(sch.State, schedule.UpcomingOccurrences(sch.State.Frequency, now, lookaheadDays, sch.State.Anchor))
	if len(dates) == 0 {
		return 0, 0, nil, nil
	}

	pool, err := repos.Schedules.ListActiveAssignments(ctx, sch.ID)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if len(pool) == 0 {
		s.log.WithField("schedule_id", sch.ID).Warn("Chore has upcoming dates but no active assignees")
		return 0, 1, nil, nil
	}
	candidates := candidatesOf(pool)

	previous, err := latestAssignee(ctx, repos, sch.ID)
	if err != nil {
		return 0, 0, nil, err
	}

	today := calendar.StartOfDay(now)
	var created, skipped int
	var dueToday []*occurrence.Occurrence
	for _, day := range dates {
		if sch.AssignmentType != schedule.AssignmentOptIn {
			exists, err := repos.Occurrences.ExistsForDay(ctx, sch.ID, day)
			if err != nil {
				return 0, 0, nil, fmt.Errorf("failed to check occurrences on %s: %w", day.Format(time.DateOnly), err)
			}
			if exists {
				skipped++
				continue
			}
		}

		for _, memberID := range recipients(sch.AssignmentType, candidates, previous) {
			if sch.AssignmentType == schedule.AssignmentOptIn {
				exists, err := repos.Occurrences.ExistsForMemberOnDay(ctx, sch.ID, memberID, day)
				if err != nil {
					return 0, 0, nil, fmt.Errorf("failed to check member occurrence on %s: %w", day.Format(time.DateOnly), err)
				}
				if exists {
					skipped++
					continue
				}
			}

			occ := &occurrence.Occurrence{
				ScheduleID:  sch.ID,
				AssigneeID:  memberID,
				DueDate:     day,
				Status:      occurrence.StatusPending,
				AmountCents: sch.AmountCents,
			}
			if err := repos.Occurrences.Create(ctx, occ); err != nil {
				if errors.Is(err, occurrence.ErrDuplicate) {
					skipped++
					continue
				}
				return 0, 0, nil, fmt.Errorf("failed to create chore occurrence: %w", err)
			}
			created++
			if sch.AssignmentType == schedule.AssignmentRotating {
				assigned := memberID
				previous = &assigned
			}
			if calendar.IsSameDay(day, today) {
				dueToday = append(dueToday, occ)
			}
		}
	}

	next := sql.NullTime{Time: dates[0], Valid: true}
	if sch.NextRunAt != next {
		sch.NextRunAt = next
		if err := repos.Schedules.Update(ctx, sch); err != nil {
			return 0, 0, nil, fmt.Errorf("failed to update next run: %w", err)
		}
	}

	notices := make([]notice, 0, len(dueToday))
	for _, occ := range dueToday {
		m, err := repos.Members.GetByID(ctx, occ.AssigneeID)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("failed to load member %s: %w", occ.AssigneeID, err)
		}
		notices = append(notices, choreNotice(m, sch, occ))
	}
	return created, skipped, notices, nil
}

// CompleteOccurrence marks a pending chore as done by its assignee.
// Completing an already completed chore returns it unchanged.
func (s *ProcessingService) CompleteOccurrence(ctx context.Context, occurrenceID uuid.UUID, telegramID int64) (*occurrence.Occurrence, error) {
	var result *occurrence.Occurrence
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		m, err := repos.Members.GetByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}
		occ, err := repos.Occurrences.GetByID(ctx, occurrenceID)
		if err != nil {
			return err
		}
		if occ.AssigneeID != m.ID {
			return ErrNotAssignee
		}

		switch occ.Status {
		case occurrence.StatusCompleted:
			result = occ
			return nil
		case occurrence.StatusPending:
		default:
			return ErrNotCompletable
		}

		occ.Status = occurrence.StatusCompleted
		occ.CompletedAt.Time, occ.CompletedAt.Valid = s.now().UTC(), true
		if err := repos.Occurrences.Update(ctx, occ); err != nil {
			return fmt.Errorf("failed to complete occurrence: %w", err)
		}
		result = occ
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"occurrence_id": occurrenceID, "member_id": result.AssigneeID}).Info("Chore marked done")
	return result, nil
}

// PendingForMember lists the chores still waiting on the member with the given Telegram ID.
func (s *ProcessingService) PendingForMember(ctx context.Context, telegramID int64) ([]*occurrence.Occurrence, error) {
	var pending []*occurrence.Occurrence
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		m, err := repos.Members.GetByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}
		pending, err = repos.Occurrences.ListPendingForMember(ctx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *ProcessingService) activeScheduleIDs(ctx context.Context, kind schedule.Kind) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		ids, err = repos.Schedules.ListActiveIDs(ctx, kind)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active %s schedules: %w", kind, err)
	}
	return ids, nil
}

func (s *ProcessingService) deliver(entry *logrus.Entry, notices []notice) {
	for _, n := range notices {
		if err := s.telegramClient.SendMessage(n.chatID, n.text, n.options); err != nil {
			entry.WithError(err).WithField("chat_id", n.chatID).Error("Failed to send notification")
			continue
		}
		entry.WithField("chat_id", n.chatID).Debug("Notification sent")
	}
}

func choreNotice(m *member.Member, sch *schedule.Schedule, occ *occurrence.Occurrence) notice {
	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("Done", DoneButtonUnique, occ.ID.String())))
	return notice{
		chatID:  m.TelegramID,
		text:    fmt.Sprintf("Hi %s! \"%s\" is due today.", m.FirstName, sch.Title),
		options: &telebot.SendOptions{ReplyMarkup: markup},
	}
}

// recipients picks who gets an occurrence: FIXED the first member in
// rotation order, ROTATING the member after previous, OPT_IN everyone.
func recipients(assignment schedule.AssignmentType, pool []rotation.Candidate[uuid.UUID], previous *uuid.UUID) []uuid.UUID {
	if len(pool) == 0 {
		return nil
	}
	switch assignment {
	case schedule.AssignmentRotating:
		next, _ := rotation.NextAssignee(pool, previous)
		return []uuid.UUID{next}
	case schedule.AssignmentOptIn:
		sorted := rotation.Sorted(pool)
		ids := make([]uuid.UUID, len(sorted))
		for i, c := range sorted {
			ids[i] = c.ID
		}
		return ids
	default:
		return []uuid.UUID{rotation.Sorted(pool)[0].ID}
	}
}

func candidatesOf(pool []*schedule.Assignment) []rotation.Candidate[uuid.UUID] {
	candidates := make([]rotation.Candidate[uuid.UUID], len(pool))
	for i, a := range pool {
		candidates[i] = rotation.Candidate[uuid.UUID]{ID: a.MemberID, RotationOrder: a.RotationOrder}
	}
	return candidates
}

func latestAssignee(ctx context.Context, repos store.Repositories, scheduleID uuid.UUID) (*uuid.UUID, error) {
	latest, err := repos.Occurrences.Latest(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, occurrence.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest occurrence: %w", err)
	}
	return &latest.AssigneeID, nil
}

// withinBounds drops dates outside the schedule's start and end days.
func withinBounds(state schedule.State, dates []time.Time) []time.Time {
	kept := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if state.StartDate.Valid && d.Before(calendar.StartOfDay(state.StartDate.Time)) {
			continue
		}
		if state.EndDate.Valid && d.After(calendar.StartOfDay(state.EndDate.Time)) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// FormatAmount renders cents as a decimal amount.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
