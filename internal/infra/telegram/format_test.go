package telegram

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"household_schedule_bot/internal/app"
	"household_schedule_bot/internal/domain/member"
	"household_schedule_bot/internal/domain/occurrence"
	"household_schedule_bot/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDescribeRule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		state    schedule.State
		expected string
	}{
		{name: "Daily", state: schedule.State{Frequency: schedule.FrequencyDaily}, expected: "every day"},
		{name: "Weekly", state: schedule.State{Frequency: schedule.FrequencyWeekly, Anchor: schedule.WeekdayAnchor(time.Monday)}, expected: "every Monday"},
		{name: "Biweekly", state: schedule.State{Frequency: schedule.FrequencyBiweekly, Anchor: schedule.WeekdayAnchor(time.Friday)}, expected: "every other Friday"},
		{name: "Monthly", state: schedule.State{Frequency: schedule.FrequencyMonthly, Anchor: schedule.MonthDayAnchor(31)}, expected: "monthly on day 31"},
		{name: "Custom", state: schedule.State{Frequency: schedule.FrequencyCustom, Anchor: schedule.IntervalAnchor(3)}, expected: "every 3 days"},
		{name: "Invalid", state: schedule.State{Frequency: schedule.FrequencyWeekly}, expected: "WEEKLY (invalid: invalid dayOfWeek: required for WEEKLY frequency)"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, DescribeRule(tc.state))
		})
	}
}

func TestFormatSchedule(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	next := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	allowance := &schedule.Schedule{
		ID:             id,
		Kind:           schedule.KindAllowance,
		Title:          "Pocket money",
		AmountCents:    500,
		AssignmentType: schedule.AssignmentFixed,
		State:          schedule.State{Frequency: schedule.FrequencyWeekly, Anchor: schedule.WeekdayAnchor(time.Monday), IsActive: true},
		NextRunAt:      sql.NullTime{Time: next, Valid: true},
	}
	assert.Equal(t, id.String()+" [ALLOWANCE] Pocket money: every Monday, FIXED, 5.00, next 2025-01-06", FormatSchedule(allowance))

	paused := &schedule.Schedule{
		ID:             id,
		Kind:           schedule.KindChore,
		Title:          "Dishes",
		AssignmentType: schedule.AssignmentRotating,
		State:          schedule.State{Frequency: schedule.FrequencyDaily, IsActive: true, IsPaused: true},
	}
	assert.Equal(t, id.String()+" [CHORE] Dishes: every day, ROTATING (paused)", FormatSchedule(paused))

	replacement := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	superseded := &schedule.Schedule{
		ID:             id,
		Kind:           schedule.KindChore,
		Title:          "Dishes",
		AssignmentType: schedule.AssignmentOptIn,
		State:          schedule.State{Frequency: schedule.FrequencyDaily},
		SupersededBy:   uuid.NullUUID{UUID: replacement, Valid: true},
	}
	assert.Equal(t, id.String()+" [CHORE] Dishes: every day, OPT_IN (replaced by "+replacement.String()+")", FormatSchedule(superseded))

	superseded.SupersededBy = uuid.NullUUID{}
	assert.Contains(t, FormatSchedule(superseded), "(inactive)")
}

func TestFormatDates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No upcoming dates in that window.", FormatDates(nil))

	dates := []time.Time{
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "Fri 2025-01-31\nFri 2025-02-28", FormatDates(dates))
}

func TestFormatMemberAndPending(t *testing.T) {
	t.Parallel()

	m := &member.Member{TelegramID: 42, FirstName: "Ann", LastName: sql.NullString{String: "Lee", Valid: true}, IsActive: true}
	assert.Equal(t, "Ann Lee (Telegram ID: 42, active)", formatMember(m))

	assert.Equal(t, "You have no pending chores.", formatPending(nil))

	occID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	pending := []*occurrence.Occurrence{{ID: occID, DueDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}}
	assert.Equal(t, "Pending chores:\n"+occID.String()+" due 2025-03-01", formatPending(pending))
}

func TestErrorReply(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		err        error
		expected   string
		unexpected bool
	}{
		{name: "Unauthorized", err: app.ErrAdminNotAuthorized, expected: msgUnauthorized},
		{name: "Usage", err: &UsageError{Usage: "/x", Reason: "Nope."}, expected: "Nope.\nUsage: /x"},
		{name: "Validation", err: fmt.Errorf("wrap: %w", &schedule.ValidationError{Field: "dayOfMonth", Reason: "must be between 1 and 31"}), expected: "Invalid input: invalid dayOfMonth: must be between 1 and 31"},
		{name: "Member missing", err: member.ErrNotFound, expected: "No member with that Telegram ID."},
		{name: "Schedule missing", err: fmt.Errorf("lookup: %w", schedule.ErrNotFound), expected: "Schedule not found."},
		{name: "Not assignee", err: app.ErrNotAssignee, expected: "This chore is assigned to someone else."},
		{name: "Unchanged", err: app.ErrScheduleUnchanged, expected: "Nothing to do: the schedule is already in that state."},
		{name: "Unknown", err: errors.New("connection reset"), expected: "Something went wrong, please try again later.", unexpected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			text, unexpected := errorReply(tc.err)
			assert.Equal(t, tc.expected, text)
			assert.Equal(t, tc.unexpected, unexpected)
		})
	}
}
