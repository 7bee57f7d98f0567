package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"household_schedule_bot/internal/app"
	"household_schedule_bot/internal/domain/member"
	"household_schedule_bot/internal/domain/occurrence"
	"household_schedule_bot/internal/domain/schedule"
)

const msgUnauthorized = "Error: you are not allowed to run this command."

// DescribeRule renders a schedule's recurrence for people.
func DescribeRule(st schedule.State) string {
	rule, err := st.Rule()
	if err != nil {
		return fmt.Sprintf("%s (invalid: %v)", st.Frequency, err)
	}
	switch r := rule.(type) {
	case schedule.DailyRule:
		return "every day"
	case schedule.WeeklyRule:
		return "every " + r.DayOfWeek.String()
	case schedule.BiweeklyRule:
		return "every other " + r.DayOfWeek.String()
	case schedule.MonthlyRule:
		return fmt.Sprintf("monthly on day %d", r.DayOfMonth)
	case schedule.CustomRule:
		return fmt.Sprintf("every %d days", r.IntervalDays)
	}
	return string(st.Frequency)
}

// FormatSchedule is the one-line summary used by /schedules and command replies.
func FormatSchedule(sch *schedule.Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s: %s, %s", sch.ID, sch.Kind, sch.Title, DescribeRule(sch.State), sch.AssignmentType)
	if sch.Kind == schedule.KindAllowance {
		fmt.Fprintf(&b, ", %s", app.FormatAmount(sch.AmountCents))
	}
	if sch.NextRunAt.Valid {
		fmt.Fprintf(&b, ", next %s", sch.NextRunAt.Time.Format(time.DateOnly))
	}

	switch {
	case sch.SupersededBy.Valid:
		fmt.Fprintf(&b, " (replaced by %s)", sch.SupersededBy.UUID)
	case !sch.State.IsActive:
		b.WriteString(" (inactive)")
	case sch.State.IsPaused:
		b.WriteString(" (paused)")
	}
	return b.String()
}

// FormatDates renders one date per line, or a note when there are none.
func FormatDates(dates []time.Time) string {
	if len(dates) == 0 {
		return "No upcoming dates in that window."
	}
	lines := make([]string, len(dates))
	for i, d := range dates {
		lines[i] = d.Format("Mon 2006-01-02")
	}
	return strings.Join(lines, "\n")
}

func formatMember(m *member.Member) string {
	status := "inactive"
	if m.IsActive {
		status = "active"
	}
	return fmt.Sprintf("%s (Telegram ID: %d, %s)", m.DisplayName(), m.TelegramID, status)
}

func formatPending(occs []*occurrence.Occurrence) string {
	if len(occs) == 0 {
		return "You have no pending chores."
	}
	var b strings.Builder
	b.WriteString("Pending chores:\n")
	for _, o := range occs {
		fmt.Fprintf(&b, "%s due %s\n", o.ID, o.DueDate.Format(time.DateOnly))
	}
	return strings.TrimRight(b.String(), "\n")
}

// errorReply maps a service error to the text sent back to the user.
// unexpected is true for errors that should be logged as failures.
func errorReply(err error) (text string, unexpected bool) {
	var usageErr *UsageError
	var validationErr *schedule.ValidationError

	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		return msgUnauthorized, false
	case errors.As(err, &usageErr):
		return usageErr.Error(), false
	case errors.As(err, &validationErr):
		return "Invalid input: " + validationErr.Error(), false
	case errors.Is(err, schedule.ErrValidation):
		return "Invalid input: " + err.Error(), false
	case errors.Is(err, member.ErrNotFound):
		return "No member with that Telegram ID.", false
	case errors.Is(err, schedule.ErrNotFound):
		return "Schedule not found.", false
	case errors.Is(err, occurrence.ErrNotFound):
		return "That chore no longer exists.", false
	case errors.Is(err, app.ErrMemberAlreadyExists):
		return "A member with that Telegram ID already exists.", false
	case errors.Is(err, app.ErrMemberAlreadyInactive):
		return "That member was already removed.", false
	case errors.Is(err, app.ErrScheduleUnchanged):
		return "Nothing to do: the schedule is already in that state.", false
	case errors.Is(err, app.ErrScheduleInactive):
		return "That schedule is inactive and cannot be changed.", false
	case errors.Is(err, app.ErrNotAssignee):
		return "This chore is assigned to someone else.", false
	case errors.Is(err, app.ErrNotCompletable):
		return "This item cannot be marked done.", false
	}
	return "Something went wrong, please try again later.", true
}
