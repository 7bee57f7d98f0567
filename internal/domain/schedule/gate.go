package schedule

import (
	"time"

	"household_schedule_bot/internal/domain/calendar"
)

// biweeklyGapDays is the minimum spacing between two BIWEEKLY fires.
const biweeklyGapDays = 14

// Reason explains a gate decision. It is used as a log field and metric label.
type Reason string

const (
	ReasonInactive         Reason = "inactive"
	ReasonPaused           Reason = "paused"
	ReasonEnded            Reason = "ended"
	ReasonNotStarted       Reason = "not_started"
	ReasonAlreadyProcessed Reason = "already_processed"
	ReasonDue              Reason = "due"
	ReasonNotDue           Reason = "not_due"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Fire   bool
	Reason Reason
}

// ShouldFire reports whether the obligation is due on the UTC day of now.
// It has no side effects: after acting on true the caller must persist
// MarkProcessed(state, now) in the same transaction that locked the schedule.
func ShouldFire(state State, now time.Time) bool {
	return Evaluate(state, now).Fire
}

// Evaluate applies the gate rules in order; the first one that matches wins.
func Evaluate(state State, now time.Time) Decision {
	today := calendar.StartOfDay(now)

	switch {
	case !state.IsActive:
		return Decision{Reason: ReasonInactive}
	case state.IsPaused:
		return Decision{Reason: ReasonPaused}
	case state.EndDate.Valid && today.After(calendar.StartOfDay(state.EndDate.Time)):
		return Decision{Reason: ReasonEnded}
	case state.StartDate.Valid && today.Before(calendar.StartOfDay(state.StartDate.Time)):
		return Decision{Reason: ReasonNotStarted}
	case state.LastProcessedAt.Valid && calendar.IsSameDay(state.LastProcessedAt.Time, today):
		return Decision{Reason: ReasonAlreadyProcessed}
	}

	if matchesDay(state, today) {
		return Decision{Fire: true, Reason: ReasonDue}
	}
	return Decision{Reason: ReasonNotDue}
}

func matchesDay(state State, today time.Time) bool {
	rule, err := state.Rule()
	if err != nil {
		return false
	}

	switch r := rule.(type) {
	case DailyRule:
		return true
	case WeeklyRule:
		return today.Weekday() == r.DayOfWeek
	case BiweeklyRule:
		if today.Weekday() != r.DayOfWeek {
			return false
		}
		if !state.LastProcessedAt.Valid {
			return true
		}
		return calendar.DaysBetween(state.LastProcessedAt.Time, today) >= biweeklyGapDays
	case MonthlyRule:
		return today.Day() == calendar.ClampDayOfMonth(today.Year(), today.Month(), r.DayOfMonth)
	default:
		return false
	}
}
