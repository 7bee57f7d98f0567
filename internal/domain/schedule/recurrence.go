package schedule

import (
	"time"

	"household_schedule_bot/internal/domain/calendar"
)

// NextOccurrence returns the first occurrence strictly after the reference
// day. It fails with a *ValidationError when the anchor does not fit the
// frequency, and with ErrUnsupportedFrequency for CUSTOM schedules.
func NextOccurrence(frequency Frequency, reference time.Time, anchor Anchor) (time.Time, error) {
	rule, err := NewRule(frequency, anchor)
	if err != nil {
		return time.Time{}, err
	}
	return NextOccurrenceOf(rule, reference)
}

// NextOccurrenceOf is NextOccurrence for an already validated Rule.
func NextOccurrenceOf(rule Rule, reference time.Time) (time.Time, error) {
	ref := calendar.StartOfDay(reference)

	switch r := rule.(type) {
	case DailyRule:
		return calendar.AddDays(ref, 1), nil
	case WeeklyRule:
		return nextWeekday(ref, r.DayOfWeek), nil
	case BiweeklyRule:
		return nextWeekday(ref, r.DayOfWeek), nil
	case MonthlyRule:
		candidate := clampedDate(ref.Year(), ref.Month(), r.DayOfMonth)
		if candidate.After(ref) {
			return candidate, nil
		}
		return clampedDate(ref.Year(), ref.Month()+1, r.DayOfMonth), nil
	case CustomRule:
		return time.Time{}, ErrUnsupportedFrequency
	default:
		return time.Time{}, &ValidationError{Field: "frequency", Reason: "unsupported rule"}
	}
}

// UpcomingOccurrences lists the occurrences within windowDays days starting at
// the reference day (inclusive). Invalid anchors, CUSTOM schedules and empty
// windows yield an empty result rather than an error.
func UpcomingOccurrences(frequency Frequency, reference time.Time, windowDays int, anchor Anchor) []time.Time {
	rule, err := NewRule(frequency, anchor)
	if err != nil {
		return []time.Time{}
	}
	return UpcomingOccurrencesOf(rule, reference, windowDays)
}

// UpcomingOccurrencesOf is UpcomingOccurrences for an already validated Rule.
func UpcomingOccurrencesOf(rule Rule, reference time.Time, windowDays int) []time.Time {
	dates := []time.Time{}
	if windowDays <= 0 {
		return dates
	}

	start := calendar.StartOfDay(reference)
	end := calendar.AddDays(start, windowDays) // exclusive

	switch r := rule.(type) {
	case DailyRule:
		for i := 0; i < windowDays; i++ {
			dates = append(dates, calendar.AddDays(start, i))
		}
	case WeeklyRule:
		dates = everyNDays(firstWeekdayOnOrAfter(start, r.DayOfWeek), end, 7)
	case BiweeklyRule:
		dates = everyNDays(firstWeekdayOnOrAfter(start, r.DayOfWeek), end, 14)
	case MonthlyRule:
		year, month := start.Year(), start.Month()
		for {
			monthStart := calendar.Date(year, month, 1)
			if !monthStart.Before(end) {
				break
			}
			candidate := clampedDate(year, month, r.DayOfMonth)
			if !candidate.Before(start) && candidate.Before(end) {
				dates = append(dates, candidate)
			}
			next := monthStart.AddDate(0, 1, 0)
			year, month = next.Year(), next.Month()
		}
	case CustomRule:
		// intervalDays has no epoch to count from yet.
	}

	return dates
}

func nextWeekday(ref time.Time, target time.Weekday) time.Time {
	offset := (int(target) - int(ref.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return calendar.AddDays(ref, offset)
}

func firstWeekdayOnOrAfter(ref time.Time, target time.Weekday) time.Time {
	offset := (int(target) - int(ref.Weekday()) + 7) % 7
	return calendar.AddDays(ref, offset)
}

func everyNDays(first, end time.Time, step int) []time.Time {
	dates := []time.Time{}
	for d := first; d.Before(end); d = calendar.AddDays(d, step) {
		dates = append(dates, d)
	}
	return dates
}

// clampedDate accepts month overflow (month 13 is January of the next year).
func clampedDate(year int, month time.Month, day int) time.Time {
	first := calendar.Date(year, month, 1)
	return calendar.Date(first.Year(), first.Month(), calendar.ClampDayOfMonth(first.Year(), first.Month(), day))
}
