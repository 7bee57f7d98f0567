// Package calendar holds the date helpers every schedule computation is built on.
// All dates are interpreted in UTC; a "day" is a UTC calendar day.
package calendar

import "time"

// Date returns midnight UTC of the given calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns 00:00:00 UTC of the day d falls on.
func StartOfDay(d time.Time) time.Time {
	u := d.UTC()
	return Date(u.Year(), u.Month(), u.Day())
}

// EndOfDay returns the last representable instant of the UTC day d falls on.
func EndOfDay(d time.Time) time.Time {
	u := d.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

// IsSameDay reports whether a and b share the same UTC year, month and day.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// IsDateInRange reports whether start <= d <= end.
func IsDateInRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

// IsLeapYear follows the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// LastDayOfMonth returns the number of days in month of year.
func LastDayOfMonth(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// ClampDayOfMonth reduces day to the last valid day of the month, so a
// "day 31" schedule lands on Feb 28/29 instead of rolling into March.
func ClampDayOfMonth(year int, month time.Month, day int) int {
	if last := LastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

// AddDays moves d by n calendar days and normalizes to the start of that day.
func AddDays(d time.Time, n int) time.Time {
	s := StartOfDay(d)
	return Date(s.Year(), s.Month(), s.Day()+n)
}

// DaysBetween counts whole UTC days from a to b. It is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}
