package schedule

import (
	"database/sql"
	"time"
)

// Anchor is the flat, persisted form of the frequency-specific parameters.
// Which fields are required depends on the Frequency; NewRule checks that.
type Anchor struct {
	DayOfWeek    sql.NullInt32 // 0 = Sunday .. 6 = Saturday, WEEKLY and BIWEEKLY
	DayOfMonth   sql.NullInt32 // 1..31, MONTHLY
	IntervalDays sql.NullInt32 // > 0, CUSTOM
}

// WeekdayAnchor is a convenience constructor for WEEKLY/BIWEEKLY anchors.
func WeekdayAnchor(d time.Weekday) Anchor {
	return Anchor{DayOfWeek: sql.NullInt32{Int32: int32(d), Valid: true}}
}

// MonthDayAnchor is a convenience constructor for MONTHLY anchors.
func MonthDayAnchor(day int) Anchor {
	return Anchor{DayOfMonth: sql.NullInt32{Int32: int32(day), Valid: true}}
}

// IntervalAnchor is a convenience constructor for CUSTOM anchors.
func IntervalAnchor(days int) Anchor {
	return Anchor{IntervalDays: sql.NullInt32{Int32: int32(days), Valid: true}}
}

// Rule is a validated recurrence. Each variant carries exactly the fields its
// frequency needs, so a Rule cannot be missing a required anchor.
type Rule interface {
	Frequency() Frequency
	isRule()
}

type DailyRule struct{}

type WeeklyRule struct {
	DayOfWeek time.Weekday
}

// BiweeklyRule has no epoch: the next matching weekday is used, fortnightly
// parity is only enforced by the processing gate through lastProcessedAt.
type BiweeklyRule struct {
	DayOfWeek time.Weekday
}

type MonthlyRule struct {
	DayOfMonth int
}

type CustomRule struct {
	IntervalDays int
}

func (DailyRule) Frequency() Frequency    { return FrequencyDaily }
func (WeeklyRule) Frequency() Frequency   { return FrequencyWeekly }
func (BiweeklyRule) Frequency() Frequency { return FrequencyBiweekly }
func (MonthlyRule) Frequency() Frequency  { return FrequencyMonthly }
func (CustomRule) Frequency() Frequency   { return FrequencyCustom }

func (DailyRule) isRule()    {}
func (WeeklyRule) isRule()   {}
func (BiweeklyRule) isRule() {}
func (MonthlyRule) isRule()  {}
func (CustomRule) isRule()   {}

// NewRule validates the anchor against the frequency and returns the matching
// Rule variant. Fields that the frequency does not use are ignored.
func NewRule(frequency Frequency, anchor Anchor) (Rule, error) {
	switch frequency {
	case FrequencyDaily:
		return DailyRule{}, nil
	case FrequencyWeekly, FrequencyBiweekly:
		day, err := weekdayOf(frequency, anchor)
		if err != nil {
			return nil, err
		}
		if frequency == FrequencyWeekly {
			return WeeklyRule{DayOfWeek: day}, nil
		}
		return BiweeklyRule{DayOfWeek: day}, nil
	case FrequencyMonthly:
		if !anchor.DayOfMonth.Valid {
			return nil, &ValidationError{Field: "dayOfMonth", Reason: "required for MONTHLY frequency"}
		}
		if d := anchor.DayOfMonth.Int32; d < 1 || d > 31 {
			return nil, &ValidationError{Field: "dayOfMonth", Reason: "must be between 1 and 31"}
		}
		return MonthlyRule{DayOfMonth: int(anchor.DayOfMonth.Int32)}, nil
	case FrequencyCustom:
		if !anchor.IntervalDays.Valid {
			return nil, &ValidationError{Field: "intervalDays", Reason: "required for CUSTOM frequency"}
		}
		if anchor.IntervalDays.Int32 < 1 {
			return nil, &ValidationError{Field: "intervalDays", Reason: "must be a positive number of days"}
		}
		return CustomRule{IntervalDays: int(anchor.IntervalDays.Int32)}, nil
	default:
		return nil, &ValidationError{Field: "frequency", Reason: "unsupported frequency " + string(frequency)}
	}
}

func weekdayOf(frequency Frequency, anchor Anchor) (time.Weekday, error) {
	if !anchor.DayOfWeek.Valid {
		return 0, &ValidationError{Field: "dayOfWeek", Reason: "required for " + string(frequency) + " frequency"}
	}
	if d := anchor.DayOfWeek.Int32; d < 0 || d > 6 {
		return 0, &ValidationError{Field: "dayOfWeek", Reason: "must be between 0 (Sunday) and 6 (Saturday)"}
	}
	return time.Weekday(anchor.DayOfWeek.Int32), nil
}

// AnchorOf flattens a Rule back into its persisted form.
func AnchorOf(rule Rule) Anchor {
	switch r := rule.(type) {
	case WeeklyRule:
		return WeekdayAnchor(r.DayOfWeek)
	case BiweeklyRule:
		return WeekdayAnchor(r.DayOfWeek)
	case MonthlyRule:
		return MonthDayAnchor(r.DayOfMonth)
	case CustomRule:
		return IntervalAnchor(r.IntervalDays)
	default:
		return Anchor{}
	}
}
