package telegram

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"household_schedule_bot/internal/app"
	"household_schedule_bot/internal/domain/schedule"
)

const (
	addScheduleUsage = "/add_schedule <allowance|chore> <daily|weekly|biweekly|monthly|custom> <anchor|-> <fixed|rotating|opt_in> <amount|-> <telegramID,...> [start=YYYY-MM-DD] [end=YYYY-MM-DD] <title>"
	reconfigureUsage = "/reconfigure <scheduleID> <frequency> <anchor|-> <fixed|rotating|opt_in> <amount|-> <telegramID,...|-> [start=YYYY-MM-DD] [end=YYYY-MM-DD] <title>"
)

// UsageError means the command arguments could not be read at all.
type UsageError struct {
	Usage  string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Usage)
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseAddScheduleArgs reads the arguments of /add_schedule.
func ParseAddScheduleArgs(args []string) (app.ScheduleInput, error) {
	if len(args) < 7 {
		return app.ScheduleInput{}, &UsageError{Usage: addScheduleUsage, Reason: "Not enough arguments."}
	}

	var kind schedule.Kind
	switch strings.ToLower(args[0]) {
	case "allowance":
		kind = schedule.KindAllowance
	case "chore":
		kind = schedule.KindChore
	default:
		return app.ScheduleInput{}, &UsageError{Usage: addScheduleUsage, Reason: fmt.Sprintf("Unknown kind %q.", args[0])}
	}

	input, err := parseScheduleFields(args[1:], addScheduleUsage, false)
	if err != nil {
		return app.ScheduleInput{}, err
	}
	input.Kind = kind
	return input, nil
}

// ParseReconfigureArgs reads the arguments of /reconfigure. A "-" member
// list keeps the current assignment pool.
func ParseReconfigureArgs(args []string) (string, app.ScheduleInput, error) {
	if len(args) < 7 {
		return "", app.ScheduleInput{}, &UsageError{Usage: reconfigureUsage, Reason: "Not enough arguments."}
	}
	input, err := parseScheduleFields(args[1:], reconfigureUsage, true)
	if err != nil {
		return "", app.ScheduleInput{}, err
	}
	return args[0], input, nil
}

// parseScheduleFields reads: frequency anchor assignment amount members [start=] [end=] title...
func parseScheduleFields(args []string, usage string, membersOptional bool) (app.ScheduleInput, error) {
	var input app.ScheduleInput

	freq, err := schedule.ParseFrequency(args[0])
	if err != nil {
		return input, err
	}
	input.Frequency = freq

	if input.Anchor, err = ParseAnchor(freq, args[1]); err != nil {
		return input, err
	}

	if input.AssignmentType, err = schedule.ParseAssignmentType(args[2]); err != nil {
		return input, err
	}

	amount, ok := ParseAmount(args[3])
	if !ok {
		return input, &UsageError{Usage: usage, Reason: fmt.Sprintf("Amount %q must look like 5 or 5.50.", args[3])}
	}
	input.AmountCents = amount

	if !(membersOptional && args[4] == "-") {
		for _, raw := range strings.Split(args[4], ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return input, &UsageError{Usage: usage, Reason: fmt.Sprintf("Telegram ID %q must be a number.", raw)}
			}
			input.MemberTelegramIDs = append(input.MemberTelegramIDs, id)
		}
	}

	rest := args[5:]
	for len(rest) > 0 {
		key, value, ok := strings.Cut(rest[0], "=")
		if !ok || (key != "start" && key != "end") {
			break
		}
		d, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return input, &UsageError{Usage: usage, Reason: fmt.Sprintf("Date %q must look like 2025-01-31.", value)}
		}
		if key == "start" {
			input.StartDate = sql.NullTime{Time: d, Valid: true}
		} else {
			input.EndDate = sql.NullTime{Time: d, Valid: true}
		}
		rest = rest[1:]
	}

	input.Title = strings.TrimSpace(strings.Join(rest, " "))
	if input.Title == "" {
		return input, &UsageError{Usage: usage, Reason: "A title is required."}
	}
	return input, nil
}

// ParseAnchor reads the frequency-specific anchor: a weekday for WEEKLY and
// BIWEEKLY, a day of month for MONTHLY, an interval for CUSTOM and "-" for DAILY.
func ParseAnchor(freq schedule.Frequency, raw string) (schedule.Anchor, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))

	switch freq {
	case schedule.FrequencyDaily:
		return schedule.Anchor{}, nil
	case schedule.FrequencyWeekly, schedule.FrequencyBiweekly:
		if d, ok := weekdays[raw]; ok {
			return schedule.WeekdayAnchor(d), nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return schedule.Anchor{}, &schedule.ValidationError{Field: "dayOfWeek", Reason: fmt.Sprintf("%q is not a weekday", raw)}
		}
		return schedule.WeekdayAnchor(time.Weekday(n)), nil
	case schedule.FrequencyMonthly:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return schedule.Anchor{}, &schedule.ValidationError{Field: "dayOfMonth", Reason: fmt.Sprintf("%q is not a day of the month", raw)}
		}
		return schedule.MonthDayAnchor(n), nil
	case schedule.FrequencyCustom:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return schedule.Anchor{}, &schedule.ValidationError{Field: "intervalDays", Reason: fmt.Sprintf("%q is not a number of days", raw)}
		}
		return schedule.IntervalAnchor(n), nil
	}
	return schedule.Anchor{}, &schedule.ValidationError{Field: "frequency", Reason: "unsupported frequency " + string(freq)}
}

// ParseAmount reads a decimal amount with at most two fraction digits into
// cents. "-" means no amount.
func ParseAmount(raw string) (int64, bool) {
	if raw == "-" {
		return 0, true
	}
	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, false
	}
	units, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, false
	}
	var cents uint64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		if cents, err = strconv.ParseUint(frac, 10, 8); err != nil {
			return 0, false
		}
	}
	return int64(units*100 + cents), true
}
