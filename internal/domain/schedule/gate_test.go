package schedule

import (
	"database/sql"
	"testing"
	"time"

	"household_schedule_bot/internal/domain/calendar"

	"github.com/stretchr/testify/assert"
)

func validTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func activeState(freq Frequency, anchor Anchor) State {
	return State{Frequency: freq, Anchor: anchor, IsActive: true}
}

func TestEvaluateRuleOrder(t *testing.T) {
	t.Parallel()

	monday := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		state    State
		now      time.Time
		expected Decision
	}{
		{
			name:     "Inactive wins over everything",
			state:    State{Frequency: FrequencyDaily, IsActive: false, IsPaused: true},
			now:      monday,
			expected: Decision{Reason: ReasonInactive},
		},
		{
			name:     "Paused",
			state:    State{Frequency: FrequencyDaily, IsActive: true, IsPaused: true},
			now:      monday,
			expected: Decision{Reason: ReasonPaused},
		},
		{
			name: "Ended yesterday",
			state: State{
				Frequency: FrequencyDaily, IsActive: true,
				EndDate: validTime(calendar.Date(2025, 1, 5)),
			},
			now:      monday,
			expected: Decision{Reason: ReasonEnded},
		},
		{
			name: "Ends today still fires",
			state: State{
				Frequency: FrequencyDaily, IsActive: true,
				EndDate: validTime(calendar.Date(2025, 1, 6)),
			},
			now:      monday,
			expected: Decision{Fire: true, Reason: ReasonDue},
		},
		{
			name: "Starts tomorrow",
			state: State{
				Frequency: FrequencyDaily, IsActive: true,
				StartDate: validTime(calendar.Date(2025, 1, 7)),
			},
			now:      monday,
			expected: Decision{Reason: ReasonNotStarted},
		},
		{
			name: "Starts today later in the day still fires",
			state: State{
				Frequency: FrequencyDaily, IsActive: true,
				StartDate: validTime(time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC)),
			},
			now:      monday,
			expected: Decision{Fire: true, Reason: ReasonDue},
		},
		{
			name: "Already processed today",
			state: State{
				Frequency: FrequencyDaily, IsActive: true,
				LastProcessedAt: validTime(time.Date(2025, 1, 6, 0, 5, 0, 0, time.UTC)),
			},
			now:      monday,
			expected: Decision{Reason: ReasonAlreadyProcessed},
		},
		{
			name:     "Weekly not the right weekday",
			state:    activeState(FrequencyWeekly, WeekdayAnchor(time.Tuesday)),
			now:      monday,
			expected: Decision{Reason: ReasonNotDue},
		},
		{
			name:     "Weekly without anchor never fires",
			state:    activeState(FrequencyWeekly, Anchor{}),
			now:      monday,
			expected: Decision{Reason: ReasonNotDue},
		},
		{
			name:     "Custom never fires",
			state:    activeState(FrequencyCustom, IntervalAnchor(1)),
			now:      monday,
			expected: Decision{Reason: ReasonNotDue},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, Evaluate(tc.state, tc.now))
		})
	}
}

func TestShouldFireWeeklyScenario(t *testing.T) {
	t.Parallel()

	state := State{
		Frequency: FrequencyWeekly,
		Anchor:    WeekdayAnchor(time.Monday),
		IsActive:  true,
		IsPaused:  false,
	}

	assert.False(t, ShouldFire(state, calendar.Date(2025, 1, 1)), "Wednesday is not the anchor day")

	monday := time.Date(2025, 1, 6, 7, 30, 0, 0, time.UTC)
	assert.True(t, ShouldFire(state, monday))

	state = MarkProcessed(state, monday)
	assert.False(t, ShouldFire(state, time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC)), "same-day re-check is idempotent")
	assert.True(t, ShouldFire(state, calendar.Date(2025, 1, 13)), "fires again next Monday")
}

func TestShouldFireFalseWhenProcessedToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC) // Monday, last day of March
	processed := validTime(time.Date(2025, 3, 31, 0, 0, 1, 0, time.UTC))

	states := []State{
		activeState(FrequencyDaily, Anchor{}),
		activeState(FrequencyWeekly, WeekdayAnchor(time.Monday)),
		activeState(FrequencyBiweekly, WeekdayAnchor(time.Monday)),
		activeState(FrequencyMonthly, MonthDayAnchor(31)),
		activeState(FrequencyCustom, IntervalAnchor(1)),
	}

	for _, s := range states {
		if s.Frequency != FrequencyCustom {
			assert.True(t, ShouldFire(s, now), "%s should be due before processing", s.Frequency)
		}
		s.LastProcessedAt = processed
		assert.False(t, ShouldFire(s, now), "%s processed today", s.Frequency)
	}
}

func TestShouldFireFalseWhenPausedOrInactive(t *testing.T) {
	t.Parallel()

	monday := calendar.Date(2025, 1, 6)

	paused := activeState(FrequencyWeekly, WeekdayAnchor(time.Monday))
	paused.IsPaused = true
	assert.False(t, ShouldFire(paused, monday))

	inactive := activeState(FrequencyWeekly, WeekdayAnchor(time.Monday))
	inactive.IsActive = false
	assert.False(t, ShouldFire(inactive, monday))
}

func TestShouldFireMonthlyClamp(t *testing.T) {
	t.Parallel()

	state := activeState(FrequencyMonthly, MonthDayAnchor(31))

	assert.True(t, ShouldFire(state, calendar.Date(2025, 2, 28)))
	assert.False(t, ShouldFire(state, calendar.Date(2024, 2, 28)), "leap year fires on the 29th")
	assert.True(t, ShouldFire(state, calendar.Date(2024, 2, 29)))
	assert.True(t, ShouldFire(state, calendar.Date(2025, 4, 30)))
	assert.False(t, ShouldFire(state, calendar.Date(2025, 3, 30)))
	assert.True(t, ShouldFire(state, calendar.Date(2025, 3, 31)))

	mid := activeState(FrequencyMonthly, MonthDayAnchor(15))
	assert.True(t, ShouldFire(mid, calendar.Date(2025, 2, 15)))
	assert.False(t, ShouldFire(mid, calendar.Date(2025, 2, 16)))
}

func TestShouldFireBiweeklyGap(t *testing.T) {
	t.Parallel()

	state := activeState(FrequencyBiweekly, WeekdayAnchor(time.Friday))

	assert.True(t, ShouldFire(state, calendar.Date(2025, 1, 3)), "never processed fires on the first matching day")

	state = MarkProcessed(state, calendar.Date(2025, 1, 3))
	assert.False(t, ShouldFire(state, calendar.Date(2025, 1, 10)), "one week later is too soon")
	assert.True(t, ShouldFire(state, calendar.Date(2025, 1, 17)), "two weeks later fires")
	assert.False(t, ShouldFire(state, calendar.Date(2025, 1, 16)), "wrong weekday")
}

func TestMarkProcessedReturnsCopy(t *testing.T) {
	t.Parallel()

	original := activeState(FrequencyDaily, Anchor{})
	updated := MarkProcessed(original, time.Date(2025, 1, 6, 9, 0, 0, 0, time.FixedZone("X", 3600)))

	assert.False(t, original.LastProcessedAt.Valid)
	assert.True(t, updated.LastProcessedAt.Valid)
	assert.Equal(t, time.UTC, updated.LastProcessedAt.Time.Location())
}
