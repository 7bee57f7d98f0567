package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"household_schedule_bot/internal/app"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProcessor struct {
	ProcessAllowancesFn func(ctx context.Context, now time.Time) (app.Summary, error)
	GenerateChoresFn    func(ctx context.Context, now time.Time, lookaheadDays int) (app.Summary, error)
}

func (m *mockProcessor) ProcessAllowances(ctx context.Context, now time.Time) (app.Summary, error) {
	return m.ProcessAllowancesFn(ctx, now)
}

func (m *mockProcessor) GenerateChoreOccurrences(ctx context.Context, now time.Time, lookaheadDays int) (app.Summary, error) {
	return m.GenerateChoresFn(ctx, now, lookaheadDays)
}

type observedJob struct {
	job string
	err error
}

type mockObserver struct{ jobs []observedJob }

func (m *mockObserver) ObserveJob(job string, _ time.Duration, err error) {
	m.jobs = append(m.jobs, observedJob{job, err})
}

func newTestScheduler(p Processor) (*HouseholdScheduler, *mockObserver, *test.Hook) {
	logger, hook := test.NewNullLogger()
	obs := &mockObserver{}
	s := NewHouseholdScheduler(p, obs, logrus.NewEntry(logger), Options{
		CronSpecAllowances: "0 6 * * *",
		CronSpecChores:     "0 5 * * *",
		LookaheadDays:      7,
		JobTimeout:         time.Minute,
	})
	return s, obs, hook
}

func TestRunAllowancesPassesUTCNowAndDeadline(t *testing.T) {
	local := time.FixedZone("plus3", 3*3600)
	fixed := time.Date(2025, time.January, 6, 8, 0, 0, 0, local)

	var gotNow time.Time
	var hadDeadline bool
	p := &mockProcessor{ProcessAllowancesFn: func(ctx context.Context, now time.Time) (app.Summary, error) {
		gotNow = now
		_, hadDeadline = ctx.Deadline()
		return app.Summary{Seen: 1, Fired: 1, Created: 1}, nil
	}}
	s, obs, _ := newTestScheduler(p)
	s.now = func() time.Time { return fixed }

	s.RunAllowances()

	assert.Equal(t, time.UTC, gotNow.Location())
	assert.True(t, gotNow.Equal(fixed))
	assert.True(t, hadDeadline)
	assert.Equal(t, []observedJob{{JobAllowances, nil}}, obs.jobs)
}

func TestRunChoresUsesLookahead(t *testing.T) {
	var gotLookahead int
	p := &mockProcessor{GenerateChoresFn: func(_ context.Context, _ time.Time, lookaheadDays int) (app.Summary, error) {
		gotLookahead = lookaheadDays
		return app.Summary{}, nil
	}}
	s, _, _ := newTestScheduler(p)

	s.RunChores()

	assert.Equal(t, 7, gotLookahead)
}

func TestRunLogsFailure(t *testing.T) {
	boom := errors.New("db down")
	p := &mockProcessor{ProcessAllowancesFn: func(context.Context, time.Time) (app.Summary, error) {
		return app.Summary{}, boom
	}}
	s, obs, hook := newTestScheduler(p)

	s.RunAllowances()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, boom, hook.LastEntry().Data[logrus.ErrorKey])
	assert.Equal(t, []observedJob{{JobAllowances, boom}}, obs.jobs)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s, _, _ := newTestScheduler(&mockProcessor{})
	s.opts.CronSpecChores = "every morning"

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chore cron job")
}

func TestStartAndStop(t *testing.T) {
	s, _, _ := newTestScheduler(&mockProcessor{})

	require.NoError(t, s.Start())
	assert.Len(t, s.cronEngine.Entries(), 2)
	s.Stop()
}
