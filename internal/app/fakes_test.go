package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"household_schedule_bot/internal/domain/member"
	"household_schedule_bot/internal/domain/occurrence"
	"household_schedule_bot/internal/domain/schedule"
	"household_schedule_bot/internal/domain/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/telebot.v3"
)

type memData struct {
	members     map[uuid.UUID]member.Member
	schedules   map[uuid.UUID]schedule.Schedule
	assignments []schedule.Assignment
	occurrences map[uuid.UUID]occurrence.Occurrence
	seq         int
}

func (d *memData) clone() *memData {
	c := &memData{
		members:     make(map[uuid.UUID]member.Member, len(d.members)),
		schedules:   make(map[uuid.UUID]schedule.Schedule, len(d.schedules)),
		assignments: append([]schedule.Assignment(nil), d.assignments...),
		occurrences: make(map[uuid.UUID]occurrence.Occurrence, len(d.occurrences)),
		seq:         d.seq,
	}
	for k, v := range d.members {
		c.members[k] = v
	}
	for k, v := range d.schedules {
		c.schedules[k] = v
	}
	for k, v := range d.occurrences {
		c.occurrences[k] = v
	}
	return c
}

// memStore is an in-memory store.Transactor. A failed transaction restores
// the data as it was before the transaction started.
type memStore struct {
	mu   sync.Mutex
	data *memData

	// CreateOccurrenceFn, when set, runs before an occurrence is inserted.
	CreateOccurrenceFn func(o *occurrence.Occurrence) error
	// GetForUpdateFn, when set, runs before a schedule is locked.
	GetForUpdateFn func(id uuid.UUID) error

	TxCount int
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		members:     map[uuid.UUID]member.Member{},
		schedules:   map[uuid.UUID]schedule.Schedule{},
		occurrences: map[uuid.UUID]occurrence.Occurrence{},
	}}
}

func (s *memStore) WithinTransaction(ctx context.Context, fn store.TxFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TxCount++

	snapshot := s.data.clone()
	repos := store.Repositories{
		Members:     &memMembers{s},
		Schedules:   &memSchedules{s},
		Occurrences: &memOccurrences{s},
	}
	if err := fn(ctx, repos); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) tick() time.Time {
	s.data.seq++
	return time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.data.seq) * time.Second)
}

func (s *memStore) addMember(tgID int64, name string) member.Member {
	m := member.Member{ID: uuid.New(), TelegramID: tgID, FirstName: name, IsActive: true}
	m.CreatedAt = s.tick()
	s.data.members[m.ID] = m
	return m
}

func (s *memStore) addSchedule(sch schedule.Schedule, pool ...member.Member) schedule.Schedule {
	if sch.ID == uuid.Nil {
		sch.ID = uuid.New()
	}
	if sch.AssignmentType == "" {
		sch.AssignmentType = schedule.AssignmentFixed
	}
	sch.CreatedAt = s.tick()
	s.data.schedules[sch.ID] = sch
	for _, m := range pool {
		s.data.assignments = append(s.data.assignments, schedule.Assignment{
			ScheduleID: sch.ID, MemberID: m.ID, IsActive: true, CreatedAt: s.tick(),
		})
	}
	return sch
}

func (s *memStore) schedule(id uuid.UUID) schedule.Schedule {
	return s.data.schedules[id]
}

func (s *memStore) occurrencesOf(scheduleID uuid.UUID) []occurrence.Occurrence {
	var out []occurrence.Occurrence
	for _, o := range s.data.occurrences {
		if o.ScheduleID == scheduleID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type memMembers struct{ s *memStore }

func (r *memMembers) Create(_ context.Context, m *member.Member) error {
	for _, existing := range r.s.data.members {
		if existing.TelegramID == m.TelegramID {
			return member.ErrDuplicateTelegramID
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = r.s.tick()
	m.UpdatedAt = m.CreatedAt
	r.s.data.members[m.ID] = *m
	return nil
}

func (r *memMembers) GetByID(_ context.Context, id uuid.UUID) (*member.Member, error) {
	m, ok := r.s.data.members[id]
	if !ok {
		return nil, member.ErrNotFound
	}
	return &m, nil
}

func (r *memMembers) GetByTelegramID(_ context.Context, telegramID int64) (*member.Member, error) {
	for _, m := range r.s.data.members {
		if m.TelegramID == telegramID {
			return &m, nil
		}
	}
	return nil, member.ErrNotFound
}

func (r *memMembers) Update(_ context.Context, m *member.Member) error {
	if _, ok := r.s.data.members[m.ID]; !ok {
		return member.ErrNotFound
	}
	m.UpdatedAt = r.s.tick()
	r.s.data.members[m.ID] = *m
	return nil
}

func (r *memMembers) ListActive(ctx context.Context) ([]*member.Member, error) {
	all, _ := r.ListAll(ctx)
	active := make([]*member.Member, 0, len(all))
	for _, m := range all {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active, nil
}

func (r *memMembers) ListAll(_ context.Context) ([]*member.Member, error) {
	out := make([]*member.Member, 0, len(r.s.data.members))
	for _, m := range r.s.data.members {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memSchedules struct{ s *memStore }

func (r *memSchedules) Create(_ context.Context, sch *schedule.Schedule) error {
	if sch.ID == uuid.Nil {
		sch.ID = uuid.New()
	}
	sch.CreatedAt = r.s.tick()
	sch.UpdatedAt = sch.CreatedAt
	r.s.data.schedules[sch.ID] = *sch
	return nil
}

func (r *memSchedules) GetByID(_ context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	sch, ok := r.s.data.schedules[id]
	if !ok {
		return nil, schedule.ErrNotFound
	}
	return &sch, nil
}

func (r *memSchedules) GetForUpdate(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	if r.s.GetForUpdateFn != nil {
		if err := r.s.GetForUpdateFn(id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *memSchedules) Update(_ context.Context, sch *schedule.Schedule) error {
	if _, ok := r.s.data.schedules[sch.ID]; !ok {
		return schedule.ErrNotFound
	}
	sch.UpdatedAt = r.s.tick()
	r.s.data.schedules[sch.ID] = *sch
	return nil
}

func (r *memSchedules) ListActiveIDs(_ context.Context, kind schedule.Kind) ([]uuid.UUID, error) {
	all := r.sorted()
	ids := make([]uuid.UUID, 0, len(all))
	for _, sch := range all {
		if sch.Kind == kind && sch.State.IsActive {
			ids = append(ids, sch.ID)
		}
	}
	return ids, nil
}

func (r *memSchedules) ListAll(_ context.Context) ([]*schedule.Schedule, error) {
	all := r.sorted()
	out := make([]*schedule.Schedule, len(all))
	for i := range all {
		out[i] = &all[i]
	}
	return out, nil
}

func (r *memSchedules) sorted() []schedule.Schedule {
	all := make([]schedule.Schedule, 0, len(r.s.data.schedules))
	for _, sch := range r.s.data.schedules {
		all = append(all, sch)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all
}

func (r *memSchedules) AddAssignment(_ context.Context, a *schedule.Assignment) error {
	a.CreatedAt = r.s.tick()
	for i, existing := range r.s.data.assignments {
		if existing.ScheduleID == a.ScheduleID && existing.MemberID == a.MemberID {
			r.s.data.assignments[i] = *a
			return nil
		}
	}
	r.s.data.assignments = append(r.s.data.assignments, *a)
	return nil
}

func (r *memSchedules) ListActiveAssignments(_ context.Context, scheduleID uuid.UUID) ([]*schedule.Assignment, error) {
	out := make([]*schedule.Assignment, 0)
	for _, a := range r.s.data.assignments {
		if a.ScheduleID != scheduleID || !a.IsActive || !r.s.data.members[a.MemberID].IsActive {
			continue
		}
		a := a
		out = append(out, &a)
	}
	return out, nil
}

type memOccurrences struct{ s *memStore }

func (r *memOccurrences) Create(_ context.Context, o *occurrence.Occurrence) error {
	if r.s.CreateOccurrenceFn != nil {
		if err := r.s.CreateOccurrenceFn(o); err != nil {
			return err
		}
	}
	for _, existing := range r.s.data.occurrences {
		if existing.ScheduleID == o.ScheduleID && existing.AssigneeID == o.AssigneeID && existing.DueDate.Equal(o.DueDate) {
			return occurrence.ErrDuplicate
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = r.s.tick()
	r.s.data.occurrences[o.ID] = *o
	return nil
}

func (r *memOccurrences) GetByID(_ context.Context, id uuid.UUID) (*occurrence.Occurrence, error) {
	o, ok := r.s.data.occurrences[id]
	if !ok {
		return nil, occurrence.ErrNotFound
	}
	return &o, nil
}

func (r *memOccurrences) Update(_ context.Context, o *occurrence.Occurrence) error {
	if _, ok := r.s.data.occurrences[o.ID]; !ok {
		return occurrence.ErrNotFound
	}
	r.s.data.occurrences[o.ID] = *o
	return nil
}

func (r *memOccurrences) ExistsForDay(_ context.Context, scheduleID uuid.UUID, dueDate time.Time) (bool, error) {
	for _, o := range r.s.data.occurrences {
		if o.ScheduleID == scheduleID && o.DueDate.Equal(dueDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOccurrences) ExistsForMemberOnDay(_ context.Context, scheduleID, memberID uuid.UUID, dueDate time.Time) (bool, error) {
	for _, o := range r.s.data.occurrences {
		if o.ScheduleID == scheduleID && o.AssigneeID == memberID && o.DueDate.Equal(dueDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOccurrences) Latest(_ context.Context, scheduleID uuid.UUID) (*occurrence.Occurrence, error) {
	all := r.s.occurrencesOf(scheduleID)
	if len(all) == 0 {
		return nil, occurrence.ErrNotFound
	}
	latest := all[len(all)-1]
	return &latest, nil
}

func (r *memOccurrences) ListPendingForMember(_ context.Context, memberID uuid.UUID) ([]*occurrence.Occurrence, error) {
	out := make([]*occurrence.Occurrence, 0)
	for _, o := range r.s.data.occurrences {
		if o.AssigneeID == memberID && o.Status == occurrence.StatusPending {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

type sentMessage struct {
	ChatID  int64
	Text    string
	Options *telebot.SendOptions
}

// mockTelegramClient records messages; SendMessageFn overrides the default success.
type mockTelegramClient struct {
	mu            sync.Mutex
	SendMessageFn func(chatID int64, text string) error
	Sent          []sentMessage
}

func (m *mockTelegramClient) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendMessageFn != nil {
		if err := m.SendMessageFn(chatID, text); err != nil {
			return err
		}
	}
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, Text: text, Options: options})
	return nil
}

type recordedDecision struct {
	Kind   schedule.Kind
	Reason schedule.Reason
}

type mockRecorder struct {
	Decisions []recordedDecision
	Created   map[schedule.Kind]int
	Failures  map[schedule.Kind]int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{Created: map[schedule.Kind]int{}, Failures: map[schedule.Kind]int{}}
}

func (m *mockRecorder) ObserveDecision(kind schedule.Kind, reason schedule.Reason) {
	m.Decisions = append(m.Decisions, recordedDecision{kind, reason})
}

func (m *mockRecorder) AddOccurrences(kind schedule.Kind, n int) { m.Created[kind] += n }

func (m *mockRecorder) ProcessingFailed(kind schedule.Kind) { m.Failures[kind]++ }

func testLogger() (*logrus.Entry, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(log), hook
}
