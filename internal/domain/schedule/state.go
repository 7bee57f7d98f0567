package schedule

import (
	"database/sql"
	"time"
)

// State is the part of a schedule the processing gate reads. It is passed by
// value; MarkProcessed returns the updated copy for the caller to persist.
type State struct {
	Frequency       Frequency
	Anchor          Anchor
	IsActive        bool
	IsPaused        bool
	StartDate       sql.NullTime
	EndDate         sql.NullTime
	LastProcessedAt sql.NullTime
}

// Rule validates the state's frequency and anchor.
func (s State) Rule() (Rule, error) {
	return NewRule(s.Frequency, s.Anchor)
}

// MarkProcessed records a successful fire at the given instant.
func MarkProcessed(s State, at time.Time) State {
	s.LastProcessedAt = sql.NullTime{Time: at.UTC(), Valid: true}
	return s
}
