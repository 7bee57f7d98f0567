package schedule

import (
	"fmt"
	"strings"
)

// Frequency determines which anchor fields a schedule needs.
type Frequency string

const (
	FrequencyDaily    Frequency = "DAILY"
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
	FrequencyCustom   Frequency = "CUSTOM" // stored, not computable yet
)

// ParseFrequency accepts any casing of a known frequency name.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyCustom:
		return f, nil
	}
	return "", &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s)}
}

// Kind tells what firing an obligation produces.
type Kind string

const (
	KindAllowance Kind = "ALLOWANCE"
	KindChore     Kind = "CHORE"
)

// AssignmentType controls who gets an occurrence when the schedule has several members.
type AssignmentType string

const (
	AssignmentFixed    AssignmentType = "FIXED"    // always the first member in rotation order
	AssignmentRotating AssignmentType = "ROTATING" // round-robin over the pool
	AssignmentOptIn    AssignmentType = "OPT_IN"   // every member gets their own occurrence
)

// ParseAssignmentType accepts any casing; an empty string means FIXED.
func ParseAssignmentType(s string) (AssignmentType, error) {
	a := AssignmentType(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case "":
		return AssignmentFixed, nil
	case AssignmentFixed, AssignmentRotating, AssignmentOptIn:
		return a, nil
	}
	return "", &ValidationError{Field: "assignmentType", Reason: fmt.Sprintf("unknown assignment type %q", s)}
}
