package attendance

import (
	"errors"
	"time"
)

// DateLayout is the calendar-date encoding used in records.
const DateLayout = "2006-01-02"

// Outcome of an idempotent record attempt.
type Outcome string

const (
	// OutcomeCreated means a new record was written.
	OutcomeCreated Outcome = "created"
	// OutcomeAlreadyExists means a record for the same student,
	// schedule and date was already present; nothing was written.
	OutcomeAlreadyExists Outcome = "already_exists"
)

// Record is the durable fact "student X was present for session Y on
// date Z". Never mutated or deleted by this controller.
type Record struct {
	StudentID  string
	GroupID    string
	ScheduleID string
	Date       string
	Timestamp  time.Time
	Present    bool
	MarkedBy   string
}

// Validate checks record invariants.
func (r Record) Validate() error {
	if r.StudentID == "" {
		return errors.New("attendance: empty student id")
	}
	if r.ScheduleID == "" {
		return errors.New("attendance: empty schedule id")
	}
	if r.GroupID == "" {
		return errors.New("attendance: empty group id")
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return errors.New("attendance: invalid date")
	}
	return nil
}
