package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	attendance "rollcall/internal/attendance/domain"
	"rollcall/internal/directory"
	"rollcall/internal/observability/metrics"
	schedule "rollcall/internal/schedule/domain"
)

// Directory reads and writes documents in the remote store.
type Directory interface {
	ListDocuments(ctx context.Context, path string) ([]directory.Document, error)
	CreateDocument(ctx context.Context, path string, fields map[string]directory.Value) (directory.Document, error)
}

// Mirror persists a local copy of created records.
type Mirror interface {
	Insert(ctx context.Context, record attendance.Record) error
}

// Recorder performs the idempotent check-then-write against the
// remote attendance collection. The check and the write are two
// independent remote calls with no transaction between them;
// concurrent triggers for the same (student, schedule, date) can
// produce a duplicate record.
type Recorder struct {
	dir        Directory
	collection string
	markedBy   string
	mirror     Mirror
	metrics    *metrics.Metrics
	logger     *log.Logger
}

// NewRecorder constructs a recorder writing to the given collection.
// mirror and m may be nil.
func NewRecorder(dir Directory, collection, markedBy string, mirror Mirror, m *metrics.Metrics, logger *log.Logger) *Recorder {
	return &Recorder{
		dir:        dir,
		collection: collection,
		markedBy:   markedBy,
		mirror:     mirror,
		metrics:    m,
		logger:     logger,
	}
}

// Record marks studentID present for the window's session on now's
// calendar date. An existing record for the same (student, schedule,
// date) returns OutcomeAlreadyExists without writing. A missing
// collection on the check is an empty collection and the write
// proceeds; any other check failure aborts without writing.
func (r *Recorder) Record(ctx context.Context, studentID string, window schedule.Window, now time.Time) (attendance.Outcome, error) {
	if studentID == "" {
		return "", errors.New("attendance: empty student id")
	}
	if window.ScheduleID == "" {
		return "", errors.New("attendance: empty schedule id")
	}
	started := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordLatency.Observe(time.Since(started).Seconds())
		}
	}()

	date := now.Format(attendance.DateLayout)

	docs, err := r.dir.ListDocuments(ctx, r.collection)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		// No records yet for this collection; first write creates it.
		docs = nil
	case err != nil:
		r.count(metrics.OutcomeFailed)
		return "", fmt.Errorf("attendance: existence check: %w", err)
	}

	for _, doc := range docs {
		existingStudent, okStudent := doc.String("student_id")
		existingSchedule, okSchedule := doc.String("schedule_id")
		existingDate, okDate := doc.String("date")
		if !okStudent || !okSchedule || !okDate {
			continue
		}
		if existingStudent == studentID && existingSchedule == window.ScheduleID && existingDate == date {
			r.count(metrics.OutcomeAlreadyExists)
			return attendance.OutcomeAlreadyExists, nil
		}
	}

	fields := map[string]directory.Value{
		"student_id":  directory.StringOf(studentID),
		"group_id":    directory.StringOf(window.GroupID),
		"schedule_id": directory.StringOf(window.ScheduleID),
		"date":        directory.StringOf(date),
		"timestamp":   directory.TimeOf(now),
		"present":     directory.BoolOf(true),
		"marked_by":   directory.StringOf(r.markedBy),
	}
	if _, err := r.dir.CreateDocument(ctx, r.collection, fields); err != nil {
		r.count(metrics.OutcomeFailed)
		return "", fmt.Errorf("attendance: write: %w", err)
	}

	record := attendance.Record{
		StudentID:  studentID,
		GroupID:    window.GroupID,
		ScheduleID: window.ScheduleID,
		Date:       date,
		Timestamp:  now.UTC(),
		Present:    true,
		MarkedBy:   r.markedBy,
	}
	if r.mirror != nil {
		// The remote store is the source of truth; a mirror failure
		// must not undo or retry the remote write.
		if err := r.mirror.Insert(ctx, record); err != nil && r.logger != nil {
			r.logger.Printf("attendance mirror insert failed: student=%s schedule=%s err=%v", studentID, window.ScheduleID, err)
		}
	}
	r.count(metrics.OutcomeCreated)
	return attendance.OutcomeCreated, nil
}

func (r *Recorder) count(outcome string) {
	if r.metrics != nil {
		r.metrics.AttendanceTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordsForDate lists the remote collection's records for one date.
// Used by exports when no local mirror is configured.
func (r *Recorder) RecordsForDate(ctx context.Context, date string) ([]attendance.Record, error) {
	docs, err := r.dir.ListDocuments(ctx, r.collection)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var records []attendance.Record
	for _, doc := range docs {
		recordDate, ok := doc.String("date")
		if !ok || recordDate != date {
			continue
		}
		record := attendance.Record{Date: recordDate}
		record.StudentID, _ = doc.String("student_id")
		record.GroupID, _ = doc.String("group_id")
		record.ScheduleID, _ = doc.String("schedule_id")
		record.Timestamp, _ = doc.Time("timestamp")
		record.Present, _ = doc.Bool("present")
		record.MarkedBy, _ = doc.String("marked_by")
		records = append(records, record)
	}
	return records, nil
}
