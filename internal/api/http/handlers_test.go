package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	attendance "rollcall/internal/attendance/domain"
	"rollcall/internal/engine"
	"rollcall/internal/identity"
	presence "rollcall/internal/presence/domain"
	schedule "rollcall/internal/schedule/domain"
)

type stubClock struct {
	now    time.Time
	synced bool
}

func (c stubClock) Now() (time.Time, bool) { return c.now, c.synced }

func (c stubClock) Resync(_ context.Context) error { return nil }

type stubSessions struct {
	window schedule.Window
	active bool
}

func (s stubSessions) CurrentSession(_ string) (schedule.Window, bool) {
	return s.window, s.active
}

type stubIDs struct {
	student string
	err     error
}

func (s stubIDs) Resolve(_ context.Context, _ presence.MAC, _ string) (string, error) {
	return s.student, s.err
}

type stubRecorder struct {
	outcome attendance.Outcome
	err     error
	calls   int
	student string
}

func (s *stubRecorder) Record(_ context.Context, studentID string, _ schedule.Window, _ time.Time) (attendance.Outcome, error) {
	s.calls++
	s.student = studentID
	return s.outcome, s.err
}

var activeWindow = schedule.Window{ScheduleID: "sched-1", GroupID: "B1", Start: "14:00", End: "15:00", Active: true}

func manualEntry(t *testing.T, handler *ManualEntryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/attendance", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestManualEntryByStudentID(t *testing.T) {
	recorder := &stubRecorder{outcome: attendance.OutcomeCreated}
	handler := NewManualEntryHandler(
		stubSessions{window: activeWindow, active: true},
		stubIDs{},
		recorder,
		stubClock{now: time.Date(2026, 3, 2, 14, 10, 0, 0, time.UTC), synced: true},
	)

	w := manualEntry(t, handler, `{"student_id":"S42"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d want 201", w.Code)
	}
	var resp manualEntryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != attendance.OutcomeCreated || resp.ScheduleID != "sched-1" || resp.Date != "2026-03-02" {
		t.Fatalf("response: %+v", resp)
	}
	if recorder.student != "S42" {
		t.Fatalf("recorder called with %q", recorder.student)
	}
}

func TestManualEntryByMAC(t *testing.T) {
	recorder := &stubRecorder{outcome: attendance.OutcomeAlreadyExists}
	handler := NewManualEntryHandler(
		stubSessions{window: activeWindow, active: true},
		stubIDs{student: "S42"},
		recorder,
		stubClock{now: time.Date(2026, 3, 2, 14, 10, 0, 0, time.UTC), synced: true},
	)

	w := manualEntry(t, handler, `{"mac_address":"aa:bb:cc:dd:ee:ff"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d want 200 for already_exists", w.Code)
	}
	if recorder.student != "S42" {
		t.Fatalf("resolved student: got %q", recorder.student)
	}
}

func TestManualEntryNoSession(t *testing.T) {
	handler := NewManualEntryHandler(
		stubSessions{},
		stubIDs{},
		&stubRecorder{},
		stubClock{now: time.Now(), synced: true},
	)
	if w := manualEntry(t, handler, `{"student_id":"S42"}`); w.Code != http.StatusConflict {
		t.Fatalf("status: got %d want 409", w.Code)
	}
}

func TestManualEntryClockUnavailable(t *testing.T) {
	handler := NewManualEntryHandler(stubSessions{}, stubIDs{}, &stubRecorder{}, stubClock{})
	if w := manualEntry(t, handler, `{"student_id":"S42"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d want 503", w.Code)
	}
}

func TestManualEntryUnresolvedDevice(t *testing.T) {
	handler := NewManualEntryHandler(
		stubSessions{window: activeWindow, active: true},
		stubIDs{err: identity.ErrUnresolved},
		&stubRecorder{},
		stubClock{now: time.Now(), synced: true},
	)
	if w := manualEntry(t, handler, `{"mac_address":"aa:bb:cc:dd:ee:ff"}`); w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d want 404", w.Code)
	}
}

func TestManualEntryEmptyBody(t *testing.T) {
	handler := NewManualEntryHandler(stubSessions{}, stubIDs{}, &stubRecorder{}, stubClock{synced: true, now: time.Now()})
	if w := manualEntry(t, handler, `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want 400", w.Code)
	}
}

type stubStatus struct {
	status engine.Status
}

func (s stubStatus) Status() engine.Status { return s.status }

func TestStatusHandler(t *testing.T) {
	handler := NewStatusHandler(stubStatus{status: engine.Status{
		ConnectedDevices: 2,
		ClockSynced:      true,
		Devices:          []engine.DeviceStatus{{MAC: "AA:BB:CC:DD:EE:FF"}},
	}})
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var status engine.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.ConnectedDevices != 2 || !status.ClockSynced {
		t.Fatalf("snapshot: %+v", status)
	}
	if len(status.Devices) != 0 {
		t.Fatalf("status must not embed the device list")
	}
}

type stubRecords struct {
	records []attendance.Record
}

func (s stubRecords) RecordsForDate(_ context.Context, _ string) ([]attendance.Record, error) {
	return s.records, nil
}

func TestExportHandlerXLSX(t *testing.T) {
	handler := NewExportHandler(stubRecords{records: []attendance.Record{{
		StudentID:  "S42",
		GroupID:    "B1",
		ScheduleID: "sched-1",
		Date:       "2026-03-02",
		Timestamp:  time.Date(2026, 3, 2, 14, 10, 0, 0, time.UTC),
		Present:    true,
		MarkedBy:   "rollcall",
	}}}, stubClock{synced: true, now: time.Now()})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export?date=2026-03-02&format=xlsx", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("content type: %q", got)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("empty export body")
	}
}

func TestExportHandlerBadDate(t *testing.T) {
	handler := NewExportHandler(stubRecords{}, stubClock{synced: true, now: time.Now()})
	r := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export?date=02-03-2026", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want 400", w.Code)
	}
}
