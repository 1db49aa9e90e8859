package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	attendance "rollcall/internal/attendance/domain"
	attendanceexport "rollcall/internal/attendance/interfaces"
	"rollcall/internal/engine"
	"rollcall/internal/identity"
	presence "rollcall/internal/presence/domain"
	schedule "rollcall/internal/schedule/domain"
)

// StatusProvider supplies the engine's latest snapshot.
type StatusProvider interface {
	Status() engine.Status
}

// StatusHandler serves GET /api/v1/status.
type StatusHandler struct {
	engine StatusProvider
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(e StatusProvider) *StatusHandler {
	return &StatusHandler{engine: e}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := h.engine.Status()
	status.Devices = nil // device detail lives under /api/v1/devices
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// DevicesHandler serves GET /api/v1/devices.
type DevicesHandler struct {
	engine StatusProvider
}

// NewDevicesHandler constructs a DevicesHandler.
func NewDevicesHandler(e StatusProvider) *DevicesHandler {
	return &DevicesHandler{engine: e}
}

func (h *DevicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	devices := h.engine.Status().Devices
	if devices == nil {
		devices = []engine.DeviceStatus{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(devices)
}

// SessionResolver resolves the session in progress.
type SessionResolver interface {
	CurrentSession(now string) (schedule.Window, bool)
}

// IdentityResolver maps a device address to a student id.
type IdentityResolver interface {
	Resolve(ctx context.Context, mac presence.MAC, groupID string) (string, error)
}

// Recorder writes idempotent attendance records.
type Recorder interface {
	Record(ctx context.Context, studentID string, window schedule.Window, now time.Time) (attendance.Outcome, error)
}

// ManualEntryHandler serves POST /api/v1/attendance: an operator
// marks attendance by student id or device address, against the
// session currently in progress.
type ManualEntryHandler struct {
	sessions SessionResolver
	ids      IdentityResolver
	recorder Recorder
	clock    engine.Clock
}

// NewManualEntryHandler constructs a ManualEntryHandler.
func NewManualEntryHandler(sessions SessionResolver, ids IdentityResolver, recorder Recorder, clock engine.Clock) *ManualEntryHandler {
	return &ManualEntryHandler{sessions: sessions, ids: ids, recorder: recorder, clock: clock}
}

type manualEntryRequest struct {
	StudentID  string `json:"student_id"`
	MACAddress string `json:"mac_address"`
}

type manualEntryResponse struct {
	Outcome    attendance.Outcome `json:"outcome"`
	StudentID  string             `json:"student_id"`
	GroupID    string             `json:"group_id"`
	ScheduleID string             `json:"schedule_id"`
	Date       string             `json:"date"`
}

func (h *ManualEntryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req manualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.StudentID == "" && req.MACAddress == "" {
		http.Error(w, "student_id or mac_address is required", http.StatusBadRequest)
		return
	}

	now, synced := h.clock.Now()
	if !synced {
		http.Error(w, "clock unsynchronized", http.StatusServiceUnavailable)
		return
	}
	window, ok := h.sessions.CurrentSession(now.Format("15:04"))
	if !ok {
		http.Error(w, "no session in progress", http.StatusConflict)
		return
	}

	studentID := req.StudentID
	if studentID == "" {
		mac, err := presence.ParseMAC(req.MACAddress)
		if err != nil {
			http.Error(w, "invalid mac_address", http.StatusBadRequest)
			return
		}
		studentID, err = h.ids.Resolve(r.Context(), mac, window.GroupID)
		if err != nil {
			if errors.Is(err, identity.ErrUnresolved) {
				http.Error(w, "device not registered in group "+window.GroupID, http.StatusNotFound)
				return
			}
			http.Error(w, "identity lookup failed", http.StatusBadGateway)
			return
		}
	}

	outcome, err := h.recorder.Record(r.Context(), studentID, window, now)
	if err != nil {
		http.Error(w, "record failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if outcome == attendance.OutcomeCreated {
		w.WriteHeader(http.StatusCreated)
	}
	_ = json.NewEncoder(w).Encode(manualEntryResponse{
		Outcome:    outcome,
		StudentID:  studentID,
		GroupID:    window.GroupID,
		ScheduleID: window.ScheduleID,
		Date:       now.Format(attendance.DateLayout),
	})
}

// RecordSource lists attendance records for one calendar date.
type RecordSource interface {
	RecordsForDate(ctx context.Context, date string) ([]attendance.Record, error)
}

// ExportHandler serves GET /api/v1/attendance/export?date=&format=.
type ExportHandler struct {
	source RecordSource
	clock  engine.Clock
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(source RecordSource, clock engine.Clock) *ExportHandler {
	return &ExportHandler{source: source, clock: clock}
}

func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		now, synced := h.clock.Now()
		if !synced {
			http.Error(w, "date is required while clock is unsynchronized", http.StatusBadRequest)
			return
		}
		date = now.Format(attendance.DateLayout)
	}
	if _, err := time.Parse(attendance.DateLayout, date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "xlsx"
	}

	records, err := h.source.RecordsForDate(r.Context(), date)
	if err != nil {
		http.Error(w, "list records failed", http.StatusBadGateway)
		return
	}

	switch format {
	case "xlsx":
		payload, err := attendanceexport.BuildDailyXLSX(date, records)
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="attendance-`+date+`.xlsx"`)
		_, _ = w.Write(payload)
	case "pdf":
		payload, err := attendanceexport.BuildDailyPDF(date, records)
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="attendance-`+date+`.pdf"`)
		_, _ = w.Write(payload)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
	}
}
