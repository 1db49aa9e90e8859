package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	attendance "rollcall/internal/attendance/domain"
	"rollcall/internal/directory"
	"rollcall/internal/identity"
	"rollcall/internal/notify"
	"rollcall/internal/observability/metrics"
	presence "rollcall/internal/presence/domain"
	schedule "rollcall/internal/schedule/domain"
)

// Defaults mirror the original controller's timing configuration.
const (
	DefaultPollInterval    = 5 * time.Second
	DefaultRefreshInterval = 5 * time.Minute
	DefaultSyncInterval    = time.Hour
)

// SessionResolver is the schedule cache as the engine sees it.
type SessionResolver interface {
	Refresh(ctx context.Context, groups []string, day string) error
	CurrentSession(now string) (schedule.Window, bool)
	WindowCount() int
	LastRefresh() time.Time
}

// IdentityResolver maps a device address to a student id.
type IdentityResolver interface {
	Resolve(ctx context.Context, mac presence.MAC, groupID string) (string, error)
}

// Recorder writes idempotent attendance records.
type Recorder interface {
	Record(ctx context.Context, studentID string, window schedule.Window, now time.Time) (attendance.Outcome, error)
}

// Config holds the engine's timing and group scope.
type Config struct {
	Groups          []string
	PollInterval    time.Duration
	RefreshInterval time.Duration
	SyncInterval    time.Duration
}

// DeviceStatus is one tracked device in a status snapshot.
type DeviceStatus struct {
	MAC       string    `json:"mac"`
	IP        string    `json:"ip,omitempty"`
	Attempted bool      `json:"attempted"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Status is a point-in-time snapshot for the operator API.
type Status struct {
	ConnectedDevices int            `json:"connected_devices"`
	ClockSynced      bool           `json:"clock_synced"`
	ActiveScheduleID string         `json:"active_schedule_id,omitempty"`
	ActiveGroupID    string         `json:"active_group_id,omitempty"`
	CachedWindows    int            `json:"cached_windows"`
	LastRefresh      time.Time      `json:"last_refresh"`
	LastPoll         time.Time      `json:"last_poll"`
	Devices          []DeviceStatus `json:"devices,omitempty"`
}

// Engine drives the whole controller from a single polling loop:
// presence poll every cycle, schedule refresh and clock resync on
// their own tick multiples. All remote calls block the loop until
// they complete or time out; per joined device the sequence session
// resolution, identity resolution, attendance recording runs strictly
// in order.
type Engine struct {
	cfg      Config
	tracker  *presence.Tracker
	source   presence.Source
	sessions SessionResolver
	ids      IdentityResolver
	recorder Recorder
	clock    Clock
	metrics  *metrics.Metrics
	logger   *log.Logger
	notifier notify.Notifier

	mu     sync.Mutex
	status Status
}

// New constructs an engine.
func New(cfg Config, source presence.Source, sessions SessionResolver, ids IdentityResolver, recorder Recorder, clock Clock, m *metrics.Metrics, logger *log.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	return &Engine{
		cfg:      cfg,
		tracker:  presence.NewTracker(),
		source:   source,
		sessions: sessions,
		ids:      ids,
		recorder: recorder,
		clock:    clock,
		metrics:  m,
		logger:   logger,
	}
}

// SetNotifier attaches an optional alert channel. Must be called
// before Run.
func (e *Engine) SetNotifier(n notify.Notifier) {
	e.notifier = n
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

func (e *Engine) alert(ctx context.Context, alert notify.Alert) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, alert); err != nil {
		e.logf("alert delivery failed: kind=%s err=%v", alert.Kind, err)
	}
}

// Run executes the polling loop until ctx is cancelled. Intervals are
// counted in poll ticks against a monotonic ticker, not wall-clock,
// so a clock resync never skips or doubles a refresh.
func (e *Engine) Run(ctx context.Context) {
	refreshEvery := ticksFor(e.cfg.RefreshInterval, e.cfg.PollInterval)
	syncEvery := ticksFor(e.cfg.SyncInterval, e.cfg.PollInterval)

	e.resync(ctx)
	e.refresh(ctx)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for tick := uint64(0); ; {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			if tick%syncEvery == 0 {
				e.resync(ctx)
			}
			if tick%refreshEvery == 0 {
				e.refresh(ctx)
			}
			e.pollOnce(ctx)
		}
	}
}

func ticksFor(interval, poll time.Duration) uint64 {
	ticks := uint64(interval / poll)
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

func (e *Engine) resync(ctx context.Context) {
	if err := e.clock.Resync(ctx); err != nil {
		e.logf("clock resync failed: %v", err)
		e.alert(ctx, notify.Alert{
			Kind:   notify.KindClockUnsynced,
			Detail: err.Error(),
		})
	}
}

// refresh replaces the schedule cache for today's weekday. Without a
// synchronized clock the weekday is unknown and the refresh is
// skipped; the stale cache stays unused because session resolution is
// also disabled.
func (e *Engine) refresh(ctx context.Context) {
	now, synced := e.clock.Now()
	if !synced {
		e.logf("schedule refresh skipped: clock unsynchronized")
		return
	}
	err := e.sessions.Refresh(ctx, e.cfg.Groups, now.Weekday().String())
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultDegraded
		e.logf("schedule refresh: %v", err)
		alert := notify.Alert{Kind: notify.KindRefreshDegraded, Detail: err.Error()}
		var degraded interface{ FailedGroupIDs() []string }
		if errors.As(err, &degraded) {
			alert.FailedGroups = degraded.FailedGroupIDs()
		}
		e.alert(ctx, alert)
	}
	if e.metrics != nil {
		e.metrics.ScheduleRefresh.WithLabelValues(result).Inc()
		e.metrics.CachedWindows.Set(float64(e.sessions.WindowCount()))
	}
}

func (e *Engine) pollOnce(ctx context.Context) {
	stations, err := e.source.Stations(ctx)
	if err != nil {
		if e.metrics != nil {
			e.metrics.PollErrors.Inc()
		}
		e.logf("presence poll failed: %v", err)
		return
	}

	now, synced := e.clock.Now()
	stamp := now
	if !synced {
		stamp = time.Now()
	}
	joined, left := e.tracker.Poll(stations, stamp)

	if e.metrics != nil {
		e.metrics.PollCycles.Inc()
		e.metrics.DevicesJoined.Add(float64(len(joined)))
		e.metrics.DevicesLeft.Add(float64(len(left)))
		e.metrics.ConnectedDevices.Set(float64(e.tracker.Count()))
	}
	for _, mac := range left {
		e.logf("device left: %s", mac)
	}
	for _, device := range joined {
		e.logf("device joined: %s ip=%s", device.MAC, device.IP)
		e.processJoined(ctx, device)
	}
	e.updateStatus(synced)
}

// processJoined runs session resolution, identity resolution and
// attendance recording for one newly joined device. Every failure is
// local to this device and cycle; the loop keeps polling.
func (e *Engine) processJoined(ctx context.Context, device *presence.ConnectedDevice) {
	now, synced := e.clock.Now()
	if !synced {
		e.count(metrics.OutcomeClockUnavailable)
		e.logf("attendance skipped: clock unsynchronized, device=%s", device.MAC)
		return
	}
	e.tracker.MarkAttempted(device.MAC)

	window, ok := e.sessions.CurrentSession(now.Format("15:04"))
	if !ok {
		e.count(metrics.OutcomeNoSession)
		e.logf("attendance skipped: no session at %s, device=%s", now.Format("15:04"), device.MAC)
		return
	}

	studentID, err := e.ids.Resolve(ctx, device.MAC, window.GroupID)
	if err != nil {
		if errors.Is(err, identity.ErrUnresolved) {
			e.count(metrics.OutcomeUnresolved)
			e.logf("attendance skipped: device %s not registered in group %s", device.MAC, window.GroupID)
		} else {
			e.count(metrics.OutcomeFailed)
			e.logf("identity lookup failed: device=%s group=%s err=%v", device.MAC, window.GroupID, err)
			e.alertAuth(ctx, err)
		}
		return
	}

	outcome, err := e.recorder.Record(ctx, studentID, window, now)
	if err != nil {
		// Recorder counts its own failures.
		e.logf("attendance record failed: student=%s schedule=%s err=%v", studentID, window.ScheduleID, err)
		e.alertAuth(ctx, err)
		return
	}
	e.logf("attendance %s: student=%s schedule=%s date=%s", outcome, studentID, window.ScheduleID, now.Format(attendance.DateLayout))
}

// alertAuth raises a directory credential alert. Rejected credentials
// will not recover on their own, so the operator gets paged instead of
// the error drowning in per-cycle logs.
func (e *Engine) alertAuth(ctx context.Context, err error) {
	if errors.Is(err, directory.ErrAuth) {
		e.alert(ctx, notify.Alert{
			Kind:   notify.KindDirectoryAuth,
			Detail: err.Error(),
		})
	}
}

func (e *Engine) count(outcome string) {
	if e.metrics != nil {
		e.metrics.AttendanceTotal.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine) updateStatus(synced bool) {
	status := Status{
		ConnectedDevices: e.tracker.Count(),
		ClockSynced:      synced,
		CachedWindows:    e.sessions.WindowCount(),
		LastRefresh:      e.sessions.LastRefresh(),
		LastPoll:         time.Now(),
	}
	for _, device := range e.tracker.Devices() {
		status.Devices = append(status.Devices, DeviceStatus{
			MAC:       device.MAC.String(),
			IP:        device.IP,
			Attempted: device.Attempted,
			JoinedAt:  device.JoinedAt,
		})
	}
	if synced {
		if now, ok := e.clock.Now(); ok {
			if window, ok := e.sessions.CurrentSession(now.Format("15:04")); ok {
				status.ActiveScheduleID = window.ScheduleID
				status.ActiveGroupID = window.GroupID
			}
		}
	}
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
}

// Status returns the latest loop snapshot. Safe for concurrent use;
// the HTTP handlers read it while the loop runs.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}
