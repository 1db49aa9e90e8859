package metrics

import "github.com/prometheus/client_golang/prometheus"

// Attendance outcome labels.
const (
	OutcomeCreated          = "created"
	OutcomeAlreadyExists    = "already_exists"
	OutcomeFailed           = "failed"
	OutcomeUnresolved       = "unresolved"
	OutcomeNoSession        = "no_session"
	OutcomeClockUnavailable = "clock_unavailable"
)

// Schedule refresh result labels.
const (
	ResultOK       = "ok"
	ResultDegraded = "degraded"
)

// Metrics bundles controller metrics.
type Metrics struct {
	PollCycles       prometheus.Counter
	PollErrors       prometheus.Counter
	DevicesJoined    prometheus.Counter
	DevicesLeft      prometheus.Counter
	ConnectedDevices prometheus.Gauge
	ScheduleRefresh  *prometheus.CounterVec
	CachedWindows    prometheus.Gauge
	AttendanceTotal  *prometheus.CounterVec
	RecordLatency    prometheus.Histogram
}

// New constructs and registers metrics.
func New() *Metrics {
	m := &Metrics{
		PollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_poll_cycles_total",
			Help: "Total presence poll cycles",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_poll_errors_total",
			Help: "Total presence source failures",
		}),
		DevicesJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_devices_joined_total",
			Help: "Total device joins observed",
		}),
		DevicesLeft: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_devices_left_total",
			Help: "Total device departures observed",
		}),
		ConnectedDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_connected_devices",
			Help: "Devices currently associated",
		}),
		ScheduleRefresh: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollcall_schedule_refreshes_total",
				Help: "Total schedule refreshes by result",
			},
			[]string{"result"},
		),
		CachedWindows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_cached_windows",
			Help: "Schedule windows currently cached",
		}),
		AttendanceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollcall_attendance_total",
				Help: "Attendance processing results by outcome",
			},
			[]string{"outcome"},
		),
		RecordLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_record_latency_seconds",
			Help:    "Attendance check-then-write latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	prometheus.MustRegister(
		m.PollCycles,
		m.PollErrors,
		m.DevicesJoined,
		m.DevicesLeft,
		m.ConnectedDevices,
		m.ScheduleRefresh,
		m.CachedWindows,
		m.AttendanceTotal,
		m.RecordLatency,
	)
	return m
}
