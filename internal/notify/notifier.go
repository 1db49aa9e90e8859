package notify

import "context"

// Alert represents an operator-facing notification payload.
type Alert struct {
	Kind         string            `json:"kind"`
	GroupID      string            `json:"group_id,omitempty"`
	Detail       string            `json:"detail"`
	FailedGroups []string          `json:"failed_groups,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// Alert kinds raised by the polling engine.
const (
	KindRefreshDegraded = "schedule_refresh_degraded"
	KindDirectoryAuth   = "directory_auth_failure"
	KindClockUnsynced   = "clock_unsynchronized"
)

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}
