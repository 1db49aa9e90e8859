package schedule

import "time"

// Window is a scheduled class session for one group on one weekday.
type Window struct {
	ScheduleID string
	GroupID    string
	Day        string
	Start      string
	End        string
	Active     bool
}

// Covers reports whether the window contains the instant now, both
// bounds inclusive. Start, End and now must be zero-padded "HH:MM"
// strings for the same calendar day; lexicographic comparison is then
// order-correct.
func (w Window) Covers(now string) bool {
	if now == "" {
		return false
	}
	return w.Start <= now && now <= w.End
}

// ValidClock reports whether value is a zero-padded "HH:MM" string.
func ValidClock(value string) bool {
	if len(value) != 5 {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}
