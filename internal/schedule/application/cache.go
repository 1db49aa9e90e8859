package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"rollcall/internal/directory"
	schedule "rollcall/internal/schedule/domain"
)

// Directory lists documents from the remote store.
type Directory interface {
	ListDocuments(ctx context.Context, path string) ([]directory.Document, error)
}

// RefreshError reports a degraded refresh: some groups failed to
// fetch while the rest replaced their windows normally.
type RefreshError struct {
	Failed map[string]error
}

func (e *RefreshError) Error() string {
	groups := make([]string, 0, len(e.Failed))
	for group := range e.Failed {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return fmt.Sprintf("schedule: refresh degraded, failed groups: %s", strings.Join(groups, ", "))
}

// FailedGroupIDs lists the failed groups in sorted order.
func (e *RefreshError) FailedGroupIDs() []string {
	groups := make([]string, 0, len(e.Failed))
	for group := range e.Failed {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

// Cache holds the active schedule windows for the current day,
// replaced per group on each refresh. Single-writer, single-reader:
// only the engine loop touches it.
type Cache struct {
	dir      Directory
	basePath string
	logger   *log.Logger

	groups      []string
	windows     map[string][]schedule.Window
	lastRefresh time.Time
}

// NewCache constructs an empty cache. basePath is the collection
// holding one subtree per group, e.g. "batches".
func NewCache(dir Directory, basePath string, logger *log.Logger) *Cache {
	return &Cache{
		dir:      dir,
		basePath: strings.Trim(basePath, "/"),
		windows:  make(map[string][]schedule.Window),
		logger:   logger,
	}
}

// Refresh replaces each group's windows with the store's schedule for
// the given weekday, keeping only active windows. A failed group keeps
// its previous generation untouched; the error, if any, is a
// *RefreshError naming the failed groups. A missing schedule
// collection is an empty schedule, not a failure.
func (c *Cache) Refresh(ctx context.Context, groups []string, day string) error {
	failed := make(map[string]error)
	order := make([]string, 0, len(groups))
	for _, group := range groups {
		if group == "" {
			continue
		}
		order = append(order, group)
		docs, err := c.dir.ListDocuments(ctx, fmt.Sprintf("%s/%s/schedules", c.basePath, group))
		if err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				c.windows[group] = nil
				continue
			}
			failed[group] = err
			c.logf("schedule refresh degraded: group=%s err=%v", group, err)
			continue
		}
		c.windows[group] = windowsFromDocuments(group, day, docs, c.logger)
	}
	c.groups = order
	c.lastRefresh = time.Now()

	known := make(map[string]struct{}, len(order))
	for _, group := range order {
		known[group] = struct{}{}
	}
	for group := range c.windows {
		if _, ok := known[group]; !ok {
			delete(c.windows, group)
		}
	}

	if len(failed) > 0 {
		return &RefreshError{Failed: failed}
	}
	return nil
}

func windowsFromDocuments(group, day string, docs []directory.Document, logger *log.Logger) []schedule.Window {
	var windows []schedule.Window
	for _, doc := range docs {
		docDay, ok := doc.String("day")
		if !ok || !strings.EqualFold(docDay, day) {
			continue
		}
		active, ok := doc.Bool("active")
		if !ok || !active {
			continue
		}
		start, okStart := doc.String("start_time")
		end, okEnd := doc.String("end_time")
		if !okStart || !okEnd || !schedule.ValidClock(start) || !schedule.ValidClock(end) {
			if logger != nil {
				logger.Printf("schedule refresh: skipping malformed window group=%s id=%s", group, doc.ID())
			}
			continue
		}
		windows = append(windows, schedule.Window{
			ScheduleID: doc.ID(),
			GroupID:    group,
			Day:        docDay,
			Start:      start,
			End:        end,
			Active:     true,
		})
	}
	return windows
}

// CurrentSession returns the first cached window covering now
// ("HH:MM"), in cache iteration order. Overlapping windows resolve to
// the first encountered; the order is refresh-dependent.
func (c *Cache) CurrentSession(now string) (schedule.Window, bool) {
	if now == "" {
		return schedule.Window{}, false
	}
	for _, group := range c.groups {
		for _, window := range c.windows[group] {
			if window.Covers(now) {
				return window, true
			}
		}
	}
	return schedule.Window{}, false
}

// WindowCount returns the number of cached windows.
func (c *Cache) WindowCount() int {
	total := 0
	for _, windows := range c.windows {
		total += len(windows)
	}
	return total
}

// LastRefresh returns the time of the last refresh attempt.
func (c *Cache) LastRefresh() time.Time {
	return c.lastRefresh
}

func (c *Cache) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
