package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rollcall/internal/directory"
)

type stubDirectory struct {
	collections map[string][]directory.Document
	errs        map[string]error
}

func (s *stubDirectory) ListDocuments(_ context.Context, path string) ([]directory.Document, error) {
	if err, ok := s.errs[path]; ok {
		return nil, err
	}
	docs, ok := s.collections[path]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return docs, nil
}

func windowDoc(id, day, start, end string, active bool) directory.Document {
	return directory.Document{
		Name: "projects/p/databases/d/documents/batches/x/schedules/" + id,
		Fields: map[string]directory.Value{
			"day":        directory.StringOf(day),
			"start_time": directory.StringOf(start),
			"end_time":   directory.StringOf(end),
			"active":     directory.BoolOf(active),
		},
	}
}

func TestRefreshFiltersDayAndActive(t *testing.T) {
	dir := &stubDirectory{collections: map[string][]directory.Document{
		"batches/B1/schedules": {
			windowDoc("s1", "Monday", "08:00", "09:00", true),
			windowDoc("s2", "Tuesday", "08:00", "09:00", true),
			windowDoc("s3", "monday", "10:00", "11:00", true), // day match is case-insensitive
			windowDoc("s4", "Monday", "12:00", "13:00", false),
		},
	}}
	cache := NewCache(dir, "batches", nil)
	if err := cache.Refresh(context.Background(), []string{"B1"}, "Monday"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if cache.WindowCount() != 2 {
		t.Fatalf("window count: got %d want 2", cache.WindowCount())
	}
}

func TestRefreshSkipsMalformedWindows(t *testing.T) {
	dir := &stubDirectory{collections: map[string][]directory.Document{
		"batches/B1/schedules": {
			windowDoc("s1", "Monday", "8:00", "09:00", true), // not zero-padded
			windowDoc("s2", "Monday", "08:00", "25:70", true),
			windowDoc("s3", "Monday", "08:00", "09:00", true),
		},
	}}
	cache := NewCache(dir, "batches", nil)
	if err := cache.Refresh(context.Background(), []string{"B1"}, "Monday"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if cache.WindowCount() != 1 {
		t.Fatalf("window count: got %d want 1", cache.WindowCount())
	}
}

func TestRefreshPartialFailure(t *testing.T) {
	dir := &stubDirectory{
		collections: map[string][]directory.Document{
			"batches/G1/schedules": {windowDoc("s1", "Monday", "08:00", "09:00", true)},
		},
		errs: map[string]error{
			"batches/G2/schedules": &directory.TransportError{Status: 500},
		},
	}
	cache := NewCache(dir, "batches", nil)
	err := cache.Refresh(context.Background(), []string{"G1", "G2"}, "Monday")

	var degraded *RefreshError
	if !errors.As(err, &degraded) {
		t.Fatalf("want RefreshError, got %v", err)
	}
	if _, ok := degraded.Failed["G2"]; !ok || len(degraded.Failed) != 1 {
		t.Fatalf("failed groups: %v", degraded.Failed)
	}
	if !strings.Contains(degraded.Error(), "G2") {
		t.Fatalf("error should name the failed group: %q", degraded.Error())
	}
	if cache.WindowCount() != 1 {
		t.Fatalf("G1 windows must survive a G2 failure, count=%d", cache.WindowCount())
	}
	if _, ok := cache.CurrentSession("08:30"); !ok {
		t.Fatalf("G1 session should resolve after degraded refresh")
	}
}

func TestRefreshMissingCollectionIsEmpty(t *testing.T) {
	cache := NewCache(&stubDirectory{}, "batches", nil)
	if err := cache.Refresh(context.Background(), []string{"B1"}, "Monday"); err != nil {
		t.Fatalf("missing collection should not be an error: %v", err)
	}
	if cache.WindowCount() != 0 {
		t.Fatalf("window count: got %d want 0", cache.WindowCount())
	}
}

func TestCurrentSessionBounds(t *testing.T) {
	dir := &stubDirectory{collections: map[string][]directory.Document{
		"batches/B1/schedules": {windowDoc("s1", "Monday", "14:00", "15:00", true)},
	}}
	cache := NewCache(dir, "batches", nil)
	if err := cache.Refresh(context.Background(), []string{"B1"}, "Monday"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	for _, now := range []string{"14:00", "14:10", "15:00"} {
		if _, ok := cache.CurrentSession(now); !ok {
			t.Fatalf("now=%s should be in session (bounds inclusive)", now)
		}
	}
	for _, now := range []string{"13:59", "15:01", ""} {
		if _, ok := cache.CurrentSession(now); ok {
			t.Fatalf("now=%q should not be in session", now)
		}
	}
}

func TestCurrentSessionEmptyCache(t *testing.T) {
	cache := NewCache(&stubDirectory{}, "batches", nil)
	if _, ok := cache.CurrentSession("08:30"); ok {
		t.Fatalf("empty cache must resolve no session")
	}
}

func TestCurrentSessionOverlapFirstMatchWins(t *testing.T) {
	dir := &stubDirectory{collections: map[string][]directory.Document{
		"batches/B1/schedules": {
			windowDoc("w1", "Monday", "08:00", "09:00", true),
			windowDoc("w2", "Monday", "08:30", "10:00", true),
		},
	}}
	cache := NewCache(dir, "batches", nil)
	if err := cache.Refresh(context.Background(), []string{"B1"}, "Monday"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	window, ok := cache.CurrentSession("08:45")
	if !ok || window.ScheduleID != "w1" {
		t.Fatalf("overlap tie-break: got %+v ok=%v, want w1", window, ok)
	}
}
