package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/batches/B1/schedules" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key, query=%q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(listResponse{Documents: []Document{
			{
				Name: "projects/p/databases/d/documents/batches/B1/schedules/sched-1",
				Fields: map[string]Value{
					"day":    StringOf("Monday"),
					"active": BoolOf(true),
				},
			},
		}})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	docs, err := client.ListDocuments(context.Background(), "batches/B1/schedules")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].ID() != "sched-1" {
		t.Fatalf("document id: got %q", docs[0].ID())
	}
	day, ok := docs[0].String("day")
	if !ok || day != "Monday" {
		t.Fatalf("day field: %q %v", day, ok)
	}
	if _, ok := docs[0].String("missing"); ok {
		t.Fatalf("absent field must not report present")
	}
}

func TestCreateDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		var doc Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if _, ok := doc.Bool("present"); !ok {
			t.Errorf("present field missing in payload")
		}
		doc.Name = "projects/p/databases/d/documents/attendance/rec-1"
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "")
	created, err := client.CreateDocument(context.Background(), "attendance", map[string]Value{
		"present": BoolOf(true),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID() != "rec-1" {
		t.Fatalf("created id: got %q", created.ID())
	}
}

func TestErrorMapping(t *testing.T) {
	statuses := map[int]func(error) bool{
		http.StatusNotFound:            func(err error) bool { return errors.Is(err, ErrNotFound) },
		http.StatusUnauthorized:        func(err error) bool { return errors.Is(err, ErrAuth) },
		http.StatusForbidden:           func(err error) bool { return errors.Is(err, ErrAuth) },
		http.StatusInternalServerError: func(err error) bool { var te *TransportError; return errors.As(err, &te) && te.Status == 500 },
	}
	for status, check := range statuses {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		client, _ := NewClient(server.URL, "")
		_, err := client.ListDocuments(context.Background(), "attendance")
		server.Close()
		if err == nil || !check(err) {
			t.Fatalf("status %d: wrong error %v", status, err)
		}
	}
}

func TestParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, "")
	_, err := client.ListDocuments(context.Background(), "attendance")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want ParseError, got %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	client, _ := NewClient("http://127.0.0.1:1", "")
	_, err := client.ListDocuments(context.Background(), "attendance")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want TransportError, got %v", err)
	}
}
