package statsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetStatsDecodesLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "Bob" {
			t.Errorf("name query = %q, want Bob", got)
		}
		if got := r.URL.Query().Get("solo"); got != "true" {
			t.Errorf("solo query = %q, want true", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"line":"Bob: 120W 80L"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	line, err := c.GetStats(context.Background(), "Bob", 1, true)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if line != "Bob: 120W 80L" {
		t.Errorf("line = %q, want %q", line, "Bob: 120W 80L")
	}
}

func TestGetStatsErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.GetStats(context.Background(), "Bob", 1, true); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestGetStatsErrorsOnEmptyLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"line":""}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.GetStats(context.Background(), "Bob", 1, true); err == nil {
		t.Fatal("expected error on empty stats line")
	}
}
