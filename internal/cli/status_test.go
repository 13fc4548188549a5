package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestStatusShowsServerAndKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PROSPECTOR_API_KEY", "pk_testapikey1234567890")
	t.Setenv("PROSPECTOR_SERVER_URL", "http://127.0.0.1:1")

	// Unreachable server is reported, not returned
	if err := runStatus(context.Background()); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestStatusShortAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PROSPECTOR_API_KEY", "pk_ab")
	t.Setenv("PROSPECTOR_SERVER_URL", "http://127.0.0.1:1")

	// Should not panic with a short key
	if err := runStatus(context.Background()); err != nil {
		t.Fatalf("status with short key: %v", err)
	}
}

func TestStatusWithServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			t.Errorf("write: %v", err)
		}
	}))
	defer srv.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("PROSPECTOR_API_KEY", "")
	t.Setenv("PROSPECTOR_SERVER_URL", srv.URL)

	if err := runStatus(context.Background()); err != nil {
		t.Fatalf("status: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("health hits = %d, want 1", n)
	}
}
