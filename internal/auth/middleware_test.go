package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAPIKeyPassesReads(t *testing.T) {
	store := testAPIKeyStore(t)
	handler := RequireAPIKey(store, okHandler())

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/api/regions"},
		{"HEAD", "/api/companies"},
		{"POST", "/companies/comment"},
		{"GET", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestRequireAPIKeyRejectsMissingKey(t *testing.T) {
	store := testAPIKeyStore(t)
	handler := RequireAPIKey(store, okHandler())

	r := httptest.NewRequest("PUT", "/api/companies/comment", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRequireAPIKeyAcceptsValidKey(t *testing.T) {
	store := testAPIKeyStore(t)
	raw, _, err := store.Create("cli")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	handler := RequireAPIKey(store, okHandler())

	r := httptest.NewRequest("PUT", "/api/companies/comment", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRequireAPIKeyRateLimitsFailures(t *testing.T) {
	store := testAPIKeyStore(t)
	raw, _, err := store.Create("cli")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	handler := RequireAPIKey(store, okHandler())

	for i := 0; i < maxFailures; i++ {
		r := httptest.NewRequest("POST", "/api/analyst", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		r.Header.Set("Authorization", "Bearer pk_wrong")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, w.Code, http.StatusUnauthorized)
		}
	}

	// Even a valid key is refused once the budget is spent.
	r := httptest.NewRequest("POST", "/api/analyst", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// Other clients are unaffected.
	r = httptest.NewRequest("POST", "/api/analyst", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	r.Header.Set("Authorization", "Bearer "+raw)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("other ip status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestFailureLimiterTracksOnlyFailures(t *testing.T) {
	fl := newFailureLimiter()

	if fl.blocked("192.0.2.1") {
		t.Error("unknown IP should not be blocked")
	}
	if len(fl.m) != 0 {
		t.Errorf("tracked %d IPs after a lookup, want 0", len(fl.m))
	}
}

func TestFailureLimiterPrunesIdleIPs(t *testing.T) {
	fl := newFailureLimiter()
	now := time.Now()
	fl.now = func() time.Time { return now }

	for i := 0; i < pruneAt; i++ {
		fl.fail(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	if len(fl.m) != pruneAt {
		t.Fatalf("tracked %d IPs, want %d", len(fl.m), pruneAt)
	}

	// Once the old budgets refill, the next new IP clears them out.
	now = now.Add(2 * failureWindow)
	for i := 0; i < maxFailures; i++ {
		fl.fail("203.0.113.7")
	}

	if len(fl.m) != 1 {
		t.Errorf("tracked %d IPs after pruning, want 1", len(fl.m))
	}
	if !fl.blocked("203.0.113.7") {
		t.Error("IP that used its budget should stay blocked")
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"10.0.0.1:1234": "10.0.0.1",
		"[::1]:8080":    "[::1]",
		"localhost":     "localhost",
	}
	for in, want := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = in
		if got := clientIP(r); got != want {
			t.Errorf("clientIP(%q) = %q, want %q", in, got, want)
		}
	}
}
