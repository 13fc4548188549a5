package auth

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	failureWindow = 1 * time.Minute
	maxFailures   = 10
	bearerPrefix  = "Bearer "

	// pruneAt is the number of tracked IPs that triggers removal of idle ones.
	pruneAt = 1024
)

// failureLimiter tracks failed API key attempts per IP. Only IPs that have
// failed are tracked.
type failureLimiter struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	now func() time.Time
}

func newFailureLimiter() *failureLimiter {
	return &failureLimiter{m: make(map[string]*rate.Limiter), now: time.Now}
}

// blocked reports whether ip has used up its failure budget.
func (fl *failureLimiter) blocked(ip string) bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	lim, ok := fl.m[ip]
	return ok && lim.TokensAt(fl.now()) < 1
}

// fail spends one unit of the failure budget for ip.
func (fl *failureLimiter) fail(ip string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	now := fl.now()
	lim, ok := fl.m[ip]
	if !ok {
		if len(fl.m) >= pruneAt {
			fl.prune(now)
		}
		lim = rate.NewLimiter(rate.Every(failureWindow/maxFailures), maxFailures)
		fl.m[ip] = lim
	}
	lim.AllowN(now, 1)
}

// prune drops IPs whose budget has fully refilled. Callers hold fl.mu.
func (fl *failureLimiter) prune(now time.Time) {
	for ip, lim := range fl.m {
		if lim.TokensAt(now) >= maxFailures {
			delete(fl.m, ip)
		}
	}
}

// RequireAPIKey is middleware that validates Bearer token auth for requests
// that change data under /api/. Reads and non-API routes pass through.
// Returns 401 for missing/invalid keys, 429 once an IP has failed too often.
func RequireAPIKey(apiKeys *APIKeyStore, next http.Handler) http.Handler {
	limiter := newFailureLimiter()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") || isReadOnly(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if limiter.blocked(ip) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			limiter.fail(ip)
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		valid, err := apiKeys.Validate(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if !valid {
			limiter.fail(ip)
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isReadOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// clientIP strips the port from RemoteAddr.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		return addr[:i]
	}
	return addr
}
