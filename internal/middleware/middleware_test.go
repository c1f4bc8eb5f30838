package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/unicatolica/registro-huellas/internal/auth"
	"github.com/unicatolica/registro-huellas/internal/metrics"
	"github.com/unicatolica/registro-huellas/internal/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	h := CORS([]string{"https://huellas.example.edu"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/accesos", nil)
	req.Header.Set("Origin", "https://huellas.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://huellas.example.edu" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/accesos", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestHostCheck(t *testing.T) {
	t.Parallel()
	h := HostCheck("api.example.edu")(okHandler)

	tests := []struct {
		host string
		want int
	}{
		{"api.example.edu", http.StatusOK},
		{"API.example.edu:443", http.StatusOK},
		{"other.example.edu", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("host %q: status = %d, want %d", tt.host, rec.Code, tt.want)
		}
	}
}

func TestIPLimitersPerIPBurst(t *testing.T) {
	t.Parallel()
	l := newIPLimiters(rate.Every(time.Hour), 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("1.1.1.1") || !l.allow("1.1.1.1") {
		t.Fatal("burst not honored")
	}
	if l.allow("1.1.1.1") {
		t.Fatal("third request allowed")
	}
	if !l.allow("2.2.2.2") {
		t.Fatal("limit leaked across IPs")
	}

	now = now.Add(time.Hour)
	l.allow("2.2.2.2")
	if _, ok := l.entries["1.1.1.1"]; ok {
		t.Fatal("idle entry not pruned")
	}
}

func TestLoginRateLimitOnlyCredentialRoutes(t *testing.T) {
	t.Parallel()
	h := LoginRateLimit()(okHandler)

	codes := func(path string, n int) []int {
		var out []int
		for i := 0; i < n; i++ {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			req.RemoteAddr = "10.0.0.1:5555"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			out = append(out, rec.Code)
		}
		return out
	}

	for _, c := range codes("/api/registrar-acceso", 10) {
		if c != http.StatusOK {
			t.Fatalf("scan route was login-limited")
		}
	}
	got := codes("/api/login", loginRateLimitBurst+1)
	if got[len(got)-1] != http.StatusTooManyRequests {
		t.Fatalf("login codes = %v", got)
	}
}

func TestRedisRateLimiterBlocksAfterBudget(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rl := NewRateLimiter(client, discardLogger())
	rl.max = 3
	h := rl.Middleware(okHandler)

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/accesos", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		if rec := do("10.0.0.9"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if rec := do("10.0.0.9"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over budget status = %d", rec.Code)
	}
	if !mr.Exists(BlockedIPKeyPrefix + "10.0.0.9") {
		t.Fatal("ip not blocked")
	}
	if rec := do("10.0.0.10"); rec.Code != http.StatusOK {
		t.Fatalf("other ip status = %d", rec.Code)
	}

	mr.FastForward(BlockedIPDuration + time.Second)
	if rec := do("10.0.0.9"); rec.Code != http.StatusOK {
		t.Fatalf("status after block expired = %d", rec.Code)
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	t.Parallel()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	rec := httptest.NewRecorder()
	NewRateLimiter(client, discardLogger()).Middleware(okHandler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d with Redis down", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()
	issuer := auth.NewIssuer("secret", time.Hour)
	adminToken, _ := issuer.Issue("u1", models.RoleAdmin)
	lectorToken, _ := issuer.Issue("u2", models.RoleLector)

	var seen string
	h := RequireRole(issuer, models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFrom(r.Context())
		seen = c.Subject
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + adminToken, http.StatusUnauthorized},
		{"wrong role", "Bearer " + lectorToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/usuarios", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
	if seen != "u1" {
		t.Fatalf("claims subject = %q", seen)
	}
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(Instrument(m))
	r.Get("/api/huellas/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/huellas/"+id, nil))
	}
	if n := testutil.CollectAndCount(m.HTTPDuration); n != 1 {
		t.Fatalf("series = %d, want 1", n)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("headers = %v", rec.Header())
	}
}
