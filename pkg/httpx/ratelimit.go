package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// with up to Burst requests allowed back to back.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

func (c RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Profiles used by opsdev, overridable through
// RATELIMIT_{AUTH,API}_{REQUESTS,WINDOW_SEC,BURST}.
var (
	// AuthLimit guards login, registration, refresh and code verification.
	AuthLimit = RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	// APILimit applies per user to authenticated calls.
	APILimit = RateLimitConfig{RequestsPerWindow: 600, Window: time.Minute, Burst: 100}
)

func init() {
	AuthLimit = ParseRateLimitFromEnv("AUTH", AuthLimit)
	APILimit = ParseRateLimitFromEnv("API", APILimit)
}

// ParseRateLimitFromEnv overlays RATELIMIT_<prefix>_REQUESTS, _WINDOW_SEC and
// _BURST onto def. Missing, malformed or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	env := func(field string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + prefix + "_" + field))
		return n, err == nil && n > 0
	}

	cfg := def
	if n, ok := env("REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := env("WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := env("BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

// KeyFunc names the bucket a request draws from. An empty key is not limited.
type KeyFunc func(*http.Request) string

// ClientIP keys on the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserKey keys on the authenticated subject, if any.
func UserKey(r *http.Request) string {
	id, _ := r.Context().Value(CtxKeyUserID).(string)
	return id
}

// QueryKey keys on a query parameter. The body is never read.
func QueryKey(name string) KeyFunc {
	return func(r *http.Request) string {
		return strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
	}
}

// JoinKeys concatenates the non-empty keys of fns with ":".
func JoinKeys(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// buckets holds one limiter per key. Buckets idle for a full window are
// refilled anyway, so they are dropped on the next sweep.
type buckets struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	byKey     map[string]*bucket
	lastSweep time.Time
}

func (b *buckets) reserve(key string, now time.Time) (ok bool, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) > b.cfg.Window {
		for k, e := range b.byKey {
			if now.Sub(e.lastSeen) > b.cfg.Window {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}

	e, found := b.byKey[key]
	if !found {
		e = &bucket{lim: rate.NewLimiter(b.cfg.limit(), b.cfg.Burst)}
		b.byKey[key] = e
	}
	e.lastSeen = now

	if e.lim.AllowN(now, 1) {
		return true, 0
	}
	r := e.lim.ReserveN(now, 1)
	defer r.CancelAt(now)
	return false, r.DelayFrom(now)
}

// RateLimit rejects requests with 429 once the bucket for their key is empty.
func RateLimit(cfg RateLimitConfig, key KeyFunc) Middleware {
	b := &buckets{cfg: cfg, byKey: map[string]*bucket{}, lastSweep: time.Now()}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := b.reserve(k, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			secs := max(int(wait.Round(time.Second)/time.Second), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limited",
				"key", k, "path", r.URL.Path, "retry_after_sec", secs)
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
				"Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, ClientIP)
}

// RateLimitByUser limits per authenticated user and address.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, JoinKeys(UserKey, ClientIP))
}

// RateLimitByIPAndQuery limits per address and query parameter, so one
// account under attack does not lock out the rest of an office.
func RateLimitByIPAndQuery(cfg RateLimitConfig, param string) Middleware {
	return RateLimit(cfg, JoinKeys(ClientIP, QueryKey(param)))
}
