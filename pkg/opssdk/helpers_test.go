package opssdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/bizops/pkg/slogx"
	"github.com/aussiebroadwan/bizops/pkg/tokenstore"
)

// fakeBackend records every request it receives.
type fakeBackend struct {
	t   *testing.T
	mux *http.ServeMux
	srv *httptest.Server

	mu       sync.Mutex
	requests []recorded
}

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	f := &fakeBackend{t: t, mux: http.NewServeMux()}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		})
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBackend) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeBackend) seen() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func (f *fakeBackend) count(method, path string) int {
	n := 0
	for _, r := range f.seen() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func testPolicy() FetchPolicy {
	return FetchPolicy{
		Cache:           CacheNone,
		RetryIdempotent: true,
		MaxRetries:      2,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      5 * time.Millisecond,
		SerializeWrites: true,
	}
}

func (f *fakeBackend) session() (*Session, *tokenstore.Store) {
	client := NewSDKClient(f.srv.URL, WithLogger(slogx.Discard()), WithPolicy(testPolicy()))
	store := tokenstore.New(tokenstore.NewMemoryKV(), tokenstore.WithLogger(slogx.Discard()))
	return client.NewSession(store), store
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// withCompany serves the login and company endpoints for a user of a
// company on plan.
func (f *fakeBackend) withCompany(plan string) {
	f.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token":        "t1",
			"refreshToken": "r1",
			"user":         map[string]any{"id": "u1", "companyId": "c1", "name": "Jane", "role": "admin"},
		})
	})
	f.handle("GET /api/companies/c1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "c1", "name": "Acme", "plan": plan})
	})
}

// loggedIn returns an Authenticated session against f.
func (f *fakeBackend) loggedIn(plan string) (*Session, *tokenstore.Store) {
	f.t.Helper()
	f.withCompany(plan)

	s, store := f.session()
	state, err := s.Login(context.Background(), "jane@x.com", "hunter22")
	require.NoError(f.t, err)
	require.IsType(f.t, Authenticated{}, state)
	return s, store
}
