package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"claimprobe/internal/auth"
	"claimprobe/internal/claims"
	"claimprobe/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// fixedNow is the clock every command test runs at.
var fixedNow = time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)

// backend is a fake claims API. Handlers left nil answer 404.
type backend struct {
	mu       sync.Mutex
	searches []claims.SearchCriteria
	uploads  int
	polls    int
	form     map[string]string

	loginStatus int
	search      func(claims.SearchCriteria) []map[string]any
	detail      func(number string) (int, any)
	practices   []map[string]any
	// jobs returns the job body for the n-th status check, starting at 1.
	jobs    func(n int) map[string]any
	results string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(auth.MockLoginPath, func(w http.ResponseWriter, r *http.Request) {
		if b.loginStatus != 0 {
			writeJSON(w, b.loginStatus, map[string]any{"detail": "login disabled"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "test-access-token-0123456789",
			"token_type":   "Bearer",
			"expires_in":   300,
		})
	})

	mux.HandleFunc(claims.SearchPath, func(w http.ResponseWriter, r *http.Request) {
		var c claims.SearchCriteria
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		b.mu.Lock()
		b.searches = append(b.searches, c)
		b.mu.Unlock()

		var found []map[string]any
		if b.search != nil {
			found = b.search(c)
		}
		if found == nil {
			found = []map[string]any{}
		}
		w.Header().Set("X-Request-Id", "req-1")
		writeJSON(w, http.StatusOK, map[string]any{
			"claims":        found,
			"hasMore":       false,
			"transactionId": "txn-42",
		})
	})

	mux.HandleFunc(claims.PracticesPath, func(w http.ResponseWriter, r *http.Request) {
		if b.practices == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(b.practices), "results": b.practices})
	})

	mux.HandleFunc(claims.BulkUploadPath, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No file provided"})
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		b.mu.Lock()
		b.uploads++
		b.polls = 0
		b.form = map[string]string{}
		for _, k := range []string{"provider", "use_batch_query", "start_date", "end_date"} {
			b.form[k] = r.FormValue(k)
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":         42,
			"status":     "PENDING",
			"filename":   "upload.csv",
			"total_rows": 3,
		})
	})

	mux.HandleFunc("/api/v1/claims/csv-jobs/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/download_results/") {
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte(b.results))
			return
		}
		if b.jobs == nil {
			http.NotFound(w, r)
			return
		}
		b.mu.Lock()
		b.polls++
		n := b.polls
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.jobs(n))
	})

	mux.HandleFunc("/api/v1/claims/", func(w http.ResponseWriter, r *http.Request) {
		if b.detail == nil {
			http.NotFound(w, r)
			return
		}
		number := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/claims/"), "/")
		status, body := b.detail(number)
		writeJSON(w, status, body)
	})

	return mux
}

func (b *backend) searchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.searches)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func claimJSON(number, status string) map[string]any {
	return map[string]any{
		"claimNumber": number,
		"status":      status,
		"patient": map[string]any{
			"firstName":   "TOMMY",
			"lastName":    "HOWELL",
			"dateOfBirth": "1980-01-02",
		},
		"subscriber":       map[string]any{"memberId": "M-" + number},
		"serviceLines":     []map[string]any{{"serviceDate": "2025-07-03"}},
		"firstServiceDate": "2025-07-03",
		"lastServiceDate":  "2025-07-03",
		"chargedAmount":    125.5,
		"paidAmount":       "100.00",
	}
}

func claimList(status string, numbers ...string) []map[string]any {
	out := make([]map[string]any, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, claimJSON(n, status))
	}
	return out
}

func completedJob(n int) map[string]any {
	if n == 1 {
		return map[string]any{"id": 42, "status": "PROCESSING", "total_rows": 3, "processed_rows": 1, "success_count": 1}
	}
	return map[string]any{"id": 42, "status": "COMPLETED", "total_rows": 3, "processed_rows": 3, "success_count": 3, "failure_count": 0}
}

// newTestCommand points the global configuration at a fake backend and returns a
// command whose output is captured.
func newTestCommand(t *testing.T, b *backend) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	var h http.Handler = http.NotFoundHandler()
	if b != nil {
		h = b.handler()
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := config.DefaultConfig()
	c.Environment = "test"
	c.Environments = map[string]config.EnvironmentConfig{
		"test": {
			BaseURL:     srv.URL,
			FrontendURL: "https://frontend.test",
			Auth:        config.AuthConfig{Mode: config.AuthMock},
			LogHints:    []string{"journalctl -u claims-backend -n 100"},
		},
	}
	c.Transport.RateLimit = 1000
	c.Transport.RateBurst = 100
	c.Poll.Interval = "10ms"
	c.Poll.MaxWait = "5s"
	c.Output.Dir = t.TempDir()

	cfg = c
	logger = zap.NewNop()
	clock = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		cfg = nil
		clock = time.Now
	})

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	return cmd, &buf
}

// setGlobal sets a flag variable for one test.
func setGlobal[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func mustContain(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(out, part) {
			t.Fatalf("expected output to contain %q, got:\n%s", part, out)
		}
	}
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i+1)
	}
	return out
}
