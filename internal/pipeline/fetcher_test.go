package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/ppiankov/fincausal/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	cfg := model.DefaultConfig().HTTP
	cfg.Timeout = 5 * time.Second
	cfg.User.Agent = "test-agent"
	cfg.Max.Bytes = 1 << 20
	return cfg
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(testHTTPConfig(), nil)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return f
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body>利率上升</body></html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(t).FetchWithRetry(context.Background(), server.URL+"/news/rate-hike.html")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Body != "<html><body>利率上升</body></html>" {
		t.Errorf("unexpected body: %s", result.Body)
	}
	if result.Meta.StatusCode != http.StatusOK {
		t.Errorf("unexpected status %d", result.Meta.StatusCode)
	}
	if result.Subject != "rate hike" {
		t.Errorf("unexpected subject %q", result.Subject)
	}
}

func TestFetch_DecodesGBK(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("<p>利率上升导致经济放缓</p>")
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = fmt.Fprint(w, gbk)
	}))
	defer server.Close()

	result, err := newTestFetcher(t).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Body != "<p>利率上升导致经济放缓</p>" {
		t.Errorf("body not decoded: %q", result.Body)
	}
}

func TestFetch_MaxBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.Max.Bytes = 4
	f, err := NewFetcher(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Body != "0123" {
		t.Errorf("expected truncated body, got %q", result.Body)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(t).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if result.Body != "<html>OK</html>" {
		t.Errorf("unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(t).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 Not Found" {
		t.Errorf("unexpected error: %s", got)
	}
	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusNotFound {
		t.Errorf("expected StatusError 404, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 must not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := newTestFetcher(t).FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	if _, err := newTestFetcher(t).FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &StatusError{Code: 503}, true},
		{"500", &StatusError{Code: 500}, true},
		{"429", &StatusError{Code: 429}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"wrapped 502", fmt.Errorf("fetch x: %w", &StatusError{Code: 502}), true},
		{"network", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"cancelled", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, false},
		{"other", errors.New("read body: unexpected EOF"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestNewFetcher_BadProxy(t *testing.T) {
	cfg := testHTTPConfig()
	cfg.Proxy = "not a url"
	if _, err := NewFetcher(cfg, nil); err == nil {
		t.Error("expected error for invalid proxy")
	}
}

func TestSubjectOf(t *testing.T) {
	tests := map[string]string{
		"https://example.com/":                          "example.com",
		"https://example.com/news/central_bank-cut.htm": "central bank cut",
		"https://example.com/a/%E5%88%A9%E7%8E%87":      "利率",
	}
	for in, want := range tests {
		if got := subjectOf(in); got != want {
			t.Errorf("subjectOf(%q) = %q, want %q", in, got, want)
		}
	}
}
