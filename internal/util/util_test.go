package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func robotsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusOK)
			return
		}
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRobotsChecker_Rules(t *testing.T) {
	srv, hits := robotsServer(t, http.StatusOK, "User-agent: fincausal\nDisallow: /private\nCrawl-delay: 2\n")
	rc := NewRobotsChecker(srv.Client(), "fincausal/0.1 (+https://example.com)", zaptest.NewLogger(t))
	ctx := context.Background()

	v, err := rc.Check(ctx, srv.URL+"/news/today")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Allowed {
		t.Error("expected /news/today to be allowed")
	}
	if v.CrawlDelay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", v.CrawlDelay)
	}

	v, err = rc.Check(ctx, srv.URL+"/private/report")
	if err != nil {
		t.Fatal(err)
	}
	if v.Allowed {
		t.Error("expected /private/report to be disallowed")
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("robots.txt fetched %d times, want once per host", n)
	}

	rc.Forget()
	if _, err := rc.Check(ctx, srv.URL); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("expected refetch after Forget, got %d fetches", n)
	}
}

func TestRobotsChecker_StatusPolicy(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusNotFound, true},
		{http.StatusForbidden, true},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		srv, _ := robotsServer(t, tt.status, "")
		rc := NewRobotsChecker(srv.Client(), "fincausal", nil)

		v, err := rc.Check(context.Background(), srv.URL+"/anything")
		if err != nil {
			t.Fatalf("status %d: %v", tt.status, err)
		}
		if v.Allowed != tt.want {
			t.Errorf("status %d: allowed = %v, want %v", tt.status, v.Allowed, tt.want)
		}
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	srv, _ := robotsServer(t, http.StatusOK, "")
	addr := srv.URL
	srv.Close()

	rc := NewRobotsChecker(&http.Client{Timeout: time.Second}, "fincausal", zaptest.NewLogger(t))
	v, err := rc.Check(context.Background(), addr+"/x")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Allowed {
		t.Error("expected unreachable host to be allowed")
	}
}

func TestRobotsChecker_BadURL(t *testing.T) {
	rc := NewRobotsChecker(nil, "fincausal", nil)

	for _, raw := range []string{"ftp://example.com/file", "://bad"} {
		if _, err := rc.Check(context.Background(), raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"fincausal/0.1 (+https://example.com)": "fincausal",
		"bot":                                  "bot",
		"":                                     "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProxyFunc(t *testing.T) {
	f, err := ProxyFunc("")
	if err != nil || f == nil {
		t.Fatalf("ProxyFunc(\"\") = %v, %v", f != nil, err)
	}

	f, err = ProxyFunc("http://proxy.internal:3128")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "https://example.com", nil)
	u, err := f(req)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "proxy.internal:3128" {
		t.Errorf("expected proxy.internal:3128, got %s", u.Host)
	}

	if _, err := ProxyFunc("not a url"); err == nil {
		t.Error("expected error for invalid proxy URL")
	}
}
