// Package util holds the HTTP helpers used when inputs are fetched from the
// network.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// maxRobotsBytes caps how much of a robots.txt is read
const maxRobotsBytes = 512 * 1024

// RobotsVerdict is the robots.txt decision for one URL
type RobotsVerdict struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker fetches robots.txt once per host and answers whether a URL
// may be fetched by the configured user agent
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	agent     string
	logger    *zap.Logger

	mu    sync.RWMutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobotsChecker creates a checker that uses client for robots.txt requests
func NewRobotsChecker(client *http.Client, userAgent string, logger *zap.Logger) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		agent:     NormalizeUserAgent(userAgent),
		logger:    logger,
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// Check returns the verdict for rawURL. When robots.txt cannot be retrieved
// the URL is allowed and a warning is logged.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsVerdict, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RobotsVerdict{}, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return RobotsVerdict{}, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	data, err := r.robots(ctx, parsed)
	if err != nil {
		r.logger.Warn("robots.txt unavailable, allowing", zap.String("host", parsed.Host), zap.Error(err))
		return RobotsVerdict{Allowed: true}, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	verdict := RobotsVerdict{Allowed: data.TestAgent(path, r.agent)}
	if group := data.FindGroup(r.agent); group != nil {
		verdict.CrawlDelay = group.CrawlDelay
	}
	return verdict, nil
}

func (r *RobotsChecker) robots(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(u.Host)

	r.mu.RLock()
	data, ok := r.hosts[host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx allows everything, 5xx disallows everything
	data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.hosts[host] = data
	r.mu.Unlock()

	r.logger.Debug("loaded robots.txt", zap.String("host", host), zap.Int("status", resp.StatusCode))
	return data, nil
}

// Forget drops every cached robots.txt
func (r *RobotsChecker) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = make(map[string]*robotstxt.RobotsData)
}

// NormalizeUserAgent reduces "fincausal/0.1 (+https://...)" to "fincausal"
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	product, _, _ := strings.Cut(parts[0], "/")
	return product
}
