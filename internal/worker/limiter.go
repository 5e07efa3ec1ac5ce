package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles requests per host. Sources without a host (local
// files) are never throttled.
type Limiter struct {
	mu           sync.RWMutex
	hosts        map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host. A
// non-positive rate disables throttling.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		hosts:        make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until source may be fetched
func (l *Limiter) Wait(ctx context.Context, source string) error {
	host, err := hostOf(source)
	if err != nil {
		return err
	}
	if host == "" {
		return nil
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether source may be fetched now, consuming a token if so
func (l *Limiter) Allow(source string) bool {
	host, err := hostOf(source)
	if err != nil {
		return false
	}
	if host == "" {
		return true
	}
	return l.forHost(host).Allow()
}

// WaitWithDelay waits for a token, then sleeps for delay (a robots.txt
// crawl delay, for example)
func (l *Limiter) WaitWithDelay(ctx context.Context, source string, delay time.Duration) error {
	if err := l.Wait(ctx, source); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetHostRate overrides the rate for one host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.hosts[strings.ToLower(host)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.hosts[host]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.hosts[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.hosts[host] = limiter
	return limiter
}

// hostOf returns the lower-cased host of an http(s) source, "" otherwise
func hostOf(source string) (string, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return "", nil
	}
	parsed, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse source URL: %w", err)
	}
	return strings.ToLower(parsed.Host), nil
}
