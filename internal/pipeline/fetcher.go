package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/ppiankov/fincausal/internal/model"
	"github.com/ppiankov/fincausal/internal/util"
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher downloads URL inputs and decodes them to UTF-8
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	attempts  int
	logger    *zap.Logger
}

// NewFetcher creates a fetcher from the http.* settings
func NewFetcher(cfg model.HTTPConfig, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	proxy, err := util.ProxyFunc(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	attempts := cfg.Retries
	if attempts <= 0 {
		attempts = 1
	}
	maxBytes := cfg.Max.Bytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.User.Agent,
		maxBytes:  maxBytes,
		attempts:  attempts,
		logger:    logger,
	}, nil
}

// Client exposes the HTTP client so robots.txt checks share its transport
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// FetchResult is a fetched page
type FetchResult struct {
	Body     string
	Meta     model.FetchMeta
	Subject  string
	FinalURL string
}

// Fetch performs a single GET
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	// GBK and other legacy encodings are converted to UTF-8
	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBytes), meta.ContentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		Body:     string(data),
		Meta:     meta,
		Subject:  subjectOf(finalURL),
		FinalURL: finalURL,
	}, nil
}

// FetchWithRetry retries transient failures (network errors, 429, 5xx)
// with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			f.logger.Debug("retrying fetch", zap.String("url", rawURL), zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff))
			fetchSleepFunc(backoff)
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// subjectOf turns the last path segment of a URL into a readable name
func subjectOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}
	last = strings.NewReplacer("_", " ", "-", " ").Replace(last)
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
