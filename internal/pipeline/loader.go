package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/cache"
	"github.com/ppiankov/fincausal/internal/model"
	"github.com/ppiankov/fincausal/internal/nlp"
	"github.com/ppiankov/fincausal/internal/util"
)

var (
	// ErrUnsupportedInput is returned for file types the loader cannot read
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrDisallowed is returned when robots.txt forbids fetching a URL
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Input is a loaded source, either raw text or a pre-annotated document
type Input struct {
	Subject   string
	Source    string
	Text      string
	Document  *model.Document // Set for CoNLL-U inputs; Text is then the joined sentences
	FetchMeta *model.FetchMeta
}

// Loader reads inputs from files, standard input and URLs
type Loader struct {
	fetcher *Fetcher
	robots  *util.RobotsChecker
	pages   *cache.PageCache
	stdin   io.Reader
	logger  *zap.Logger
}

// NewLoader creates a loader. fetcher, robots and pages may be nil; URL
// inputs then fail, skip the robots check, or skip the cache respectively.
func NewLoader(fetcher *Fetcher, robots *util.RobotsChecker, pages *cache.PageCache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher: fetcher,
		robots:  robots,
		pages:   pages,
		stdin:   os.Stdin,
		logger:  logger,
	}
}

// Load reads source: "-" for standard input, an http(s) URL, or a file
// path (.txt, .md, .conllu, .html, .htm)
func (l *Loader) Load(ctx context.Context, source string) (*Input, error) {
	switch {
	case source == "-":
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &Input{Subject: "stdin", Source: source, Text: string(data)}, nil
	case isURL(source):
		return l.loadURL(ctx, source)
	default:
		return l.loadFile(source)
	}
}

func (l *Loader) loadFile(path string) (*Input, error) {
	ext := strings.ToLower(filepath.Ext(path))
	subject := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch ext {
	case "", ".txt", ".text", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return &Input{Subject: subject, Source: path, Text: string(data)}, nil

	case ".conllu":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()

		doc, err := nlp.ReadCoNLLU(f, l.logger)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return &Input{Subject: subject, Source: path, Text: doc.Text, Document: doc}, nil

	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()

		title, text, err := ExtractText(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if title != "" {
			subject = title
		}
		return &Input{Subject: subject, Source: path, Text: text}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, path)
	}
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (*Input, error) {
	if l.pages != nil {
		if page, ok := l.pages.Load(rawURL); ok {
			return l.fromPage(page)
		}
	}

	if l.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured for %s", ErrUnsupportedInput, rawURL)
	}

	if l.robots != nil {
		verdict, err := l.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !verdict.Allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		if err := sleepContext(ctx, verdict.CrawlDelay); err != nil {
			return nil, err
		}
	}

	result, err := l.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	page := &cache.Page{
		URL:       rawURL,
		FinalURL:  result.FinalURL,
		Body:      result.Body,
		Meta:      result.Meta,
		FetchedAt: time.Now().UTC(),
	}
	if l.pages != nil {
		if err := l.pages.Save(page); err != nil {
			l.logger.Warn("could not cache page", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return l.fromPage(page)
}

func (l *Loader) fromPage(page *cache.Page) (*Input, error) {
	meta := page.Meta
	in := &Input{
		Subject:   subjectOf(page.FinalURL),
		Source:    page.FinalURL,
		FetchMeta: &meta,
	}

	if !isHTML(meta.ContentType) {
		in.Text = page.Body
		return in, nil
	}

	title, text, err := ExtractText(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", page.FinalURL, err)
	}
	if title != "" {
		in.Subject = title
	}
	in.Text = text
	return in, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// isHTML treats a missing content type as HTML
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
