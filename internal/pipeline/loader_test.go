package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/fincausal/internal/cache"
	"github.com/ppiankov/fincausal/internal/util"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Files(t *testing.T) {
	l := NewLoader(nil, nil, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	txt := writeInput(t, "rates.txt", "利率上升导致经济放缓。")
	in, err := l.Load(ctx, txt)
	require.NoError(t, err)
	assert.Equal(t, "rates", in.Subject)
	assert.Equal(t, "利率上升导致经济放缓。", in.Text)
	assert.Nil(t, in.Document)

	page := writeInput(t, "page.html", "<title>降息</title><p>由于降息，股价上涨</p>")
	in, err = l.Load(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, "降息", in.Subject)
	assert.Equal(t, "由于降息，股价上涨", in.Text)

	conllu := writeInput(t, "parsed.conllu", "1\t利率\t利率\tNOUN\t_\t_\t2\tnsubj\t_\tSpaceAfter=No\n2\t上升\t上升\tVERB\t_\t_\t0\troot\t_\t_\n")
	in, err = l.Load(ctx, conllu)
	require.NoError(t, err)
	require.NotNil(t, in.Document)
	assert.Equal(t, 1, in.Document.SentenceCount())
	assert.Equal(t, "利率上升", in.Text)
}

func TestLoader_Errors(t *testing.T) {
	l := NewLoader(nil, nil, nil, nil)
	ctx := context.Background()

	_, err := l.Load(ctx, writeInput(t, "data.pdf", "%PDF"))
	assert.ErrorIs(t, err, ErrUnsupportedInput)

	_, err = l.Load(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = l.Load(ctx, "https://example.com/news")
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestLoader_Stdin(t *testing.T) {
	l := NewLoader(nil, nil, nil, nil)
	l.stdin = strings.NewReader("因为降息，所以股价上涨")

	in, err := l.Load(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, "stdin", in.Subject)
	assert.Equal(t, "因为降息，所以股价上涨", in.Text)
}

func newsServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var pageHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		case "/plain":
			pageHits.Add(1)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = fmt.Fprint(w, "<b>不是标签</b>")
		default:
			pageHits.Add(1)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, "<html><head><title>财经新闻</title></head><body><p>利率上升导致经济放缓。</p></body></html>")
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &pageHits
}

func newURLLoader(t *testing.T, srv *httptest.Server) *Loader {
	t.Helper()
	logger := zaptest.NewLogger(t)
	fetcher, err := NewFetcher(testHTTPConfig(), logger)
	require.NoError(t, err)
	robots := util.NewRobotsChecker(fetcher.Client(), "fincausal-test", logger)
	pages := cache.NewPageCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, logger)
	return NewLoader(fetcher, robots, pages, logger)
}

func TestLoader_URLWithCache(t *testing.T) {
	srv, hits := newsServer(t)
	l := newURLLoader(t, srv)
	ctx := context.Background()

	in, err := l.Load(ctx, srv.URL+"/news/today")
	require.NoError(t, err)
	assert.Equal(t, "财经新闻", in.Subject)
	assert.Equal(t, "利率上升导致经济放缓。", in.Text)
	require.NotNil(t, in.FetchMeta)
	assert.False(t, in.FetchMeta.FromCache)

	in, err = l.Load(ctx, srv.URL+"/news/today")
	require.NoError(t, err)
	assert.True(t, in.FetchMeta.FromCache)
	assert.Equal(t, "利率上升导致经济放缓。", in.Text)

	assert.Equal(t, int32(1), hits.Load())
}

func TestLoader_URLPlainText(t *testing.T) {
	srv, _ := newsServer(t)
	in, err := newURLLoader(t, srv).Load(context.Background(), srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "<b>不是标签</b>", in.Text)
}

func TestLoader_URLDisallowed(t *testing.T) {
	srv, hits := newsServer(t)
	_, err := newURLLoader(t, srv).Load(context.Background(), srv.URL+"/private/report")
	assert.ErrorIs(t, err, ErrDisallowed)
	assert.Equal(t, int32(0), hits.Load())
}
