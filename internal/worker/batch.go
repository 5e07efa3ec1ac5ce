package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

// Analyzer produces the report for one input source (path or URL)
type Analyzer interface {
	Analyze(ctx context.Context, source string) (*model.Report, error)
}

// AnalyzeJob analyzes one source
type AnalyzeJob struct {
	Index    int
	Source   string
	Analyzer Analyzer
	Limiter  *Limiter
}

// Execute implements Job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	outcome := &Outcome{Index: j.Index, Source: j.Source}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Source); err != nil {
			outcome.Error = fmt.Errorf("rate limit: %w", err)
			return outcome
		}
	}

	outcome.Report, outcome.Error = j.Analyzer.Analyze(ctx, j.Source)
	return outcome
}

// Outcome is the result of one AnalyzeJob
type Outcome struct {
	Index  int
	Source string
	Report *model.Report
	Error  error
}

// Err implements Result
func (o *Outcome) Err() error {
	return o.Error
}

// BatchProcessor analyzes many sources concurrently
type BatchProcessor struct {
	analyzer Analyzer
	workers  int
	limiter  *Limiter
	logger   *zap.Logger
}

// NewBatchProcessor creates a processor. limiter may be nil.
func NewBatchProcessor(analyzer Analyzer, workers int, limiter *Limiter, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		analyzer: analyzer,
		workers:  workers,
		limiter:  limiter,
		logger:   logger,
	}
}

// Process analyzes sources and returns one Outcome per source, in input order
func (b *BatchProcessor) Process(ctx context.Context, sources []string) []*Outcome {
	if len(sources) == 0 {
		return []*Outcome{}
	}

	pool := NewPool(ctx, b.workers)
	pool.Start()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			b.logger.Warn("batch cancelled", zap.Error(ctx.Err()))
			pool.Shutdown()
		case <-stop:
		}
	}()

	go func() {
		defer pool.Close()
		for i, source := range sources {
			job := &AnalyzeJob{Index: i, Source: source, Analyzer: b.analyzer, Limiter: b.limiter}
			if err := pool.Submit(job); err != nil {
				b.logger.Warn("batch stopped before all sources were queued",
					zap.Int("queued", i), zap.Int("total", len(sources)))
				return
			}
		}
	}()

	outcomes := make([]*Outcome, 0, len(sources))
	for result := range pool.Results() {
		outcome := result.(*Outcome)
		if outcome.Error != nil {
			b.logger.Warn("source failed", zap.String("source", outcome.Source), zap.Error(outcome.Error))
		} else if outcome.Report != nil {
			b.logger.Debug("source done", zap.String("source", outcome.Source),
				zap.Int("triples", len(outcome.Report.Triples)))
		}
		outcomes = append(outcomes, outcome)
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })

	b.logger.Info("batch complete", zap.Int("sources", len(sources)), zap.Int("finished", len(outcomes)))
	return outcomes
}

// ProcessFile reads a source list from path and processes it
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*Outcome, error) {
	sources, err := ReadSourcesFile(path)
	if err != nil {
		return nil, err
	}
	return b.Process(ctx, sources), nil
}

// ReadSourcesFile reads a source list file
func ReadSourcesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source list: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadSources(f)
}

// ReadSources reads one source per line, skipping blanks, # comments and
// duplicates
func ReadSources(r io.Reader) ([]string, error) {
	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source list: %w", err)
	}

	return sources, nil
}
