// Package pipeline wires preprocessing, annotation, causal extraction,
// temporal tagging and financial adaptation into one run per document.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/extract"
	"github.com/ppiankov/fincausal/internal/finance"
	"github.com/ppiankov/fincausal/internal/model"
	"github.com/ppiankov/fincausal/internal/nlp"
	"github.com/ppiankov/fincausal/internal/preprocess"
	"github.com/ppiankov/fincausal/internal/temporal"
)

// Pipeline processes documents. Extractor and tagger are created per
// document; the matcher is shared and read-only, so one Pipeline may serve
// concurrent callers.
type Pipeline struct {
	config       *model.Config
	preprocessor *preprocess.Preprocessor
	annotator    nlp.Annotator
	matcher      *finance.Matcher
	loader       *Loader
	extractOpts  []extract.Option
	tagOpts      []temporal.Option
	logger       *zap.Logger
	now          func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithAnnotator sets the annotator (default: sentence splitter)
func WithAnnotator(a nlp.Annotator) Option {
	return func(p *Pipeline) { p.annotator = a }
}

// WithMatcher sets a prebuilt financial term matcher
func WithMatcher(m *finance.Matcher) Option {
	return func(p *Pipeline) { p.matcher = m }
}

// WithLoader sets the input loader used by Analyze
func WithLoader(l *Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithExtractorOptions passes options to every causal extractor
func WithExtractorOptions(opts ...extract.Option) Option {
	return func(p *Pipeline) { p.extractOpts = append(p.extractOpts, opts...) }
}

// WithTaggerOptions passes options to every temporal tagger
func WithTaggerOptions(opts ...temporal.Option) Option {
	return func(p *Pipeline) { p.tagOpts = append(p.tagOpts, opts...) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline for cfg. Components not supplied through options
// are built from the configuration.
func New(cfg *model.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	p := &Pipeline{
		config: cfg,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}

	p.preprocessor = preprocess.New(preprocess.OptionsFromConfig(cfg.Preprocess), p.logger.Named("preprocess"))
	if p.annotator == nil {
		p.annotator = nlp.NewSentenceSplitter()
	}
	if p.matcher == nil {
		p.matcher = finance.NewMatcher(cfg.Financial.Dictionary.Path, p.logger.Named("finance"))
	}
	if p.loader == nil {
		p.loader = NewLoader(nil, nil, nil, p.logger.Named("loader"))
	}

	return p
}

// Matcher returns the shared financial term matcher
func (p *Pipeline) Matcher() *finance.Matcher {
	return p.matcher
}

// Process preprocesses and annotates text, then runs ProcessDocument
func (p *Pipeline) Process(ctx context.Context, text string) ([]model.CausalTriple, error) {
	doc, err := p.annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	return p.ProcessDocument(ctx, doc)
}

// ProcessDocument extracts, tags and adapts the triples of an annotated
// document
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *model.Document) ([]model.CausalTriple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append([]extract.Option{
		extract.WithThreshold(p.config.Causal.Confidence.Threshold),
		extract.WithLogger(p.logger.Named("extract")),
	}, p.extractOpts...)
	extractor := extract.NewCausalExtractor(opts...)
	tagger := temporal.NewTagger(p.logger.Named("temporal"), p.tagOpts...)

	triples := extractor.Extract(doc)
	triples = tagger.Tag(triples, doc)
	triples = p.matcher.Adapt(triples, doc)

	return triples, nil
}

// Analyze loads source and builds its full report
func (p *Pipeline) Analyze(ctx context.Context, source string) (*model.Report, error) {
	in, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.AnalyzeInput(ctx, in)
}

// AnalyzeInput builds the report for an already loaded input
func (p *Pipeline) AnalyzeInput(ctx context.Context, in *Input) (*model.Report, error) {
	doc := in.Document
	if doc == nil {
		var err error
		if doc, err = p.annotate(ctx, in.Text); err != nil {
			return nil, fmt.Errorf("annotate %s: %w", in.Source, err)
		}
	}

	triples, err := p.ProcessDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", in.Source, err)
	}

	report := &model.Report{
		Subject:         in.Subject,
		Source:          in.Source,
		ProcessedAt:     p.now(),
		FetchMeta:       in.FetchMeta,
		Sentences:       doc.SentenceCount(),
		Triples:         triples,
		Terms:           p.matcher.Recognize(in.Text),
		TimeExpressions: temporal.TimeExpressions(in.Text),
		Stats:           model.ComputeStats(triples),
	}

	p.logger.Info("document analyzed",
		zap.String("source", in.Source),
		zap.Int("sentences", report.Sentences),
		zap.Int("triples", len(triples)),
		zap.Int("terms", len(report.Terms)),
	)
	return report, nil
}

func (p *Pipeline) annotate(ctx context.Context, text string) (*model.Document, error) {
	cleaned := p.preprocessor.Preprocess(text)
	doc, err := p.annotator.Annotate(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	return doc, nil
}

// OutputResults writes triples to path as indented JSON
func (p *Pipeline) OutputResults(triples []model.CausalTriple, path string) error {
	data, err := marshalTriples(triples)
	if err != nil {
		return err
	}

	if err := writeFile(path, data); err != nil {
		return err
	}

	p.logger.Info("results written", zap.String("path", path), zap.Int("triples", len(triples)))
	return nil
}

// WriteTriples writes triples to w as indented JSON followed by a newline
func WriteTriples(w io.Writer, triples []model.CausalTriple) error {
	data, err := marshalTriples(triples)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write triples: %w", err)
	}
	return nil
}

// marshalTriples encodes nil as an empty array
func marshalTriples(triples []model.CausalTriple) ([]byte, error) {
	if triples == nil {
		triples = []model.CausalTriple{}
	}
	data, err := json.MarshalIndent(triples, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal triples: %w", err)
	}
	return data, nil
}
