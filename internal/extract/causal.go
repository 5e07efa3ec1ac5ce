// Package extract finds causal triples in annotated documents.
package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

const (
	// PatternConfidence is the base confidence of a pattern match
	PatternConfidence = 0.7
	// DependencyConfidence is the base confidence of a dependency edge
	DependencyConfidence = 0.6
	// DefaultThreshold drops triples below this confidence
	DefaultThreshold = 0.5
)

// CausalExtractor extracts causal triples with two independent strategies:
// regular-expression patterns over sentence text, and causal-indicative
// edges of the dependency graph.
type CausalExtractor struct {
	markers   []string
	patterns  []Pattern
	labels    map[string]bool
	threshold float64
	logger    *zap.Logger
}

// Option configures a CausalExtractor
type Option func(*CausalExtractor)

// WithMarkers replaces the causal marker words
func WithMarkers(markers []string) Option {
	return func(e *CausalExtractor) { e.markers = markers }
}

// WithPatterns replaces the pattern table
func WithPatterns(patterns []Pattern) Option {
	return func(e *CausalExtractor) { e.patterns = patterns }
}

// WithDependencyLabels replaces the causal-indicative relation labels
func WithDependencyLabels(labels []string) Option {
	return func(e *CausalExtractor) { e.labels = labelSet(labels) }
}

// WithThreshold sets the minimum confidence kept by Extract
func WithThreshold(threshold float64) Option {
	return func(e *CausalExtractor) { e.threshold = threshold }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *CausalExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewCausalExtractor creates an extractor with the default tables
func NewCausalExtractor(opts ...Option) *CausalExtractor {
	e := &CausalExtractor{
		markers:   DefaultMarkers(),
		patterns:  DefaultPatterns(),
		labels:    labelSet(DefaultDependencyLabels()),
		threshold: DefaultThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured confidence threshold
func (e *CausalExtractor) Threshold() float64 {
	return e.threshold
}

// Extract runs both strategies over every sentence, then drops triples below
// the confidence threshold. A nil document yields an empty result.
func (e *CausalExtractor) Extract(doc *model.Document) []model.CausalTriple {
	if doc == nil {
		e.logger.Warn("document is nil, nothing to extract")
		return []model.CausalTriple{}
	}

	var triples []model.CausalTriple
	for _, sentence := range doc.Sentences {
		triples = append(triples, e.ExtractByPatterns(sentence)...)
		triples = append(triples, e.ExtractByDependencies(sentence)...)
	}

	triples = Filter(triples, e.threshold)
	e.logger.Info("extracted causal triples", zap.Int("count", len(triples)))
	return triples
}

// ExtractByPatterns applies every pattern to the sentence text. Patterns are
// not exclusive: each matching pattern contributes one triple.
func (e *CausalExtractor) ExtractByPatterns(sentence model.Sentence) []model.CausalTriple {
	var triples []model.CausalTriple

	text := sentence.Text
	if text == "" || !e.containsMarker(text) {
		return triples
	}

	for _, p := range e.patterns {
		m := p.Re.FindStringSubmatch(text)
		if m == nil || p.Roles.CauseGroup >= len(m) || p.Roles.EffectGroup >= len(m) {
			continue
		}

		cause := strings.TrimSpace(m[p.Roles.CauseGroup])
		effect := strings.TrimSpace(m[p.Roles.EffectGroup])
		if cause == "" || effect == "" {
			continue
		}

		triple := model.CausalTriple{
			Cause:        cause,
			Effect:       effect,
			RelationType: model.RelationCauses,
			Confidence:   PatternConfidence,
			Source:       "pattern:" + p.Name,
			Sentence:     sentence.Index,
		}
		triples = append(triples, triple)
		e.logger.Debug("pattern match", zap.String("pattern", p.Name), zap.Stringer("triple", triple))
	}

	return triples
}

func (e *CausalExtractor) containsMarker(text string) bool {
	for _, marker := range e.markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Filter keeps triples whose confidence is at least threshold, in order
func Filter(triples []model.CausalTriple, threshold float64) []model.CausalTriple {
	kept := make([]model.CausalTriple, 0, len(triples))
	for _, t := range triples {
		if t.Confidence >= threshold {
			kept = append(kept, t)
		}
	}
	return kept
}

func labelSet(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	return set
}
