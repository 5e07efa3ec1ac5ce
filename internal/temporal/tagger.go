// Package temporal labels causal triples with the time ordering of cause and
// effect, using marker words and a few positional patterns.
package temporal

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

// Marker maps a marker word to the relation it signals
type Marker struct {
	Word     string
	Relation model.TemporalRelation
}

// DefaultMarkers returns the marker table in lookup order.
// 同时 signals SIMULTANEOUS, not DURING.
func DefaultMarkers() []Marker {
	return []Marker{
		{"过程中", model.TemporalDuring},
		{"之前", model.TemporalBefore},
		{"以前", model.TemporalBefore},
		{"先于", model.TemporalBefore},
		{"早于", model.TemporalBefore},
		{"预先", model.TemporalBefore},
		{"之后", model.TemporalAfter},
		{"以后", model.TemporalAfter},
		{"后于", model.TemporalAfter},
		{"晚于", model.TemporalAfter},
		{"随后", model.TemporalAfter},
		{"后来", model.TemporalAfter},
		{"期间", model.TemporalDuring},
		{"当时", model.TemporalDuring},
		{"正在", model.TemporalDuring},
		{"同时", model.TemporalSimultaneous},
		{"开始", model.TemporalStarts},
		{"起初", model.TemporalStarts},
		{"最初", model.TemporalStarts},
		{"结束", model.TemporalEnds},
		{"最终", model.TemporalEnds},
		{"最后", model.TemporalEnds},
		{"随着", model.TemporalWith},
		{"伴随", model.TemporalWith},
		{"先", model.TemporalBefore},
	}
}

// DefaultPatterns returns the positional patterns tried after the markers
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`在(.+?)之前`),
		regexp.MustCompile(`在(.+?)之后`),
		regexp.MustCompile(`在(.+?)期间`),
		regexp.MustCompile(`从(.+?)开始`),
		regexp.MustCompile(`到(.+?)结束`),
		regexp.MustCompile(`先(.+?)后(.+?)`),
		regexp.MustCompile(`在(.+?)之前，(.+)`),
		regexp.MustCompile(`(.+?)之后，(.+)`),
		regexp.MustCompile(`随着(.+?)，(.+)`),
	}
}

// Tagger assigns a TemporalRelation to every triple it sees
type Tagger struct {
	markers  []Marker
	patterns []*regexp.Regexp
	logger   *zap.Logger
}

// Option configures a Tagger
type Option func(*Tagger)

// WithMarkers replaces the marker table
func WithMarkers(markers []Marker) Option {
	return func(t *Tagger) { t.markers = markers }
}

// WithPatterns replaces the positional patterns
func WithPatterns(patterns []*regexp.Regexp) Option {
	return func(t *Tagger) { t.patterns = patterns }
}

// NewTagger creates a tagger with the default tables
func NewTagger(logger *zap.Logger, opts ...Option) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tagger{
		markers:  DefaultMarkers(),
		patterns: DefaultPatterns(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.markers = longestFirst(t.markers)
	return t
}

// Tag labels the triples in place and returns the same slice. Markers are
// checked on the cause and then the effect before any positional pattern is
// tried; when nothing matches the triple is labelled AFTER.
func (t *Tagger) Tag(triples []model.CausalTriple, doc *model.Document) []model.CausalTriple {
	if len(triples) == 0 {
		t.logger.Warn("no causal triples to tag")
		return []model.CausalTriple{}
	}

	for i := range triples {
		triple := &triples[i]
		if rel, ok := t.tripleRelation(triple); ok {
			triple.SetTemporalRelation(rel)
		}
		if triple.TemporalRelation == nil {
			triple.SetTemporalRelation(model.TemporalAfter)
		}
	}

	t.logger.Info("tagged temporal relations",
		zap.Int("triples", len(triples)),
		zap.Int("sentences", doc.SentenceCount()),
	)
	return triples
}

func (t *Tagger) tripleRelation(triple *model.CausalTriple) (model.TemporalRelation, bool) {
	for _, text := range []string{triple.Cause, triple.Effect} {
		if rel, ok := t.markerRelation(text); ok {
			return rel, true
		}
	}
	for _, text := range []string{triple.Cause, triple.Effect} {
		if rel, ok := t.patternRelation(text); ok {
			return rel, true
		}
	}
	return "", false
}

// Relation finds the relation signalled by a single text: the first marker
// it contains, else the first positional pattern that matches.
func (t *Tagger) Relation(text string) (model.TemporalRelation, bool) {
	if rel, ok := t.markerRelation(text); ok {
		return rel, true
	}
	return t.patternRelation(text)
}

func (t *Tagger) markerRelation(text string) (model.TemporalRelation, bool) {
	if text == "" {
		return "", false
	}
	for _, m := range t.markers {
		if strings.Contains(text, m.Word) {
			return m.Relation, true
		}
	}
	return "", false
}

func (t *Tagger) patternRelation(text string) (model.TemporalRelation, bool) {
	if text == "" {
		return "", false
	}
	for _, re := range t.patterns {
		if matched := re.FindString(text); matched != "" {
			return relationOf(matched), true
		}
	}
	return "", false
}

func relationOf(matched string) model.TemporalRelation {
	switch {
	case strings.Contains(matched, "之前"):
		return model.TemporalBefore
	case strings.Contains(matched, "之后"):
		return model.TemporalAfter
	case strings.Contains(matched, "随着"):
		return model.TemporalWith
	default:
		return model.TemporalUnknown
	}
}

// longestFirst orders markers by rune length, longest first, keeping table
// order for equal lengths so 先于 is found before 先
func longestFirst(markers []Marker) []Marker {
	sorted := make([]Marker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Word) > utf8.RuneCountInString(sorted[j].Word)
	})
	return sorted
}
