// Package finance recognizes financial terms in text and buckets them into
// a fixed subject-matter taxonomy.
package finance

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

// Matcher holds the term dictionary. It is read-only after construction and
// safe to share between goroutines.
type Matcher struct {
	terms  map[string]string
	runes  map[string][]rune
	order  []string
	logger *zap.Logger
}

// NewMatcher loads the dictionary at path (filesystem, then bundled copy)
func NewMatcher(path string, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultDictionaryPath
	}
	return NewMatcherFromTerms(LoadDictionary(path, logger), logger)
}

// NewMatcherFromTerms builds a matcher over an in-memory dictionary
func NewMatcherFromTerms(terms map[string]string, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Matcher{
		terms:  make(map[string]string, len(terms)),
		runes:  make(map[string][]rune, len(terms)),
		order:  make([]string, 0, len(terms)),
		logger: logger,
	}
	for term, def := range terms {
		m.terms[term] = def
		m.runes[term] = []rune(term)
		m.order = append(m.order, term)
	}
	sort.Strings(m.order)

	return m
}

// Len returns the number of dictionary terms
func (m *Matcher) Len() int {
	return len(m.terms)
}

// Definition returns the definition of an exact dictionary term
func (m *Matcher) Definition(term string) (string, bool) {
	def, ok := m.terms[term]
	return def, ok
}

// Lookup returns every dictionary term fuzzily contained in text, mapped to
// its definition
func (m *Matcher) Lookup(text string) map[string]string {
	found := make(map[string]string)
	if text == "" {
		return found
	}

	textRunes := []rune(text)
	for _, term := range m.order {
		if fuzzyContains(textRunes, m.runes[term]) {
			found[term] = m.terms[term]
		}
	}

	return found
}

// Classify buckets terms by financial category (see package-level Classify)
func (m *Matcher) Classify(terms []string) map[Category][]string {
	return Classify(terms)
}

// Recognize runs Lookup and attaches each term's category, sorted by term
func (m *Matcher) Recognize(text string) []model.RecognizedTerm {
	found := m.Lookup(text)
	out := make([]model.RecognizedTerm, 0, len(found))
	for _, term := range m.order {
		def, ok := found[term]
		if !ok {
			continue
		}
		rt := model.RecognizedTerm{Term: term, Definition: def}
		if c, ok := CategoryOf(term); ok {
			rt.Category = string(c)
		}
		out = append(out, rt)
	}
	return out
}

// Adapt is the financial adaptation stage. It returns the triples unchanged;
// DomainCategory is not populated.
func (m *Matcher) Adapt(triples []model.CausalTriple, doc *model.Document) []model.CausalTriple {
	if len(triples) == 0 {
		m.logger.Warn("no causal triples to adapt")
		return []model.CausalTriple{}
	}

	adapted := make([]model.CausalTriple, 0, len(triples))
	adapted = append(adapted, triples...)

	m.logger.Info("financial adaptation done", zap.Int("triples", len(adapted)))
	return adapted
}
