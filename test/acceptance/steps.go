package acceptance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/ppiankov/fincausal/internal/extract"
	"github.com/ppiankov/fincausal/internal/finance"
	"github.com/ppiankov/fincausal/internal/model"
	"github.com/ppiankov/fincausal/internal/pipeline"
	"github.com/ppiankov/fincausal/internal/temporal"
)

// TestContext holds state between steps of one scenario
type TestContext struct {
	pipeline   *pipeline.Pipeline
	triples    []model.CausalTriple
	terms      map[string]string
	matcher    *finance.Matcher
	found      map[string]string
	categories map[finance.Category][]string
	timeExprs  []string
}

func (tc *TestContext) defaultPipeline() error {
	tc.pipeline = pipeline.New(model.DefaultConfig())
	return nil
}

func (tc *TestContext) process(text string) error {
	if tc.pipeline == nil {
		return fmt.Errorf("no pipeline configured")
	}
	triples, err := tc.pipeline.Process(context.Background(), text)
	if err != nil {
		return err
	}
	tc.triples = triples
	return nil
}

func (tc *TestContext) tripleCount(n int) error {
	if len(tc.triples) != n {
		return fmt.Errorf("expected %d triples, got %d: %v", n, len(tc.triples), tc.triples)
	}
	return nil
}

func (tc *TestContext) triple(n int) (model.CausalTriple, error) {
	if n < 1 || n > len(tc.triples) {
		return model.CausalTriple{}, fmt.Errorf("no triple %d (have %d)", n, len(tc.triples))
	}
	return tc.triples[n-1], nil
}

func (tc *TestContext) tripleCauseEffect(n int, cause, effect string) error {
	t, err := tc.triple(n)
	if err != nil {
		return err
	}
	if t.Cause != cause || t.Effect != effect {
		return fmt.Errorf("expected %s -> %s, got %s -> %s", cause, effect, t.Cause, t.Effect)
	}
	return nil
}

func (tc *TestContext) tripleRelationConfidence(n int, relation string, confidence float64) error {
	t, err := tc.triple(n)
	if err != nil {
		return err
	}
	if string(t.RelationType) != relation {
		return fmt.Errorf("expected relation %s, got %s", relation, t.RelationType)
	}
	if math.Abs(t.Confidence-confidence) > 1e-9 {
		return fmt.Errorf("expected confidence %.2f, got %.2f", confidence, t.Confidence)
	}
	return nil
}

func (tc *TestContext) tripleTemporal(n int, relation string) error {
	t, err := tc.triple(n)
	if err != nil {
		return err
	}
	if string(t.Temporal()) != relation {
		return fmt.Errorf("expected temporal relation %s, got %q", relation, t.Temporal())
	}
	return nil
}

func (tc *TestContext) tripleNoCategory(n int) error {
	t, err := tc.triple(n)
	if err != nil {
		return err
	}
	if t.DomainCategory != nil {
		return fmt.Errorf("expected no domain category, got %q", *t.DomainCategory)
	}
	return nil
}

func (tc *TestContext) someTriple(cause, effect string) error {
	for _, t := range tc.triples {
		if t.Cause == cause && t.Effect == effect {
			return nil
		}
	}
	return fmt.Errorf("no triple %s -> %s in %v", cause, effect, tc.triples)
}

func (tc *TestContext) triplesWithConfidences(list string) error {
	tc.triples = nil
	for i, field := range strings.Split(list, ",") {
		c, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return fmt.Errorf("confidence %q: %w", field, err)
		}
		tc.triples = append(tc.triples, model.CausalTriple{
			Cause:        fmt.Sprintf("cause%d", i),
			Effect:       fmt.Sprintf("effect%d", i),
			RelationType: model.RelationCauses,
			Confidence:   c,
		})
	}
	return nil
}

func (tc *TestContext) filter(threshold float64) error {
	tc.triples = extract.Filter(tc.triples, threshold)
	return nil
}

func (tc *TestContext) allAtLeast(threshold float64) error {
	for _, t := range tc.triples {
		if t.Confidence < threshold {
			return fmt.Errorf("triple %s kept with confidence %.2f < %.2f", t.Cause, t.Confidence, threshold)
		}
	}
	return nil
}

func (tc *TestContext) filterSubset(threshold float64) error {
	kept := make(map[string]bool, len(tc.triples))
	for _, t := range tc.triples {
		kept[t.Cause] = true
	}
	higher := extract.Filter(tc.triples, threshold)
	if len(higher) > len(tc.triples) {
		return fmt.Errorf("threshold %.2f kept more triples (%d) than before (%d)", threshold, len(higher), len(tc.triples))
	}
	for _, t := range higher {
		if !kept[t.Cause] {
			return fmt.Errorf("triple %s appeared at a higher threshold", t.Cause)
		}
	}
	return nil
}

func (tc *TestContext) tripleWith(cause, effect string) error {
	tc.triples = append(tc.triples, model.CausalTriple{
		Cause:        cause,
		Effect:       effect,
		RelationType: model.RelationCauses,
		Confidence:   extract.PatternConfidence,
	})
	return nil
}

func (tc *TestContext) tag() error {
	tagger := temporal.NewTagger(nil)
	tc.triples = tagger.Tag(tc.triples, &model.Document{})
	return nil
}

func (tc *TestContext) timeExpressions(text string) error {
	tc.timeExprs = temporal.TimeExpressions(text)
	return nil
}

func (tc *TestContext) timeExpressionsAre(list string) error {
	got := strings.Join(tc.timeExprs, ", ")
	if got != list {
		return fmt.Errorf("expected time expressions %q, got %q", list, got)
	}
	return nil
}

func (tc *TestContext) parseDictionary(table *godog.Table) error {
	var b strings.Builder
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		b.WriteString(strings.ReplaceAll(row.Cells[0].Value, `\t`, "\t"))
		b.WriteString("\n")
	}

	terms, err := finance.ParseDictionary(strings.NewReader(b.String()), nil)
	if err != nil {
		return err
	}
	tc.terms = terms
	return nil
}

func (tc *TestContext) dictionarySize(n int) error {
	if len(tc.terms) != n {
		return fmt.Errorf("expected %d terms, got %d: %v", n, len(tc.terms), tc.terms)
	}
	return nil
}

func (tc *TestContext) termMeans(term, definition string) error {
	if got, ok := tc.terms[term]; !ok || got != definition {
		return fmt.Errorf("expected %s to mean %q, got %q", term, definition, got)
	}
	return nil
}

func (tc *TestContext) financialDictionary(table *godog.Table) error {
	terms := make(map[string]string)
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		terms[row.Cells[0].Value] = row.Cells[1].Value
	}
	tc.matcher = finance.NewMatcherFromTerms(terms, nil)
	return nil
}

func (tc *TestContext) lookup(text string) error {
	if tc.matcher == nil {
		return fmt.Errorf("no dictionary configured")
	}
	tc.found = tc.matcher.Lookup(text)
	return nil
}

func (tc *TestContext) foundTerm(term string) error {
	if _, ok := tc.found[term]; !ok {
		return fmt.Errorf("term %s not found in %v", term, tc.found)
	}
	return nil
}

func (tc *TestContext) classify(list string) error {
	var terms []string
	for _, field := range strings.Split(list, ",") {
		terms = append(terms, strings.TrimSpace(field))
	}
	tc.categories = finance.Classify(terms)
	return nil
}

func (tc *TestContext) categoryContains(category, term string) error {
	for _, t := range tc.categories[finance.Category(category)] {
		if t == term {
			return nil
		}
	}
	return fmt.Errorf("category %s does not contain %s: %v", category, term, tc.categories[finance.Category(category)])
}

func (tc *TestContext) noCategoryContains(term string) error {
	for category, terms := range tc.categories {
		for _, t := range terms {
			if t == term {
				return fmt.Errorf("term %s classified as %s", term, category)
			}
		}
	}
	return nil
}

func (tc *TestContext) distanceIs(a, b string, want int) error {
	if got := finance.Distance(a, b); got != want {
		return fmt.Errorf("distance(%q, %q) = %d, want %d", a, b, got, want)
	}
	return nil
}

func (tc *TestContext) distanceSymmetric(a, b string) error {
	if ab, ba := finance.Distance(a, b), finance.Distance(b, a); ab != ba {
		return fmt.Errorf("distance not symmetric: %d vs %d", ab, ba)
	}
	return nil
}

func (tc *TestContext) distanceIdentity(a string) error {
	if d := finance.Distance(a, a); d != 0 {
		return fmt.Errorf("distance(%q, %q) = %d", a, a, d)
	}
	return nil
}

func (tc *TestContext) triangle(a, b, c string) error {
	ab, bc, ac := finance.Distance(a, b), finance.Distance(b, c), finance.Distance(a, c)
	if ac > ab+bc {
		return fmt.Errorf("triangle inequality violated: d(a,c)=%d > d(a,b)+d(b,c)=%d", ac, ab+bc)
	}
	return nil
}
