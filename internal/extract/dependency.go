package extract

import (
	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

// ExtractByDependencies emits one triple per causal-indicative edge of the
// sentence's dependency graph: the dependent is the cause, the governor the
// effect. Sentences without a graph yield nothing.
//
// Known limitation: cause and effect are the anchor tokens themselves, not
// the phrases they head.
func (e *CausalExtractor) ExtractByDependencies(sentence model.Sentence) []model.CausalTriple {
	var triples []model.CausalTriple
	if sentence.Graph == nil {
		return triples
	}

	for _, edge := range sentence.Graph.Edges() {
		if !e.labels[edge.Relation] {
			continue
		}

		cause := anchorPhrase(edge.Dependent)
		effect := anchorPhrase(edge.Governor)
		if cause == "" || effect == "" {
			continue
		}

		triple := model.CausalTriple{
			Cause:        cause,
			Effect:       effect,
			RelationType: model.RelationCauses,
			Confidence:   DependencyConfidence,
			Source:       "dependency:" + edge.Relation,
			Sentence:     sentence.Index,
		}
		triples = append(triples, triple)
		e.logger.Debug("dependency match", zap.String("relation", edge.Relation), zap.Stringer("triple", triple))
	}

	return triples
}

// anchorPhrase returns the phrase for a graph node: the token text only
func anchorPhrase(n model.Node) string {
	return n.Word
}
