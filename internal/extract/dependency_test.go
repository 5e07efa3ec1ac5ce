package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fincausal/internal/model"
)

// stubGraph returns its edges as given
type stubGraph []model.Edge

func (g stubGraph) Edges() []model.Edge { return g }

func node(i int, w string) model.Node { return model.Node{Index: i, Word: w} }

func TestExtractByDependencies(t *testing.T) {
	s := model.Sentence{
		Text:  "因为降息股价上涨",
		Index: 2,
		Graph: model.NewGraph([]model.Edge{
			{Governor: node(4, "上涨"), Dependent: node(3, "股价"), Relation: "nsubj"},
			{Governor: node(4, "上涨"), Dependent: node(2, "降息"), Relation: "conj:因为"},
			{Governor: node(2, "降息"), Dependent: node(1, "因为"), Relation: "mark"},
		}),
	}

	triples := NewCausalExtractor().ExtractByDependencies(s)
	require.Len(t, triples, 2)

	// Governor position 2 sorts before governor position 4
	assert.Equal(t, "因为", triples[0].Cause)
	assert.Equal(t, "降息", triples[0].Effect)
	assert.Equal(t, "dependency:mark", triples[0].Source)

	assert.Equal(t, "降息", triples[1].Cause)
	assert.Equal(t, "上涨", triples[1].Effect)
	assert.Equal(t, 0.6, triples[1].Confidence)
	assert.Equal(t, model.RelationCauses, triples[1].RelationType)
	assert.Equal(t, 2, triples[1].Sentence)
}

func TestExtractByDependencies_NoGraph(t *testing.T) {
	assert.Empty(t, NewCausalExtractor().ExtractByDependencies(model.Sentence{Text: "利率上升"}))
}

func TestExtractByDependencies_EmptyGraphAndBlankWords(t *testing.T) {
	e := NewCausalExtractor()

	assert.Empty(t, e.ExtractByDependencies(model.Sentence{Graph: stubGraph(nil)}))
	assert.Empty(t, e.ExtractByDependencies(model.Sentence{Graph: stubGraph{
		{Governor: node(2, ""), Dependent: node(1, "因为"), Relation: "mark"},
	}}))
}

func TestExtractByDependencies_CustomLabels(t *testing.T) {
	g := stubGraph{
		{Governor: node(2, "下跌"), Dependent: node(1, "加息"), Relation: "advcl"},
		{Governor: node(2, "下跌"), Dependent: node(3, "了"), Relation: "advmod"},
	}

	triples := NewCausalExtractor(WithDependencyLabels([]string{"advcl"})).
		ExtractByDependencies(model.Sentence{Graph: g})
	require.Len(t, triples, 1)
	assert.Equal(t, "加息", triples[0].Cause)
	assert.Equal(t, "下跌", triples[0].Effect)
}

func TestAnchorPhrase_TokenOnly(t *testing.T) {
	assert.Equal(t, "利率", anchorPhrase(node(1, "利率")))
}
