package model

import (
	"fmt"
	"sort"
)

// Document is one input text and the sentences the annotator produced for it
type Document struct {
	Text      string     `json:"text"`
	Sentences []Sentence `json:"sentences"`
}

// NewDocument creates an empty document for the given text
func NewDocument(text string) *Document {
	return &Document{Text: text}
}

// AddSentence appends a sentence to the document
func (d *Document) AddSentence(s Sentence) {
	d.Sentences = append(d.Sentences, s)
}

// SentenceCount returns the number of annotated sentences
func (d *Document) SentenceCount() int {
	if d == nil {
		return 0
	}
	return len(d.Sentences)
}

func (d *Document) String() string {
	return fmt.Sprintf("Document{sentences=%d}", d.SentenceCount())
}

// Sentence holds a sentence and its annotations.
// Tokens, Lemmas, POSTags and NERTags are parallel and may all be empty
// when annotation failed. Graph is nil when no dependency parse exists.
type Sentence struct {
	Text    string          `json:"text"`
	Index   int             `json:"index"`
	Tokens  []string        `json:"tokens,omitempty"`
	Lemmas  []string        `json:"lemmas,omitempty"`
	POSTags []string        `json:"pos_tags,omitempty"`
	NERTags []string        `json:"ner_tags,omitempty"`
	Graph   DependencyGraph `json:"-"`
}

// AddToken appends one annotated token to the parallel sequences
func (s *Sentence) AddToken(word, lemma, pos, ner string) {
	s.Tokens = append(s.Tokens, word)
	s.Lemmas = append(s.Lemmas, lemma)
	s.POSTags = append(s.POSTags, pos)
	s.NERTags = append(s.NERTags, ner)
}

func (s Sentence) String() string {
	return fmt.Sprintf("Sentence{index=%d, text='%s', tokens=%d}", s.Index, s.Text, len(s.Tokens))
}

// DependencyGraph is the read-only view of a sentence's dependency parse.
// Edges must be returned in a deterministic order.
type DependencyGraph interface {
	Edges() []Edge
}

// Node is a token position in a dependency graph (1-based, CoNLL style)
type Node struct {
	Index int    `json:"index"`
	Word  string `json:"word"`
}

// Edge connects a governor to its dependent with a relation label
type Edge struct {
	Governor  Node   `json:"governor"`
	Dependent Node   `json:"dependent"`
	Relation  string `json:"relation"`
}

// Graph is a slice-backed DependencyGraph
type Graph struct {
	edges []Edge
}

// NewGraph builds a graph whose edges are ordered by governor position,
// then dependent position
func NewGraph(edges []Edge) *Graph {
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Governor.Index != sorted[j].Governor.Index {
			return sorted[i].Governor.Index < sorted[j].Governor.Index
		}
		return sorted[i].Dependent.Index < sorted[j].Dependent.Index
	})
	return &Graph{edges: sorted}
}

// Edges returns the ordered edges
func (g *Graph) Edges() []Edge {
	if g == nil {
		return nil
	}
	return g.edges
}
