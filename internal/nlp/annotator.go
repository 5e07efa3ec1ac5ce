// Package nlp is the boundary to linguistic annotation: sentence splitting,
// tokens, tags and dependency parses.
package nlp

import (
	"context"
	"strings"

	"github.com/ppiankov/fincausal/internal/model"
)

// Annotator turns text into an annotated Document
type Annotator interface {
	Annotate(ctx context.Context, text string) (*model.Document, error)
}

// SentenceSplitter splits on sentence-final punctuation and newlines. It
// produces no tokens and no dependency graph, so only pattern extraction
// applies to its output.
type SentenceSplitter struct{}

// NewSentenceSplitter creates a SentenceSplitter
func NewSentenceSplitter() *SentenceSplitter {
	return &SentenceSplitter{}
}

// Annotate implements Annotator
func (s *SentenceSplitter) Annotate(ctx context.Context, text string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := model.NewDocument(text)
	for _, sentence := range SplitSentences(text) {
		doc.AddSentence(model.Sentence{Text: sentence, Index: doc.SentenceCount()})
	}
	return doc, nil
}

// SplitSentences returns the trimmed, non-empty sentences of text. The
// terminator stays with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	for _, r := range text {
		switch r {
		case '\n', '\r':
			flush()
		case '。', '！', '？', '!', '?':
			b.WriteRune(r)
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()

	return sentences
}
