package nlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

const conlluFields = 10

// token is one word line of a CoNLL-U sentence
type token struct {
	id     int
	form   string
	lemma  string
	upos   string
	head   int
	deprel string
	ner    string
	space  bool
}

// ReadCoNLLU reads parser output in CoNLL-U format. Each sentence block
// becomes a Sentence with tokens, lemmas, UPOS tags, NER tags (MISC "NER=",
// "O" when absent) and a dependency graph from HEAD/DEPREL. Root edges are
// not part of the graph. Multiword ranges and empty nodes are skipped.
//
// Damage stays inside its sentence: an edge whose head is not in the
// sentence is dropped, and a malformed token line leaves the sentence with
// its text only. Only read failures are returned.
func ReadCoNLLU(r io.Reader, logger *zap.Logger) (*model.Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc := model.NewDocument("")

	var (
		tokens []token
		text   string
		broken bool
		lineNo int
		texts  []string
	)

	flush := func() {
		defer func() {
			tokens, text, broken = nil, "", false
		}()
		if len(tokens) == 0 && !broken {
			return
		}

		var s model.Sentence
		if broken {
			if text == "" {
				text = surface(tokens)
			}
			s = model.Sentence{Index: doc.SentenceCount(), Text: text}
		} else {
			s = buildSentence(tokens, text, doc.SentenceCount(), logger)
		}
		if s.Text == "" {
			return
		}
		doc.AddSentence(s)
		texts = append(texts, s.Text)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case strings.HasPrefix(line, "#"):
			if key, value, ok := strings.Cut(strings.TrimPrefix(line, "#"), "="); ok && strings.TrimSpace(key) == "text" {
				text = strings.TrimSpace(value)
			}
		default:
			tok, skip, err := parseTokenLine(line)
			if err != nil {
				logger.Warn("dropping annotations of malformed conllu sentence",
					zap.Int("line", lineNo),
					zap.Error(err),
				)
				broken = true
				continue
			}
			if !skip {
				tokens = append(tokens, tok)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading conllu: %w", err)
	}
	flush()

	doc.Text = strings.Join(texts, "")
	return doc, nil
}

func parseTokenLine(line string) (token, bool, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != conlluFields {
		return token{}, false, fmt.Errorf("expected %d fields, got %d", conlluFields, len(fields))
	}

	// 1-2 (multiword range) and 1.1 (empty node)
	if strings.ContainsAny(fields[0], "-.") {
		return token{}, true, nil
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return token{}, false, fmt.Errorf("invalid id %q: %w", fields[0], err)
	}

	head := 0
	if fields[6] != "_" {
		head, err = strconv.Atoi(fields[6])
		if err != nil {
			return token{}, false, fmt.Errorf("invalid head %q: %w", fields[6], err)
		}
	}

	tok := token{
		id:     id,
		form:   fields[1],
		lemma:  fields[2],
		upos:   fields[3],
		head:   head,
		deprel: fields[7],
		ner:    "O",
		space:  true,
	}
	for _, item := range strings.Split(fields[9], "|") {
		key, value, _ := strings.Cut(item, "=")
		switch key {
		case "NER":
			if value != "" {
				tok.ner = value
			}
		case "SpaceAfter":
			tok.space = value != "No"
		}
	}

	return tok, false, nil
}

func buildSentence(tokens []token, text string, index int, logger *zap.Logger) model.Sentence {
	s := model.Sentence{Index: index}

	byID := make(map[int]token, len(tokens))
	for _, tok := range tokens {
		byID[tok.id] = tok
		s.AddToken(tok.form, tok.lemma, tok.upos, tok.ner)
	}

	var edges []model.Edge
	for _, tok := range tokens {
		if tok.head == 0 || tok.deprel == "_" {
			continue
		}
		gov, ok := byID[tok.head]
		if !ok {
			logger.Warn("dropping conllu edge with unknown head",
				zap.Int("sentence", index),
				zap.Int("token", tok.id),
				zap.Int("head", tok.head),
			)
			continue
		}
		edges = append(edges, model.Edge{
			Governor:  model.Node{Index: gov.id, Word: gov.form},
			Dependent: model.Node{Index: tok.id, Word: tok.form},
			Relation:  tok.deprel,
		})
	}
	s.Graph = model.NewGraph(edges)

	if text == "" {
		text = surface(tokens)
	}
	s.Text = text

	return s
}

// surface rebuilds the sentence text, honoring SpaceAfter=No
func surface(tokens []token) string {
	var b strings.Builder
	for i, tok := range tokens {
		b.WriteString(tok.form)
		if tok.space && i < len(tokens)-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// CoNLLUAnnotator treats its input text as CoNLL-U parser output
type CoNLLUAnnotator struct {
	logger *zap.Logger
}

// NewCoNLLUAnnotator creates a CoNLLUAnnotator
func NewCoNLLUAnnotator(logger *zap.Logger) *CoNLLUAnnotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoNLLUAnnotator{logger: logger}
}

// Annotate implements Annotator
func (a *CoNLLUAnnotator) Annotate(ctx context.Context, text string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadCoNLLU(strings.NewReader(text), a.logger)
}
