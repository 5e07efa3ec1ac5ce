// Package preprocess normalizes raw input text before annotation.
package preprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/ppiankov/fincausal/internal/model"
)

var (
	specialCharsPattern = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\s]`)
	numberPattern       = regexp.MustCompile(`\p{Nd}+`)
	punctuationPattern  = regexp.MustCompile(`\p{P}`)
)

// Options are the four independent preprocessing toggles
type Options struct {
	KeepPunctuation    bool
	RemoveNumbers      bool
	RemoveSpecialChars bool
	NormalizeWidth     bool
}

// DefaultOptions matches the configuration defaults
func DefaultOptions() Options {
	return Options{
		KeepPunctuation:    true,
		RemoveNumbers:      false,
		RemoveSpecialChars: true,
		NormalizeWidth:     true,
	}
}

// OptionsFromConfig reads the preprocess.* settings
func OptionsFromConfig(cfg model.PreprocessConfig) Options {
	return Options{
		KeepPunctuation:    cfg.KeepPunctuation(),
		RemoveNumbers:      cfg.RemoveNumbers(),
		RemoveSpecialChars: cfg.RemoveSpecialChars(),
		NormalizeWidth:     cfg.NormalizeWidth(),
	}
}

// Preprocessor applies the enabled transformations in a fixed order:
// width normalization, special-character removal, digit removal,
// punctuation removal.
type Preprocessor struct {
	opts   Options
	logger *zap.Logger
}

// New creates a preprocessor
func New(opts Options, logger *zap.Logger) *Preprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preprocessor{opts: opts, logger: logger}
}

// Preprocess returns the normalized text. Empty input yields "".
func (p *Preprocessor) Preprocess(text string) string {
	if text == "" {
		p.logger.Warn("input text is empty")
		return ""
	}

	p.logger.Debug("preprocessing text", zap.Int("chars", utf8.RuneCountInString(text)))

	out := text
	if p.opts.NormalizeWidth {
		out = ToFullWidth(out)
	}
	if p.opts.RemoveSpecialChars {
		out = specialCharsPattern.ReplaceAllString(out, " ")
	}
	if p.opts.RemoveNumbers {
		out = numberPattern.ReplaceAllString(out, " ")
	}
	if !p.opts.KeepPunctuation {
		out = punctuationPattern.ReplaceAllString(out, " ")
	}

	p.logger.Debug("preprocessing done", zap.Int("chars", utf8.RuneCountInString(out)))
	return out
}

// ToFullWidth maps the printable ASCII range '!'..'~' to its full-width
// forms (U+FF01..U+FF5E). Every other rune, including the space, is kept.
func ToFullWidth(text string) string {
	return strings.Map(func(r rune) rune {
		if r < '!' || r > '~' {
			return r
		}
		if wide := width.LookupRune(r).Wide(); wide != 0 {
			return wide
		}
		return r
	}, text)
}
