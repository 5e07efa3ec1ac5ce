package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProperties(t *testing.T) {
	in := `# comment
! also a comment

nlp.language = zh
financial.dictionary.path:dictionary/financial_terms.txt
http.user.agent=fincausal/0.1 (+https://example.com)
causal.confidence.threshold 0.65
empty.value=
bare.key
long.value=first \
  second
escaped=\u5229\u7387
expansion=${nlp.language}
`

	props, err := ParseProperties([]byte(in))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"nlp.language":                "zh",
		"financial.dictionary.path":   "dictionary/financial_terms.txt",
		"http.user.agent":             "fincausal/0.1 (+https://example.com)",
		"causal.confidence.threshold": "0.65",
		"empty.value":                 "",
		"bare.key":                    "",
		"long.value":                  "first second",
		"escaped":                     "利率",
		"expansion":                   "${nlp.language}",
	}, props)
}

func TestParseProperties_Empty(t *testing.T) {
	props, err := ParseProperties(nil)
	require.NoError(t, err)
	assert.Empty(t, props)
}
