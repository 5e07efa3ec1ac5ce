package config

import (
	"github.com/magiconair/properties"
)

// ParseProperties decodes java.util.Properties text: "=", ":" or whitespace
// separators, bare keys, line continuations and \uXXXX escapes. ${key}
// references are left as written.
func ParseProperties(data []byte) (map[string]string, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}
