package finance

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
)

// DefaultDictionaryPath is the logical path of the term dictionary, both on
// the filesystem and inside the binary
const DefaultDictionaryPath = "dictionary/financial_terms.txt"

//go:embed dictionary/financial_terms.txt
var bundled embed.FS

// LoadDictionary reads the dictionary at path from the filesystem, falling
// back to the bundled copy at the same logical path. A missing dictionary is
// not an error: it yields an empty map and a warning.
func LoadDictionary(path string, logger *zap.Logger) map[string]string {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err == nil {
		defer func() { _ = f.Close() }()
		terms, err := ParseDictionary(f, logger)
		if err != nil {
			logger.Error("failed to read dictionary", zap.String("path", path), zap.Error(err))
		}
		logger.Info("loaded financial dictionary", zap.String("path", path), zap.Int("terms", len(terms)))
		return terms
	}
	if !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to open dictionary", zap.String("path", path), zap.Error(err))
		return map[string]string{}
	}

	terms, err := loadBundled(path, logger)
	if err != nil {
		logger.Warn("financial dictionary not found", zap.String("path", path), zap.Error(err))
		return map[string]string{}
	}
	logger.Info("loaded bundled financial dictionary", zap.String("path", path), zap.Int("terms", len(terms)))
	return terms
}

func loadBundled(path string, logger *zap.Logger) (map[string]string, error) {
	name := strings.TrimPrefix(path, "./")
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("no bundled resource for %q: %w", path, fs.ErrNotExist)
	}

	f, err := bundled.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ParseDictionary(f, logger)
}

// ParseDictionary reads "term<TAB>definition" lines. Blank lines and lines
// starting with # are ignored; malformed lines are logged and skipped.
// Entries parsed before a read error are returned along with the error.
func ParseDictionary(r io.Reader, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	terms := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		term, definition, ok := strings.Cut(line, "\t")
		term = strings.TrimSpace(term)
		definition = strings.TrimSpace(definition)
		if !ok || term == "" || definition == "" {
			logger.Warn("invalid dictionary entry", zap.Int("line", lineNo), zap.String("entry", line))
			continue
		}

		terms[term] = definition
	}

	if err := scanner.Err(); err != nil {
		return terms, fmt.Errorf("scan dictionary: %w", err)
	}

	return terms, nil
}
