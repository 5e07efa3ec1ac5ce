// Package config loads fincausal settings from a file, the bundled
// config.properties, the environment and built-in defaults.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

// DefaultPath is the configuration file looked up when none is given
const DefaultPath = "config.properties"

// EnvPrefix prefixes environment overrides (FINCAUSAL_CAUSAL_CONFIDENCE_THRESHOLD)
const EnvPrefix = "FINCAUSAL"

//go:embed config.properties
var bundled []byte

// Source tells where the loaded configuration came from
type Source string

const (
	SourceFile     Source = "file"
	SourceBundled  Source = "bundled"
	SourceDefaults Source = "defaults"
)

// Load reads the configuration at path into a fresh viper instance
func Load(path string, logger *zap.Logger) (*model.Config, error) {
	cfg, _, err := LoadInto(viper.New(), path, logger)
	return cfg, err
}

// LoadInto reads the configuration into v, which may already carry bound
// flags. Lookup order: the file at path, then the bundled config.properties,
// then the built-in defaults. Environment variables override all three. A
// file that cannot be read or parsed is logged and skipped.
func LoadInto(v *viper.Viper, path string, logger *zap.Logger) (*model.Config, Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultPath
	}

	for key, value := range model.Defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	source, err := readSource(v, path, logger)
	if err != nil {
		return nil, "", err
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}

	return cfg, source, nil
}

func readSource(v *viper.Viper, path string, logger *zap.Logger) (Source, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := merge(v, path, data); err != nil {
			logger.Warn("ignoring unparsable configuration file", zap.String("path", path), zap.Error(err))
			break
		}
		logger.Info("loaded configuration from file", zap.String("path", path))
		return SourceFile, nil
	case !errors.Is(err, os.ErrNotExist):
		logger.Warn("ignoring unreadable configuration file", zap.String("path", path), zap.Error(err))
	}

	if filepath.Base(path) == DefaultPath && len(bundled) > 0 {
		if err := merge(v, DefaultPath, bundled); err != nil {
			return "", fmt.Errorf("read bundled config: %w", err)
		}
		logger.Info("loaded bundled configuration", zap.String("path", path))
		return SourceBundled, nil
	}

	logger.Warn("no usable configuration file, using defaults", zap.String("path", path))
	return SourceDefaults, nil
}

// merge reads data by file extension. Java-style .properties files are
// parsed here; everything else goes through viper's own codecs.
func merge(v *viper.Viper, path string, data []byte) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" || ext == "properties" || ext == "props" || ext == "prop" {
		props, err := ParseProperties(data)
		if err != nil {
			return err
		}
		return v.MergeConfigMap(Nest(props))
	}

	v.SetConfigType(ext)
	return v.MergeConfig(bytes.NewReader(data))
}

// Nest turns dotted keys into nested maps: {"a.b": 1} -> {"a": {"b": 1}}
func Nest(flat map[string]string) map[string]interface{} {
	root := make(map[string]interface{})
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return root
}
