package model

import "time"

// Config holds every setting the pipeline and CLI read.
// Keys mirror the dotted property names (e.g. causal.confidence.threshold).
type Config struct {
	NLP        NLPConfig        `yaml:"nlp" mapstructure:"nlp"`
	Causal     CausalConfig     `yaml:"causal" mapstructure:"causal"`
	Preprocess PreprocessConfig `yaml:"preprocess" mapstructure:"preprocess"`
	Financial  FinancialConfig  `yaml:"financial" mapstructure:"financial"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// NLPConfig selects the annotation language
type NLPConfig struct {
	Language string `yaml:"language" mapstructure:"language"`
}

// CausalConfig controls triple filtering
type CausalConfig struct {
	Confidence struct {
		Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	} `yaml:"confidence" mapstructure:"confidence"`
}

// PreprocessConfig holds the four text normalization toggles
type PreprocessConfig struct {
	Keep struct {
		Punctuation bool `yaml:"punctuation" mapstructure:"punctuation"`
	} `yaml:"keep" mapstructure:"keep"`
	Remove struct {
		Numbers bool `yaml:"numbers" mapstructure:"numbers"`
		Special struct {
			Chars bool `yaml:"chars" mapstructure:"chars"`
		} `yaml:"special" mapstructure:"special"`
	} `yaml:"remove" mapstructure:"remove"`
	Normalize struct {
		To struct {
			Chinese bool `yaml:"chinese" mapstructure:"chinese"`
		} `yaml:"to" mapstructure:"to"`
	} `yaml:"normalize" mapstructure:"normalize"`
}

// KeepPunctuation reports preprocess.keep.punctuation
func (p PreprocessConfig) KeepPunctuation() bool { return p.Keep.Punctuation }

// RemoveNumbers reports preprocess.remove.numbers
func (p PreprocessConfig) RemoveNumbers() bool { return p.Remove.Numbers }

// RemoveSpecialChars reports preprocess.remove.special.chars
func (p PreprocessConfig) RemoveSpecialChars() bool { return p.Remove.Special.Chars }

// NormalizeWidth reports preprocess.normalize.to.chinese
func (p PreprocessConfig) NormalizeWidth() bool { return p.Normalize.To.Chinese }

// FinancialConfig locates the term dictionary
type FinancialConfig struct {
	Dictionary struct {
		Path string `yaml:"path" mapstructure:"path"`
	} `yaml:"dictionary" mapstructure:"dictionary"`
}

// BatchConfig controls concurrent processing of many inputs
type BatchConfig struct {
	Workers  int `yaml:"workers" mapstructure:"workers"`
	Requests struct {
		Per struct {
			Second float64 `yaml:"second" mapstructure:"second"`
		} `yaml:"per" mapstructure:"per"`
	} `yaml:"requests" mapstructure:"requests"`
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// HTTPConfig configures fetching of URL inputs
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	User    struct {
		Agent string `yaml:"agent" mapstructure:"agent"`
	} `yaml:"user" mapstructure:"user"`
	Max struct {
		Bytes int64 `yaml:"bytes" mapstructure:"bytes"`
	} `yaml:"max" mapstructure:"max"`
	Proxy   string `yaml:"proxy" mapstructure:"proxy"` // Empty uses HTTP_PROXY / HTTPS_PROXY
	Retries int    `yaml:"retries" mapstructure:"retries"`
}

// CacheConfig configures the fetch cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // json or markdown
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// StoreConfig locates the optional SQLite result store
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig sets the logger level
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Defaults keyed by property name. Loaders register these with viper.
var Defaults = map[string]interface{}{
	"nlp.language":                    "zh",
	"causal.confidence.threshold":     0.5,
	"preprocess.keep.punctuation":     true,
	"preprocess.remove.numbers":       false,
	"preprocess.remove.special.chars": true,
	"preprocess.normalize.to.chinese": true,
	"financial.dictionary.path":       "dictionary/financial_terms.txt",
	"batch.workers":                   4,
	"batch.requests.per.second":       2.0,
	"batch.burst":                     5,
	"http.timeout":                    30 * time.Second,
	"http.user.agent":                 "fincausal/0.1 (+https://github.com/ppiankov/fincausal)",
	"http.max.bytes":                  int64(2_000_000),
	"http.proxy":                      "",
	"http.retries":                    3,
	"cache.enabled":                   true,
	"cache.dir":                       ".fincausal-cache",
	"cache.ttl":                       24 * time.Hour,
	"output.format":                   "json",
	"output.verbose":                  false,
	"store.path":                      "",
	"log.level":                       "info",
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.NLP.Language = "zh"
	cfg.Causal.Confidence.Threshold = 0.5
	cfg.Preprocess.Keep.Punctuation = true
	cfg.Preprocess.Remove.Numbers = false
	cfg.Preprocess.Remove.Special.Chars = true
	cfg.Preprocess.Normalize.To.Chinese = true
	cfg.Financial.Dictionary.Path = "dictionary/financial_terms.txt"
	cfg.Batch.Workers = 4
	cfg.Batch.Requests.Per.Second = 2.0
	cfg.Batch.Burst = 5
	cfg.HTTP.Timeout = 30 * time.Second
	cfg.HTTP.User.Agent = "fincausal/0.1 (+https://github.com/ppiankov/fincausal)"
	cfg.HTTP.Max.Bytes = 2_000_000
	cfg.HTTP.Retries = 3
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = ".fincausal-cache"
	cfg.Cache.TTL = 24 * time.Hour
	cfg.Output.Format = "json"
	cfg.Log.Level = "info"
	return cfg
}
