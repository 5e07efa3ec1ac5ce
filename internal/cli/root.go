package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/fincausal/internal/config"
	"github.com/ppiankov/fincausal/internal/model"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile  string
	verbose  bool
	noCache  bool
	settings *model.Config
	source   config.Source
	logger   = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fincausal",
	Short: "fincausal - Chinese financial causal relation extraction",
	Long: `fincausal extracts cause -> effect statements from Chinese financial
text with hand-written patterns and dependency labels, tags each one with a
temporal relation, and recognizes financial terms from a dictionary.

Inputs can be plain text, CoNLL-U parser output, HTML files, or URLs.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of fincausal.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fincausal %s\n", Version)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./config.properties, then the bundled copy)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
	flags.BoolVar(&noCache, "no-cache", false, "disable the fetch cache (force fresh fetch)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("dict", "", "financial dictionary path")
	flags.Float64("threshold", 0, "minimum confidence of kept triples")
	flags.String("db", "", "SQLite result store path (empty: do not store)")

	// Bind flags to viper
	bindFlag(rootCmd, "output.verbose", "verbose")
	bindFlag(rootCmd, "log.level", "log-level")
	bindFlag(rootCmd, "financial.dictionary.path", "dict")
	bindFlag(rootCmd, "causal.confidence.threshold", "threshold")
	bindFlag(rootCmd, "store.path", "db")

	rootCmd.AddCommand(versionCmd)
}

// bindFlag binds a flag of cmd (persistent or local) to a config key
func bindFlag(cmd *cobra.Command, key, name string) {
	flag := cmd.PersistentFlags().Lookup(name)
	if flag == nil {
		flag = cmd.Flags().Lookup(name)
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// initConfig loads configuration (file, bundled copy, env, flags) and
// builds the logger
func initConfig(cmd *cobra.Command, args []string) error {
	// load warnings are replayed once the configured logger exists
	core, early := observer.New(zapcore.WarnLevel)
	cfg, src, err := config.LoadInto(viper.GetViper(), cfgFile, zap.New(core))
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	l, err := newLogger(cfg.Log.Level, verbose)
	if err != nil {
		return err
	}

	settings, source, logger = cfg, src, l
	for _, e := range early.All() {
		if ce := logger.Check(e.Level, e.Message); ce != nil {
			ce.Write(e.Context...)
		}
	}
	logger.Debug("configuration loaded", zap.String("source", string(source)), zap.String("path", cfgFile))
	return nil
}

// newLogger builds a JSON production logger, or a console development
// logger at debug level when verbose is set
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
