package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fincausal/internal/config"
	"github.com/ppiankov/fincausal/internal/model"
)

var initPath string

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage fincausal configuration",
	Long: `Manage fincausal configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (FINCAUSAL_*, e.g. FINCAUSAL_CAUSAL_CONFIDENCE_THRESHOLD)
3. Config file (--config, else ./config.properties, else the bundled copy)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, env vars and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		errOut := cmd.ErrOrStderr()
		switch source {
		case config.SourceFile:
			fmt.Fprintf(errOut, "Configuration file: %s\n\n", configPath())
		case config.SourceBundled:
			fmt.Fprintf(errOut, "Configuration: bundled %s\n\n", config.DefaultPath)
		default:
			fmt.Fprintf(errOut, "No configuration file found (using defaults)\n\n")
		}

		data, err := configYAML(settings)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(out, "  Current Configuration")
		fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
		fmt.Fprintln(out)
		fmt.Fprintln(out, string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Create a YAML configuration file with every option at its default value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(initPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'fincausal config show' to view it, or delete it first to recreate", initPath)
		}

		data, err := configYAML(model.DefaultConfig())
		if err != nil {
			return err
		}

		var b bytes.Buffer
		b.WriteString("# fincausal configuration file\n")
		b.WriteString("#\n")
		b.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
		b.WriteString("#   1. CLI flags\n")
		b.WriteString("#   2. Environment variables (FINCAUSAL_*)\n")
		b.WriteString("#   3. This config file (pass it with --config)\n")
		b.WriteString("#   4. Built-in defaults\n\n")
		b.Write(data)

		if dir := filepath.Dir(initPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("error creating config directory: %w", err)
			}
		}
		if err := os.WriteFile(initPath, b.Bytes(), 0o644); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", initPath)
		fmt.Fprintf(out, "\nTo use it:\n")
		fmt.Fprintf(out, "  fincausal --config %s config show\n\n", initPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&initPath, "path", "fincausal.yaml", "where to write the file")
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath
}

// durationKeys are the config fields holding a time.Duration
var durationKeys = map[string]bool{"timeout": true, "ttl": true}

// configYAML marshals cfg with durations written as "30s" instead of
// nanosecond integers
func configYAML(cfg *model.Config) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(cfg); err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	humanizeDurations(&node)

	data, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return data, nil
}

func humanizeDurations(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if durationKeys[key.Value] && value.Kind == yaml.ScalarNode && value.Tag == "!!int" {
				if ns, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
					value.Value = time.Duration(ns).String()
					value.Tag = "!!str"
				}
			}
		}
	}
	for _, child := range n.Content {
		humanizeDurations(child)
	}
}
