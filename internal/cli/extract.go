package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
	"github.com/ppiankov/fincausal/internal/nlp"
	"github.com/ppiankov/fincausal/internal/pipeline"
)

var (
	inlineText string
	outJSON    string
	outMD      string
	outTriples string
	conllu     bool
	timeout    time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [source]",
	Short: "Extract causal triples from one text, file, or URL",
	Long: `Extract runs the full pipeline on one input:
- Normalize the text and split it into sentences
- Match causal patterns (and dependency labels for CoNLL-U input)
- Tag every triple with a temporal relation
- Recognize financial terms and time expressions

The source is a file (.txt, .md, .conllu, .html), an http(s) URL, or "-"
for standard input. Use --text to pass the text inline.

Example:
  fincausal extract --text "利率上升导致经济放缓"
  fincausal extract news.html --json report.json --md report.md
  fincausal extract parsed.conllu --out triples.json
  cat news.txt | fincausal extract - --db results.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&inlineText, "text", "t", "", "text to analyze instead of a source")
	extractCmd.Flags().StringVar(&outJSON, "json", "", "output report JSON path")
	extractCmd.Flags().StringVar(&outMD, "md", "", "output Markdown report path")
	extractCmd.Flags().StringVarP(&outTriples, "out", "o", "", "output path for the triple array")
	extractCmd.Flags().BoolVar(&conllu, "conllu", false, "treat the input as CoNLL-U parser output whatever its extension")
	extractCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	extractCmd.Flags().String("format", "", "stdout format when no output path is given (json, markdown)")
	bindFlag(extractCmd, "output.format", "format")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if inlineText == "" && len(args) == 0 {
		return fmt.Errorf("give a source or --text")
	}
	if inlineText != "" && len(args) > 0 {
		return fmt.Errorf("--text and a source are mutually exclusive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	p, err := newPipeline(settings, logger)
	if err != nil {
		return err
	}

	var report *model.Report
	switch {
	case conllu:
		var in *pipeline.Input
		if in, err = readCoNLLU(ctx, cmd, args); err == nil {
			report, err = p.AnalyzeInput(ctx, in)
		}
	case inlineText != "":
		report, err = p.AnalyzeInput(ctx, &pipeline.Input{Subject: "text", Source: "text", Text: inlineText})
	default:
		report, err = p.Analyze(ctx, args[0])
	}
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	if err := writeOutputs(cmd, p, report); err != nil {
		return err
	}

	rec, err := openRecorder(ctx, settings, "extract")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := rec.save(ctx, report); err != nil {
		_ = rec.close(ctx)
		return fmt.Errorf("store report: %w", err)
	}
	if err := rec.close(ctx); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if rec != nil {
		fmt.Fprintf(os.Stderr, "✓ Stored as run %s\n", rec.runID())
	}

	logger.Debug("extract done", zap.String("subject", report.Subject), zap.Int("triples", len(report.Triples)))
	return nil
}

// readCoNLLU reads --text, stdin, or a file of any extension as CoNLL-U
func readCoNLLU(ctx context.Context, cmd *cobra.Command, args []string) (*pipeline.Input, error) {
	in := &pipeline.Input{Subject: "text", Source: "text", Text: inlineText}
	if inlineText == "" {
		var (
			data []byte
			err  error
		)
		in.Source = args[0]
		if args[0] == "-" {
			in.Subject = "stdin"
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			in.Subject = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		in.Text = string(data)
	}

	doc, err := nlp.NewCoNLLUAnnotator(logger).Annotate(ctx, in.Text)
	if err != nil {
		return nil, err
	}
	in.Document = doc
	in.Text = doc.Text
	return in, nil
}

// writeOutputs writes the requested files, or prints to stdout when no
// output path was given
func writeOutputs(cmd *cobra.Command, p *pipeline.Pipeline, report *model.Report) error {
	renderer := pipeline.NewRenderer(settings.Output.Verbose)

	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	if outTriples != "" {
		if err := p.OutputResults(report.Triples, outTriples); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}

	if outJSON == "" && outMD == "" && outTriples == "" {
		switch settings.Output.Format {
		case "markdown", "md":
			fmt.Fprint(cmd.OutOrStdout(), renderer.Markdown(report))
		case "json", "":
			if err := pipeline.WriteTriples(cmd.OutOrStdout(), report.Triples); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown output format %q", settings.Output.Format)
		}
	}

	if settings.Output.Verbose || outJSON != "" || outMD != "" || outTriples != "" {
		renderer.RenderSummary(cmd.ErrOrStderr(), report)
	}
	return nil
}
