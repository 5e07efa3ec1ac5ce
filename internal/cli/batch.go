package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/pipeline"
	"github.com/ppiankov/fincausal/internal/worker"
)

var (
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract causal triples from many sources in parallel",
	Long: `Batch processes many inputs concurrently:
- Read sources from the input file (one file path or URL per line)
- Process them in parallel with a bounded worker pool
- Throttle URL fetches per host
- Write a JSON and a Markdown report per source

Example:
  fincausal batch sources.txt
  fincausal batch sources.txt --workers 8 --output-dir ./reports
  fincausal batch urls.txt --rps 1 --burst 2 --db results.db`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("workers", 0, "number of concurrent workers (default from batch.workers)")
	batchCmd.Flags().Float64("rps", 0, "URL requests per second per host (default from batch.requests.per.second)")
	batchCmd.Flags().Int("burst", 0, "URL request burst per host (default from batch.burst)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./fincausal-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	bindFlag(batchCmd, "batch.workers", "workers")
	bindFlag(batchCmd, "batch.requests.per.second", "rps")
	bindFlag(batchCmd, "batch.burst", "burst")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg := settings
	errOut := cmd.ErrOrStderr()

	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "  fincausal Batch Processing\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Input file:   %s\n", file)
	fmt.Fprintf(errOut, "  Workers:      %d\n", cfg.Batch.Workers)
	fmt.Fprintf(errOut, "  Rate:         %.2f req/s per host (burst %d)\n", cfg.Batch.Requests.Per.Second, cfg.Batch.Burst)
	fmt.Fprintf(errOut, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(errOut, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(errOut, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	limiter := worker.NewLimiter(cfg.Batch.Requests.Per.Second, cfg.Batch.Burst)
	processor := worker.NewBatchProcessor(p, cfg.Batch.Workers, limiter, logger.Named("batch"))

	fmt.Fprintf(errOut, "⚙️  Processing sources with %d workers...\n\n", cfg.Batch.Workers)
	outcomes, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	rec, err := openRecorder(ctx, cfg, "batch")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.Verbose)
	used := make(map[string]int)
	successCount, failureCount, tripleCount := 0, 0, 0

	for _, outcome := range outcomes {
		if outcome.Error != nil {
			failureCount++
			fmt.Fprintf(errOut, "✗ %s: %v\n", outcome.Source, outcome.Error)
			continue
		}

		report := outcome.Report
		slug := uniqueSlug(used, sanitizeFilename(report.Subject))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(errOut, "✗ %s: failed to write JSON: %v\n", outcome.Source, err)
			continue
		}
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(errOut, "✗ %s: failed to write Markdown: %v\n", outcome.Source, err)
			continue
		}
		if err := rec.save(ctx, report); err != nil {
			logger.Warn("could not store report", zap.String("source", outcome.Source), zap.Error(err))
		}

		successCount++
		tripleCount += len(report.Triples)
		fmt.Fprintf(errOut, "✓ %s (%d triples)\n", report.Subject, len(report.Triples))
	}

	if err := rec.close(ctx); err != nil {
		logger.Warn("could not close store", zap.Error(err))
	}

	// Summary
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "  Batch Complete\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Total:     %d sources\n", len(outcomes))
	fmt.Fprintf(errOut, "  Success:   %d\n", successCount)
	fmt.Fprintf(errOut, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(errOut, "  Triples:   %d\n", tripleCount)
	fmt.Fprintf(errOut, "  Output:    %s\n", outputDir)
	if rec != nil {
		fmt.Fprintf(errOut, "  Run:       %s\n", rec.runID())
	}
	fmt.Fprintf(errOut, "\n")

	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
	"\t", "-",
	"\n", "-",
)

// sanitizeFilename turns a report subject into a safe file name. The
// result is at most 100 bytes and never splits a UTF-8 sequence.
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-_")
	if s == "" {
		return "report"
	}

	if len(s) > 100 {
		cut := 0
		for i := range s {
			if i > 100 {
				break
			}
			cut = i
		}
		s = s[:cut]
	}
	return s
}

// uniqueSlug appends -2, -3, ... to repeated slugs
func uniqueSlug(used map[string]int, slug string) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
