package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/fincausal/internal/model"
)

// Renderer writes reports as JSON, Markdown, or a terminal summary
type Renderer struct {
	verbose bool
}

// NewRenderer creates a renderer. Verbose summaries list every triple.
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, data)
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown formats the report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 因果关系分析：%s\n\n", report.Subject)
	fmt.Fprintf(&b, "- Source: %s\n", report.Source)
	fmt.Fprintf(&b, "- Processed: %s\n", report.ProcessedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Sentences: %d\n", report.Sentences)
	fmt.Fprintf(&b, "- Triples: %d (mean confidence %.2f)\n", report.Stats.Total, report.Stats.MeanConfidence)
	if report.FetchMeta != nil {
		fmt.Fprintf(&b, "- HTTP: %d %s", report.FetchMeta.StatusCode, report.FetchMeta.ContentType)
		if report.FetchMeta.FromCache {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("## Causal triples\n\n")
	if len(report.Triples) == 0 {
		b.WriteString("_No causal relations found._\n\n")
	} else {
		b.WriteString("| # | Cause | Effect | Temporal | Confidence | Source |\n")
		b.WriteString("|---|-------|--------|----------|------------|--------|\n")
		for i, t := range report.Triples {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %.2f | %s |\n",
				i+1, escapeCell(t.Cause), escapeCell(t.Effect), t.Temporal(), t.Confidence, t.Source)
		}
		b.WriteString("\n")
	}

	if len(report.Stats.ByTemporal) > 0 {
		b.WriteString("## Temporal relations\n\n")
		for _, rel := range sortedKeys(report.Stats.ByTemporal) {
			fmt.Fprintf(&b, "- %s: %d\n", rel, report.Stats.ByTemporal[model.TemporalRelation(rel)])
		}
		b.WriteString("\n")
	}

	if len(report.Terms) > 0 {
		b.WriteString("## Financial terms\n\n")
		for _, term := range report.Terms {
			category := term.Category
			if category == "" {
				category = "-"
			}
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", term.Term, category, term.Definition)
		}
		b.WriteString("\n")
	}

	if len(report.TimeExpressions) > 0 {
		b.WriteString("## Time expressions\n\n")
		b.WriteString(strings.Join(report.TimeExpressions, "、"))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderSummary prints a short overview to w
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  %s\n", report.Subject)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Sentences:   %d\n", report.Sentences)
	fmt.Fprintf(w, "  Triples:     %d\n", report.Stats.Total)
	fmt.Fprintf(w, "  Terms:       %d\n", len(report.Terms))
	if report.Stats.Total > 0 {
		fmt.Fprintf(w, "  Confidence:  %.2f (mean)\n", report.Stats.MeanConfidence)
	}
	for _, source := range sortedStringKeys(report.Stats.BySource) {
		fmt.Fprintf(w, "    %-11s %d\n", source+":", report.Stats.BySource[source])
	}

	if r.verbose {
		fmt.Fprintf(w, "\n")
		for _, t := range report.Triples {
			fmt.Fprintf(w, "  %s → %s  [%s, %.2f]\n", t.Cause, t.Effect, t.Temporal(), t.Confidence)
		}
	}
	fmt.Fprintf(w, "\n")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func sortedKeys(m map[model.TemporalRelation]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
