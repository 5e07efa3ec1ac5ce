package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fincausal/internal/pipeline"
	"github.com/ppiankov/fincausal/internal/store"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse results saved with --db",
	Long: `Browse runs, documents and triples saved in the SQLite result store.

Example:
  fincausal history list --db results.db
  fincausal history show <run-id> --db results.db
  fincausal history triples <document-id> --db results.db
  fincausal history search 利率 --db results.db`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE: withStore(func(ctx context.Context, db *store.Store, w io.Writer, args []string) error {
		runs, err := db.Runs(ctx, historyLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tCOMMAND\tSTARTED\tDOCUMENTS\tSTATUS")
		for _, run := range runs {
			status := "running"
			if run.FinishedAt != nil {
				status = "done in " + run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				run.ID, run.Command, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Documents, status)
		}
		return tw.Flush()
	}),
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "List the documents of a run",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, db *store.Store, w io.Writer, args []string) error {
		docs, err := db.Documents(ctx, args[0])
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DOCUMENT\tSUBJECT\tSENTENCES\tTRIPLES\tSOURCE")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", d.ID, d.Subject, d.Sentences, d.Triples, d.Source)
		}
		return tw.Flush()
	}),
}

var historyTriplesCmd = &cobra.Command{
	Use:   "triples <document-id>",
	Short: "Print the stored triples of a document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, db *store.Store, w io.Writer, args []string) error {
		triples, err := db.Triples(ctx, args[0])
		if err != nil {
			return err
		}
		return pipeline.WriteTriples(w, triples)
	}),
}

var historySearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find stored triples whose cause or effect contains text",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, db *store.Store, w io.Writer, args []string) error {
		matches, err := db.Search(ctx, args[0])
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Fprintln(w, "No matching triples.")
			return nil
		}
		for _, m := range matches {
			fmt.Fprintf(w, "%s  %s → %s  [%s, %.2f]  (%s)\n",
				m.DocumentID, m.Triple.Cause, m.Triple.Effect, m.Triple.Temporal(), m.Triple.Confidence, m.Subject)
		}
		return nil
	}),
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run with its documents and triples",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, db *store.Store, w io.Writer, args []string) error {
		if err := db.DeleteRun(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Deleted run %s\n", args[0])
		return nil
	}),
}

// withStore opens the store named by store.path for the command
func withStore(fn func(ctx context.Context, db *store.Store, w io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if settings.Store.Path == "" {
			return fmt.Errorf("no result store: pass --db or set store.path")
		}

		ctx := cmd.Context()
		db, err := store.Open(ctx, settings.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return fn(ctx, db, cmd.OutOrStdout(), args)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyTriplesCmd, historySearchCmd, historyDeleteCmd)

	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list (0: all)")
}
