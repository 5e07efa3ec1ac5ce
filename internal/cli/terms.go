package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fincausal/internal/finance"
)

var termsJSON bool

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <text>",
	Short: "Find dictionary financial terms in a text",
	Long: `Lookup reports every dictionary term contained in the text, within
a small edit distance, with its definition and category.

Example:
  fincausal lookup "央行下调利率，股价上涨"
  fincausal lookup "市盈率偏高" --dict my_terms.txt --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		matcher := finance.NewMatcher(settings.Financial.Dictionary.Path, logger.Named("finance"))
		if matcher.Len() == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ No dictionary terms loaded from %s\n", settings.Financial.Dictionary.Path)
		}
		terms := matcher.Recognize(strings.Join(args, " "))

		out := cmd.OutOrStdout()
		if termsJSON {
			data, err := json.MarshalIndent(terms, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal terms: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(terms) == 0 {
			fmt.Fprintln(out, "No financial terms found.")
			return nil
		}
		for _, term := range terms {
			category := term.Category
			if category == "" {
				category = "-"
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", term.Term, category, term.Definition)
		}
		return nil
	},
}

// defineCmd represents the define command
var defineCmd = &cobra.Command{
	Use:   "define <term>",
	Short: "Print the dictionary definition of a term",
	Long: `Define prints the definition of an exact dictionary term.

Example:
  fincausal define 市盈率`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		matcher := finance.NewMatcher(settings.Financial.Dictionary.Path, logger.Named("finance"))
		definition, ok := matcher.Definition(args[0])
		if !ok {
			return fmt.Errorf("%q is not in the dictionary (%d terms)", args[0], matcher.Len())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], definition)
		return nil
	},
}

// categoriesCmd represents the categories command
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the financial categories and their member terms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if termsJSON {
			members := make(map[finance.Category][]string)
			for _, category := range finance.Categories() {
				members[category] = finance.CategoryTerms(category)
			}
			data, err := json.MarshalIndent(members, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal categories: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		for _, category := range finance.Categories() {
			fmt.Fprintf(out, "%s: %s\n", category, strings.Join(finance.CategoryTerms(category), ", "))
		}
		return nil
	},
}

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <term>...",
	Short: "Bucket terms into financial categories",
	Long: `Classify groups the given terms by financial category. Terms outside
every category are dropped. Every category is listed, possibly empty.

Example:
  fincausal classify 股价 营收 利率 不存在的词`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buckets := finance.Classify(args)

		out := cmd.OutOrStdout()
		if termsJSON {
			data, err := json.MarshalIndent(buckets, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal categories: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		for _, category := range finance.Categories() {
			terms := buckets[category]
			if len(terms) == 0 {
				fmt.Fprintf(out, "%s: -\n", category)
				continue
			}
			fmt.Fprintf(out, "%s: %s\n", category, strings.Join(terms, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(defineCmd)
	rootCmd.AddCommand(categoriesCmd)

	lookupCmd.Flags().BoolVar(&termsJSON, "json", false, "print JSON")
	classifyCmd.Flags().BoolVar(&termsJSON, "json", false, "print JSON")
	categoriesCmd.Flags().BoolVar(&termsJSON, "json", false, "print JSON")
}
