package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anajobs/anajobs/internal/claude"
	"github.com/anajobs/anajobs/internal/enrich"
	"github.com/anajobs/anajobs/internal/fetch"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Discover careers pages and extract job titles",
	Long: `Walk unscraped organizations, fetch their careers pages and extract
current job titles with the Anthropic API. Requires ANTHROPIC_API_KEY.

An unbounded run touches every unscraped organization and spends API credits
accordingly, so it asks for confirmation first. Use --limit for small runs,
--test to preview without writing, or --yes to skip the prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		if cfg.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}

		limit, _ := cmd.Flags().GetInt64("limit")
		testMode, _ := cmd.Flags().GetBool("test")
		yes, _ := cmd.Flags().GetBool("yes")

		if limit == 0 && !testMode && !yes {
			if !confirmFullRun(os.Stdin, os.Stderr) {
				printWarning("Aborted")
				return nil
			}
		}

		delay, err := time.ParseDuration(cfg.Enrichment.Delay)
		if err != nil {
			return fmt.Errorf("invalid enrichment.delay %q: %w", cfg.Enrichment.Delay, err)
		}

		runner := enrich.NewRunner(
			s,
			fetch.New(),
			claude.NewClient(cfg.Anthropic.APIKey, cfg.Enrichment.Model),
			nil,
		)
		summary, err := runner.Run(cmd.Context(), enrich.Options{
			Limit:    limit,
			TestMode: testMode,
			MaxPages: cfg.Enrichment.MaxPages,
			Delay:    delay,
		})

		printStatus("Processed", "%d", summary.Processed)
		printStatus("Updated", "%d", summary.Updated)
		printStatus("Titles found", "%d", summary.TitlesFound)
		printStatus("Careers URLs discovered", "%d", summary.URLDiscoveries)
		printStatus("Failed", "%d", summary.Failed)
		if err != nil {
			return fmt.Errorf("run halted: %w", err)
		}
		printSuccess("Enrichment run %s complete", summary.RunID)
		return nil
	},
}

// confirmFullRun asks the operator to confirm an unbounded enrichment run.
// Only a literal "YES" proceeds.
func confirmFullRun(in io.Reader, out io.Writer) bool {
	fmt.Fprintln(out, colorize(ansiYellow, "⚠ This will process ALL unscraped organizations and may incur"))
	fmt.Fprintln(out, colorize(ansiYellow, "  significant API costs."))
	fmt.Fprint(out, "Type YES to continue: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "YES"
}

func init() {
	enrichCmd.Flags().StringP("uri", "c", "", "MongoDB connection URI")
	enrichCmd.Flags().StringP("database", "d", "", "database name")
	enrichCmd.Flags().Int64P("limit", "l", 0, "maximum organizations to process (0 = all)")
	enrichCmd.Flags().Bool("test", false, "preview extracted titles without writing")
	enrichCmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	rootCmd.AddCommand(enrichCmd)
}
