package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anajobs/anajobs/internal/config"
	"github.com/anajobs/anajobs/internal/jsonl"
	"github.com/anajobs/anajobs/internal/store"
)

// openStore loads config, applies flag overrides and connects. Flags always
// win over environment and file values.
func openStore(cmd *cobra.Command) (*store.Client, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, err
	}
	if uri, _ := cmd.Flags().GetString("uri"); uri != "" {
		cfg.Mongo.URI = uri
	}
	if db, _ := cmd.Flags().GetString("database"); db != "" {
		cfg.Mongo.Database = db
	}
	if err := initLogging(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, cfg, err
	}

	s := store.New(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err := s.Connect(cmd.Context()); err != nil {
		printError("Could not reach MongoDB at %s", cfg.Mongo.URI)
		printStatus("Hint", "start a local server with `mongod` or set ANAJOBS_MONGODB_URI")
		return nil, cfg, err
	}
	return s, cfg, nil
}

// --- setup ---

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the collection and load the organization data file",
	Long: `Parse the JSONL data file, create the organizations collection with its
schema and indexes, and upsert every parsed record by name. Safe to run
repeatedly; existing records are updated in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		dataFile := cfg.Data.File
		if f, _ := cmd.Flags().GetString("data-file"); f != "" {
			dataFile = f
		}

		printStep("Parsing %s", dataFile)
		parsed, err := jsonl.ParseFile(dataFile)
		if err != nil {
			return err
		}
		printStatus("Lines", "%d", parsed.Lines)
		printStatus("Parsed", "%d", len(parsed.Organizations))
		if parsed.Malformed > 0 {
			printWarning("%d lines could not be parsed or recovered", parsed.Malformed)
		}
		if len(parsed.Organizations) == 0 {
			return fmt.Errorf("no usable records in %s", dataFile)
		}

		printStep("Preparing collection %s.%s", cfg.Mongo.Database, cfg.Mongo.Collection)
		if err := s.SetupCollection(cmd.Context()); err != nil {
			return err
		}

		printStep("Loading %d organizations", len(parsed.Organizations))
		res, err := s.Populate(cmd.Context(), parsed.Organizations)
		if err != nil {
			return err
		}
		printSuccess("Setup complete: %d inserted, %d updated", res.Inserted, res.Updated)
		return nil
	},
}

// --- test ---

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run database sanity checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		orgName, _ := cmd.Flags().GetString("org-name")
		return runDatabaseTest(cmd.Context(), s, orgName)
	},
}

// databaseTester is the slice of the store the test command needs.
type databaseTester interface {
	TestDatabase(ctx context.Context, orgName string) (*store.TestReport, error)
}

// runDatabaseTest prints the sanity report. Individual check failures are
// reported in the output only; once a connection was established the exit
// code stays zero.
func runDatabaseTest(ctx context.Context, s databaseTester, orgName string) error {
	report, err := s.TestDatabase(ctx, orgName)
	if err != nil {
		return err
	}

	for _, c := range report.Checks {
		printCheck(c.Name, c.Passed, c.Detail)
	}
	if len(report.Sample) > 0 {
		fmt.Fprintln(os.Stderr)
		printStatus("Sample", "")
		for _, org := range report.Sample {
			fmt.Fprintf(os.Stderr, "    %s (%s)\n", org.Name, org.Root)
		}
	}
	return nil
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search organizations by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		term := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt64("limit")

		orgs, err := s.Search(cmd.Context(), term, limit)
		if err != nil {
			return err
		}
		if len(orgs) == 0 {
			printWarning("No organizations matching %q", term)
			return nil
		}
		return printOrgs(cmd, orgs)
	},
}

func printOrgs(cmd *cobra.Command, orgs []store.Organization) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(orgs)
	}
	for _, org := range orgs {
		fmt.Printf("%s\n", colorize(ansiBold, org.Name))
		fmt.Printf("    root: %s\n", org.Root)
		fmt.Printf("    jobs: %s\n", org.Jobs)
		if len(org.JobTitles) > 0 {
			fmt.Printf("    open positions: %d\n", len(org.JobTitles))
		}
	}
	return nil
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		stats, err := s.Stats(cmd.Context())
		if err != nil {
			return err
		}
		printStatus("Total organizations", "%d", stats.Total)
		printStatus("Scraped", "%d", stats.Scraped)
		printStatus("With job titles", "%d", stats.WithJobTitles)
		printStatus(".org domains", "%d", stats.OrgDomains)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefaults()
		if err != nil {
			return err
		}
		printSuccess("Wrote %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			fmt.Printf("%-22s %-28s %s\n", info.Key, info.EnvVar, info.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{setupCmd, testCmd, searchCmd, statsCmd} {
		c.Flags().StringP("uri", "c", "", "MongoDB connection URI")
		c.Flags().StringP("database", "d", "", "database name")
	}
	setupCmd.Flags().StringP("data-file", "f", "", "JSONL data file to load")
	testCmd.Flags().StringP("org-name", "o", "American Red Cross", "organization to look up during checks")
	searchCmd.Flags().Int64P("limit", "l", 10, "maximum results")
	searchCmd.Flags().Bool("json", false, "print results as JSON")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}
