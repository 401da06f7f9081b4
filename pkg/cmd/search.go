package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grandcamel/splunk-as/internal/config"
	"github.com/grandcamel/splunk-as/internal/format"
	"github.com/grandcamel/splunk-as/internal/spl"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "SPL query execution",
	Long:  "Execute Splunk searches in oneshot, normal, or blocking mode, and fetch results.",
}

// Options for the search subcommands
var (
	searchEarliest   string
	searchLatest     string
	searchCount      int
	searchFields     string
	searchOutput     string
	searchOutputFile string
	searchWait       bool
	searchTimeout    time.Duration
	searchOffset     int
	searchSuggest    bool
)

var searchOneshotCmd = &cobra.Command{
	Use:   "oneshot SPL",
	Short: "Execute a oneshot search (results returned inline)",
	Long: `Execute a oneshot search. Results are returned in the same response,
which makes this the best mode for ad-hoc queries under 50,000 rows.

Example:
  splunk-as search oneshot "index=main | stats count by sourcetype"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchOneshot,
}

var searchNormalCmd = &cobra.Command{
	Use:   "normal SPL",
	Short: "Execute a normal (async) search",
	Long: `Dispatch a normal search job and print its SID immediately.
With --wait the command polls until completion and prints the results.

Example:
  splunk-as search normal "index=main | stats count" --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchNormal,
}

var searchBlockingCmd = &cobra.Command{
	Use:   "blocking SPL",
	Short: "Execute a blocking search (waits server-side)",
	Long: `Dispatch a blocking search. splunkd holds the request open until the
search completes, then the results are fetched.

Example:
  splunk-as search blocking "index=main | head 10" --timeout 60s`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchBlocking,
}

var searchValidateCmd = &cobra.Command{
	Use:   "validate SPL",
	Short: "Validate SPL syntax without executing",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchValidate,
}

var searchResultsCmd = &cobra.Command{
	Use:   "results SID",
	Short: "Get results from a completed search job",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchResults,
}

var searchPreviewCmd = &cobra.Command{
	Use:   "preview SID",
	Short: "Get preview results from a running search job",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchPreview,
}

func init() {
	for _, c := range []*cobra.Command{searchOneshotCmd, searchNormalCmd, searchBlockingCmd} {
		c.Flags().StringVarP(&searchEarliest, "earliest", "e", "", "Earliest time (e.g. -1h, -24h@h)")
		c.Flags().StringVarP(&searchLatest, "latest", "l", "", "Latest time (e.g. now, -1h)")
	}
	searchOneshotCmd.Flags().IntVarP(&searchCount, "count", "c", 0, "Maximum number of results (0 uses the profile default)")
	searchOneshotCmd.Flags().StringVarP(&searchFields, "fields", "f", "", "Comma-separated fields to return")
	searchOneshotCmd.Flags().StringVarP(&searchOutput, "output", "o", format.OutputText, "Output format: text, json, or csv")
	searchOneshotCmd.Flags().StringVar(&searchOutputFile, "output-file", "", "Write results to file (csv)")

	searchNormalCmd.Flags().BoolVar(&searchWait, "wait", false, "Wait for job completion")
	searchNormalCmd.Flags().DurationVar(&searchTimeout, "timeout", 5*time.Minute, "Wait timeout")
	searchNormalCmd.Flags().StringVarP(&searchOutput, "output", "o", format.OutputText, "Output format: text or json")

	searchBlockingCmd.Flags().DurationVar(&searchTimeout, "timeout", 5*time.Minute, "Dispatch timeout")
	searchBlockingCmd.Flags().StringVarP(&searchOutput, "output", "o", format.OutputText, "Output format: text or json")

	searchValidateCmd.Flags().BoolVarP(&searchSuggest, "suggestions", "s", false, "Show optimization suggestions")
	searchValidateCmd.Flags().StringVarP(&searchOutput, "output", "o", format.OutputText, "Output format: text or json")

	searchResultsCmd.Flags().IntVarP(&searchCount, "count", "c", 0, "Maximum results to return (0 for all)")
	searchResultsCmd.Flags().IntVar(&searchOffset, "offset", 0, "Offset for pagination")
	searchResultsCmd.Flags().StringVarP(&searchFields, "fields", "f", "", "Comma-separated fields to return")
	searchResultsCmd.Flags().StringVarP(&searchOutput, "output", "o", format.OutputText, "Output format: text, json, or csv")
	searchResultsCmd.Flags().StringVar(&searchOutputFile, "output-file", "", "Write results to file (csv)")

	searchPreviewCmd.Flags().IntVarP(&searchCount, "count", "c", 100, "Maximum results to return")
	searchPreviewCmd.Flags().StringVarP(&searchOutput, "output", "o", format.OutputText, "Output format: text or json")

	searchCmd.AddCommand(searchOneshotCmd)
	searchCmd.AddCommand(searchNormalCmd)
	searchCmd.AddCommand(searchBlockingCmd)
	searchCmd.AddCommand(searchValidateCmd)
	searchCmd.AddCommand(searchResultsCmd)
	searchCmd.AddCommand(searchPreviewCmd)
}

// prepareSearch validates the query and time bounds, applies profile
// defaults, and assembles the final SPL string.
func prepareSearch(manager *config.Manager, query, earliest, latest string, fields []string) (finalSPL, finalEarliest, finalLatest string, err error) {
	defaults := manager.SearchDefaults()
	if earliest == "" {
		earliest = defaults.EarliestTime
	}
	if latest == "" {
		latest = defaults.LatestTime
	}

	query, err = spl.Validate(query)
	if err != nil {
		return "", "", "", &splunk.ValidationError{Message: err.Error()}
	}
	if earliest, err = spl.ValidateTimeModifier(earliest); err != nil {
		return "", "", "", &splunk.ValidationError{Message: err.Error()}
	}
	if latest, err = spl.ValidateTimeModifier(latest); err != nil {
		return "", "", "", &splunk.ValidationError{Message: err.Error()}
	}

	built := spl.Build(query, spl.BuildOptions{
		EarliestTime: earliest,
		LatestTime:   latest,
		Fields:       fields,
	})
	return built, earliest, latest, nil
}

func emitResults(results []map[string]any, fields []string) error {
	switch searchOutput {
	case format.OutputJSON:
		format.PrintJSON(results)
	case format.OutputCSV:
		if searchOutputFile != "" {
			if err := format.ExportCSV(searchOutputFile, results, fields); err != nil {
				return err
			}
			format.Success("Results written to %s", searchOutputFile)
			return nil
		}
		return format.WriteCSV(cmdStdout(), results, fields)
	case format.OutputText:
		format.PrintTable(results, fields)
	default:
		return checkOutput(searchOutput, format.OutputText, format.OutputJSON, format.OutputCSV)
	}
	return nil
}

func runSearchOneshot(cmd *cobra.Command, args []string) error {
	client, manager, err := newClient()
	if err != nil {
		return err
	}
	fields := parseCommaList(searchFields)
	built, earliest, latest, err := prepareSearch(manager, args[0], searchEarliest, searchLatest, fields)
	if err != nil {
		return err
	}

	maxCount := searchCount
	if maxCount <= 0 {
		maxCount = manager.SearchDefaults().MaxCount
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.Oneshot(ctx, built, splunk.OneshotOptions{
		EarliestTime: earliest,
		LatestTime:   latest,
		MaxCount:     maxCount,
	})
	if err != nil {
		return err
	}

	if err := emitResults(results, fields); err != nil {
		return err
	}
	if searchOutput == format.OutputText {
		format.Success("Found %d results", len(results))
	}
	return nil
}

func runSearchNormal(cmd *cobra.Command, args []string) error {
	client, manager, err := newClient()
	if err != nil {
		return err
	}
	built, earliest, latest, err := prepareSearch(manager, args[0], searchEarliest, searchLatest, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	sid, err := client.CreateJob(ctx, built, splunk.CreateJobOptions{
		EarliestTime: earliest,
		LatestTime:   latest,
		ExecMode:     "normal",
	})
	if err != nil {
		return err
	}

	if !searchWait {
		if searchOutput == format.OutputJSON {
			format.PrintJSON(map[string]any{"sid": sid, "status": "created"})
			return nil
		}
		format.Success("Job created: %s", sid)
		fmt.Printf("Use: splunk-as job status %s\n", sid)
		return nil
	}

	waitCtx, waitCancel := withTimeout(ctx, searchTimeout)
	defer waitCancel()
	if _, err := waitWithProgress(waitCtx, client, sid, searchOutput != format.OutputText); err != nil {
		return err
	}

	results, err := client.Results(ctx, sid, splunk.ResultsOptions{})
	if err != nil {
		return err
	}
	if searchOutput == format.OutputJSON {
		format.PrintJSON(map[string]any{"sid": sid, "results": results})
		return nil
	}
	format.PrintTable(results, nil)
	format.Success("Completed: %d results", len(results))
	return nil
}

func runSearchBlocking(cmd *cobra.Command, args []string) error {
	client, manager, err := newClient()
	if err != nil {
		return err
	}
	built, earliest, latest, err := prepareSearch(manager, args[0], searchEarliest, searchLatest, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	sid, err := client.CreateJob(ctx, built, splunk.CreateJobOptions{
		EarliestTime: earliest,
		LatestTime:   latest,
		ExecMode:     "blocking",
		Timeout:      searchTimeout,
	})
	if err != nil {
		return err
	}

	results, err := client.Results(ctx, sid, splunk.ResultsOptions{})
	if err != nil {
		return err
	}
	if searchOutput == format.OutputJSON {
		format.PrintJSON(map[string]any{"sid": sid, "results": results})
		return nil
	}
	format.PrintTable(results, nil)
	format.Success("Completed: %d results", len(results))
	return nil
}

func runSearchValidate(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])
	issues := spl.SyntaxIssues(query)
	if query == "" {
		issues = append([]string{"SPL query must not be empty"}, issues...)
	}
	commands := spl.Commands(query)
	complexity := spl.EstimateComplexity(query)

	var suggestions []string
	if searchSuggest {
		suggestions = spl.Suggestions(query)
	}

	if searchOutput == format.OutputJSON {
		commandList := make([]map[string]string, 0, len(commands))
		for _, c := range commands {
			commandList = append(commandList, map[string]string{"name": c.Name, "args": c.Args})
		}
		format.PrintJSON(map[string]any{
			"valid":       len(issues) == 0,
			"issues":      issues,
			"commands":    commandList,
			"complexity":  complexity,
			"suggestions": suggestions,
		})
		return nil
	}

	if len(issues) == 0 {
		format.Success("SPL syntax is valid")
	} else {
		format.Warning("SPL syntax issues found:")
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
	}

	var names []string
	for _, c := range commands {
		names = append(names, c.Name)
	}
	fmt.Printf("\nComplexity: %s\n", complexity)
	fmt.Printf("Commands: %s\n", strings.Join(names, " | "))

	if searchSuggest && len(suggestions) > 0 {
		fmt.Println("\nOptimization suggestions:")
		for _, s := range suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
	return nil
}

func runSearchResults(cmd *cobra.Command, args []string) error {
	sid, err := splunk.ValidateSID(args[0])
	if err != nil {
		return err
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}
	fields := parseCommaList(searchFields)

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.Results(ctx, sid, splunk.ResultsOptions{
		Count:  searchCount,
		Offset: searchOffset,
		Fields: fields,
	})
	if err != nil {
		return err
	}

	if err := emitResults(results, fields); err != nil {
		return err
	}
	if searchOutput == format.OutputText {
		format.Success("Retrieved %d results", len(results))
	}
	return nil
}

func runSearchPreview(cmd *cobra.Command, args []string) error {
	sid, err := splunk.ValidateSID(args[0])
	if err != nil {
		return err
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.Preview(ctx, sid, searchCount)
	if err != nil {
		return err
	}

	if searchOutput == format.OutputJSON {
		format.PrintJSON(results)
		return nil
	}
	format.PrintTable(results, nil)
	fmt.Printf("Preview: %d results (job may still be running)\n", len(results))
	return nil
}
