package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/grandcamel/splunk-as/internal/display"
	"github.com/grandcamel/splunk-as/internal/format"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Search job lifecycle management",
	Long:  "Create, monitor, control, and clean up Splunk search jobs.",
}

// Options for the job subcommands
var (
	jobEarliest string
	jobLatest   string
	jobExecMode string
	jobApp      string
	jobOutput   string
	jobCount    int
	jobTimeout  time.Duration
	jobQuiet    bool
)

var jobCreateCmd = &cobra.Command{
	Use:   "create SPL",
	Short: "Create a new search job",
	Long: `Create a new search job and print its SID.

Example:
  splunk-as job create "index=main | stats count"`,
	Args: cobra.ExactArgs(1),
	RunE: runJobCreate,
}

var jobStatusCmd = &cobra.Command{
	Use:   "status SID",
	Short: "Get the status of a search job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobStatus,
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List search jobs",
	RunE:  runJobList,
}

var jobPollCmd = &cobra.Command{
	Use:   "poll SID",
	Short: "Poll a job until completion",
	Long: `Poll a job's status until it completes or fails. The poll interval
starts at half a second and backs off to two seconds.

Example:
  splunk-as job poll 1703779200.12345 --timeout 60s`,
	Args: cobra.ExactArgs(1),
	RunE: runJobPoll,
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel SID",
	Short: "Cancel a running search job",
	Args:  cobra.ExactArgs(1),
	RunE:  jobControlRunE("cancel", "Job cancelled"),
}

var jobPauseCmd = &cobra.Command{
	Use:   "pause SID",
	Short: "Pause a running search job",
	Args:  cobra.ExactArgs(1),
	RunE:  jobControlRunE("pause", "Job paused"),
}

var jobUnpauseCmd = &cobra.Command{
	Use:   "unpause SID",
	Short: "Resume a paused search job",
	Args:  cobra.ExactArgs(1),
	RunE:  jobControlRunE("unpause", "Job resumed"),
}

var jobFinalizeCmd = &cobra.Command{
	Use:   "finalize SID",
	Short: "Finalize a search job (stop and keep current results)",
	Args:  cobra.ExactArgs(1),
	RunE:  jobControlRunE("finalize", "Job finalized"),
}

var jobDeleteCmd = &cobra.Command{
	Use:   "delete SID",
	Short: "Delete a search job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobDelete,
}

var jobTTLCmd = &cobra.Command{
	Use:   "ttl SID SECONDS",
	Short: "Set the time-to-live for a search job",
	Args:  cobra.ExactArgs(2),
	RunE:  runJobTTL,
}

func init() {
	jobCreateCmd.Flags().StringVarP(&jobEarliest, "earliest", "e", "", "Earliest time")
	jobCreateCmd.Flags().StringVarP(&jobLatest, "latest", "l", "", "Latest time")
	jobCreateCmd.Flags().StringVar(&jobExecMode, "exec-mode", "normal", "Execution mode: normal or blocking")
	jobCreateCmd.Flags().StringVar(&jobApp, "app", "", "App context for the search")
	jobCreateCmd.Flags().StringVarP(&jobOutput, "output", "o", format.OutputText, "Output format: text or json")

	jobStatusCmd.Flags().StringVarP(&jobOutput, "output", "o", format.OutputText, "Output format: text or json")

	jobListCmd.Flags().IntVarP(&jobCount, "count", "c", 50, "Maximum jobs to list")
	jobListCmd.Flags().StringVarP(&jobOutput, "output", "o", format.OutputText, "Output format: text or json")

	jobPollCmd.Flags().DurationVar(&jobTimeout, "timeout", 5*time.Minute, "Poll timeout")
	jobPollCmd.Flags().BoolVarP(&jobQuiet, "quiet", "q", false, "Suppress progress updates")
	jobPollCmd.Flags().StringVarP(&jobOutput, "output", "o", format.OutputText, "Output format: text or json")

	jobCmd.AddCommand(jobCreateCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobPollCmd)
	jobCmd.AddCommand(jobCancelCmd)
	jobCmd.AddCommand(jobPauseCmd)
	jobCmd.AddCommand(jobUnpauseCmd)
	jobCmd.AddCommand(jobFinalizeCmd)
	jobCmd.AddCommand(jobDeleteCmd)
	jobCmd.AddCommand(jobTTLCmd)
}

func runJobCreate(cmd *cobra.Command, args []string) error {
	if jobExecMode != "normal" && jobExecMode != "blocking" {
		return &splunk.ValidationError{Message: fmt.Sprintf("invalid exec-mode %q (expected normal or blocking)", jobExecMode)}
	}
	client, manager, err := newClient()
	if err != nil {
		return err
	}
	built, earliest, latest, err := prepareSearch(manager, args[0], jobEarliest, jobLatest, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	sid, err := client.CreateJob(ctx, built, splunk.CreateJobOptions{
		EarliestTime: earliest,
		LatestTime:   latest,
		ExecMode:     jobExecMode,
		Namespace:    jobApp,
	})
	if err != nil {
		return err
	}

	if jobOutput == format.OutputJSON {
		format.PrintJSON(map[string]any{
			"sid":           sid,
			"exec_mode":     jobExecMode,
			"search":        built,
			"earliest_time": earliest,
			"latest_time":   latest,
		})
		return nil
	}
	format.Success("Job created: %s", sid)
	fmt.Printf("Search: %s\n", truncate(built, 80))
	fmt.Printf("Mode: %s\n", jobExecMode)
	fmt.Printf("Time range: %s to %s\n", earliest, latest)
	return nil
}

func runJobStatus(cmd *cobra.Command, args []string) error {
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
	progress, err := client.JobStatus(ctx, sid)
	if err != nil {
		return err
	}

	if jobOutput == format.OutputJSON {
		format.PrintJSON(progressJSON(progress))
		return nil
	}
	printJobStatus(progress)
	return nil
}

func progressJSON(progress *splunk.JobProgress) map[string]any {
	return map[string]any{
		"sid":          progress.SID,
		"state":        progress.State,
		"progress":     progress.ProgressPercent,
		"event_count":  progress.EventCount,
		"result_count": progress.ResultCount,
		"scan_count":   progress.ScanCount,
		"run_duration": progress.RunDuration,
		"is_done":      progress.IsDone,
		"is_failed":    progress.IsFailed,
		"is_paused":    progress.IsPaused,
	}
}

func printJobStatus(progress *splunk.JobProgress) {
	fmt.Printf("SID:      %s\n", progress.SID)
	fmt.Printf("State:    %s\n", progress.State)
	fmt.Printf("Progress: %.0f%%\n", progress.ProgressPercent)
	fmt.Printf("Events:   %d\n", progress.EventCount)
	fmt.Printf("Results:  %d\n", progress.ResultCount)
	fmt.Printf("Scanned:  %d\n", progress.ScanCount)
	fmt.Printf("Duration: %.2fs\n", progress.RunDuration)
	for _, message := range progress.Messages {
		fmt.Printf("Message:  [%s] %s\n", message.Type, message.Text)
	}
}

func runJobList(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	jobs, err := client.ListJobs(ctx, jobCount)
	if err != nil {
		return err
	}

	if jobOutput == format.OutputJSON {
		var out []map[string]any
		for _, progress := range jobs {
			out = append(out, progressJSON(progress))
		}
		format.PrintJSON(out)
		return nil
	}

	if len(jobs) == 0 {
		fmt.Println("No active jobs found.")
		return nil
	}
	rows := make([]map[string]any, 0, len(jobs))
	for _, progress := range jobs {
		rows = append(rows, map[string]any{
			"SID":      truncate(progress.SID, 30),
			"State":    string(progress.State),
			"Progress": fmt.Sprintf("%.0f%%", progress.ProgressPercent),
			"Results":  progress.ResultCount,
			"Duration": fmt.Sprintf("%.1fs", progress.RunDuration),
		})
	}
	format.PrintTable(rows, []string{"SID", "State", "Progress", "Results", "Duration"})
	fmt.Printf("\nTotal: %d jobs\n", len(jobs))
	return nil
}

// waitWithProgress polls the job, drawing a single-line spinner with the
// dispatch state when attached to a terminal.
func waitWithProgress(ctx context.Context, client *splunk.Client, sid string, quiet bool) (*splunk.JobProgress, error) {
	showProgress := !quiet && display.IsTerminal()
	nextFrame := display.CreateSpinner(nil)

	opts := splunk.WaitOptions{}
	if showProgress {
		opts.OnProgress = func(progress *splunk.JobProgress) {
			display.ClearLine()
			fmt.Printf("%s %s %.0f%% (%d results)", nextFrame(), progress.State, progress.ProgressPercent, progress.ResultCount)
		}
	}

	progress, err := client.WaitForJob(ctx, sid, opts)
	if showProgress {
		display.ClearLine()
	}
	return progress, err
}

func runJobPoll(cmd *cobra.Command, args []string) error {
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
	waitCtx, waitCancel := withTimeout(ctx, jobTimeout)
	defer waitCancel()

	progress, err := waitWithProgress(waitCtx, client, sid, jobQuiet)
	if err != nil {
		return err
	}

	if jobOutput == format.OutputJSON {
		format.PrintJSON(progressJSON(progress))
		return nil
	}
	format.Success("Job completed: %s", progress.State)
	fmt.Printf("Results: %d\n", progress.ResultCount)
	fmt.Printf("Events: %d\n", progress.EventCount)
	fmt.Printf("Duration: %.2fs\n", progress.RunDuration)
	return nil
}

// jobControlRunE builds the handler shared by the control-action commands.
func jobControlRunE(action, successMessage string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
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
		switch action {
		case "cancel":
			err = client.CancelJob(ctx, sid)
		case "pause":
			err = client.PauseJob(ctx, sid)
		case "unpause":
			err = client.UnpauseJob(ctx, sid)
		case "finalize":
			err = client.FinalizeJob(ctx, sid)
		}
		if err != nil {
			return err
		}
		format.Success("%s: %s", successMessage, sid)
		return nil
	}
}

func runJobDelete(cmd *cobra.Command, args []string) error {
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
	if err := client.DeleteJob(ctx, sid); err != nil {
		return err
	}
	format.Success("Job deleted: %s", sid)
	return nil
}

func runJobTTL(cmd *cobra.Command, args []string) error {
	sid, err := splunk.ValidateSID(args[0])
	if err != nil {
		return err
	}
	ttl, err := strconv.Atoi(args[1])
	if err != nil || ttl <= 0 {
		return &splunk.ValidationError{Message: fmt.Sprintf("invalid TTL %q: must be a positive integer", args[1])}
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := client.SetJobTTL(ctx, sid, ttl); err != nil {
		return err
	}
	format.Success("Job TTL set to %ds: %s", ttl, sid)
	return nil
}
