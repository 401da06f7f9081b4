package splunk

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/grandcamel/splunk-as/internal/splunktest"
)

func TestValidateSID(t *testing.T) {
	valid := []string{"1703779200.12345", "rt_1703779200.1", "scheduler__admin_search_RMD5"}
	for _, sid := range valid {
		if _, err := ValidateSID(sid); err != nil {
			t.Errorf("ValidateSID(%q) = %v, want nil", sid, err)
		}
	}

	invalid := []string{"", "  ", "sid with spaces", "sid/../../etc", "sid?x=1"}
	for _, sid := range invalid {
		if _, err := ValidateSID(sid); err == nil {
			t.Errorf("ValidateSID(%q) succeeded, want error", sid)
		}
	}

	if sid, _ := ValidateSID("  1703779200.1  "); sid != "1703779200.1" {
		t.Errorf("ValidateSID did not trim: %q", sid)
	}
}

func TestCreateJob(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	sid, err := c.CreateJob(context.Background(), "search index=main error", CreateJobOptions{
		EarliestTime: "-1h",
		LatestTime:   "now",
		ExecMode:     "normal",
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if sid == "" {
		t.Fatal("empty SID")
	}

	job := srv.GetJob(sid)
	if job == nil {
		t.Fatal("job not registered on server")
	}
	if job.Search != "search index=main error" {
		t.Errorf("dispatched search = %q", job.Search)
	}

	calls := srv.Calls()
	form := calls[len(calls)-1].Form
	if form["earliest_time"] != "-1h" || form["latest_time"] != "now" {
		t.Errorf("time bounds not sent: %v", form)
	}
}

func TestCreateJobBlocking(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	sid, err := c.CreateJob(context.Background(), "search index=main | stats count", CreateJobOptions{
		ExecMode: "blocking",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("CreateJob blocking: %v", err)
	}

	// Blocking dispatch replies with a collection entry; the SID comes from
	// the entry name and the job is already finished.
	job := srv.GetJob(sid)
	if job == nil {
		t.Fatal("job not registered on server")
	}
	if job.DispatchState != "DONE" {
		t.Errorf("blocking job state = %q, want DONE", job.DispatchState)
	}
}

func TestJobStatus(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.AddJob(&splunktest.Job{
		SID:           "1703779200.42",
		DispatchState: "RUNNING",
		DoneProgress:  0.5,
		EventCount:    100,
		ResultCount:   10,
		ScanCount:     2000,
		RunDuration:   1.25,
	})

	c := testClient(t, srv, nil)
	progress, err := c.JobStatus(context.Background(), "1703779200.42")
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if progress.State != StateRunning {
		t.Errorf("State = %q", progress.State)
	}
	if progress.ProgressPercent != 50 {
		t.Errorf("ProgressPercent = %v, want 50", progress.ProgressPercent)
	}
	if progress.EventCount != 100 || progress.ResultCount != 10 || progress.ScanCount != 2000 {
		t.Errorf("counts = %d/%d/%d", progress.EventCount, progress.ResultCount, progress.ScanCount)
	}
	if progress.IsDone || progress.IsFailed {
		t.Error("running job reported done or failed")
	}
}

func TestJobStatusNotFound(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	_, err := c.JobStatus(context.Background(), "no.such.job")
	if err == nil {
		t.Fatal("expected error for unknown SID")
	}
	if kind := ErrorKind(err); kind != KindNotFound {
		t.Errorf("ErrorKind = %v, want KindNotFound", kind)
	}
}

func TestListJobs(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.AddJob(&splunktest.Job{SID: "a.1", DispatchState: "DONE"})
	srv.AddJob(&splunktest.Job{SID: "b.2", DispatchState: "RUNNING"})

	c := testClient(t, srv, nil)
	jobs, err := c.ListJobs(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestWaitForJobCompletes(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()

	c := testClient(t, srv, nil)
	sid, err := c.CreateJob(context.Background(), "search index=main", CreateJobOptions{ExecMode: "normal"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	var polls int
	progress, err := c.WaitForJob(context.Background(), sid, WaitOptions{
		Interval:    5 * time.Millisecond,
		MaxInterval: 10 * time.Millisecond,
		OnProgress:  func(*JobProgress) { polls++ },
	})
	if err != nil {
		t.Fatalf("WaitForJob: %v", err)
	}
	if !progress.IsDone || progress.State != StateDone {
		t.Errorf("job not done: state=%q done=%t", progress.State, progress.IsDone)
	}
	if polls < 2 {
		t.Errorf("expected at least 2 polls, got %d", polls)
	}
}

func TestWaitForJobFailure(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.AddJob(&splunktest.Job{
		SID:           "failed.1",
		DispatchState: "FAILED",
		Messages: []map[string]string{
			{"type": "ERROR", "text": "Unknown search command 'bogus'."},
			{"type": "INFO", "text": "ignored"},
		},
	})

	c := testClient(t, srv, nil)
	_, err := c.WaitForJob(context.Background(), "failed.1", WaitOptions{Interval: time.Millisecond})
	if err == nil {
		t.Fatal("expected failure error")
	}
	if !strings.Contains(err.Error(), "Unknown search command") {
		t.Errorf("error missing job message: %v", err)
	}
	if strings.Contains(err.Error(), "ignored") {
		t.Errorf("INFO message leaked into error: %v", err)
	}
}

func TestWaitForJobContextCancel(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.AddJob(&splunktest.Job{SID: "stuck.1", DispatchState: "RUNNING", PollsUntilDone: 1 << 30})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := testClient(t, srv, nil)
	_, err := c.WaitForJob(ctx, "stuck.1", WaitOptions{Interval: 5 * time.Millisecond})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestJobControlActions(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.AddJob(&splunktest.Job{SID: "ctl.1", DispatchState: "RUNNING", PollsUntilDone: 1 << 30})

	c := testClient(t, srv, nil)
	ctx := context.Background()

	if err := c.PauseJob(ctx, "ctl.1"); err != nil {
		t.Fatalf("PauseJob: %v", err)
	}
	if !srv.GetJob("ctl.1").Paused {
		t.Error("job not paused")
	}

	if err := c.UnpauseJob(ctx, "ctl.1"); err != nil {
		t.Fatalf("UnpauseJob: %v", err)
	}
	if srv.GetJob("ctl.1").Paused {
		t.Error("job still paused")
	}

	if err := c.SetJobTTL(ctx, "ctl.1", 600); err != nil {
		t.Fatalf("SetJobTTL: %v", err)
	}
	if ttl := srv.GetJob("ctl.1").TTL; ttl != 600 {
		t.Errorf("TTL = %d, want 600", ttl)
	}

	if err := c.FinalizeJob(ctx, "ctl.1"); err != nil {
		t.Fatalf("FinalizeJob: %v", err)
	}
	if state := srv.GetJob("ctl.1").DispatchState; state != "FINALIZING" {
		t.Errorf("state = %q, want FINALIZING", state)
	}
}

func TestDeleteJob(t *testing.T) {
	srv := splunktest.New()
	defer srv.Close()
	srv.AddJob(&splunktest.Job{SID: "del.1", DispatchState: "DONE"})

	c := testClient(t, srv, nil)
	if err := c.DeleteJob(context.Background(), "del.1"); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := c.JobStatus(context.Background(), "del.1"); ErrorKind(err) != KindNotFound {
		t.Errorf("deleted job still visible: %v", err)
	}
}

func TestProgressFromContentStringNumbers(t *testing.T) {
	// Some splunkd endpoints stringify numerics; coercion must handle both.
	progress := progressFromContent("x.1", map[string]any{
		"dispatchState": "DONE",
		"doneProgress":  "1",
		"resultCount":   "250",
		"isDone":        "1",
	})
	if progress.ProgressPercent != 100 {
		t.Errorf("ProgressPercent = %v", progress.ProgressPercent)
	}
	if progress.ResultCount != 250 {
		t.Errorf("ResultCount = %d", progress.ResultCount)
	}
	if !progress.IsDone {
		t.Error("IsDone not coerced from string")
	}
}
