package splunk

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DispatchState is the server-side lifecycle state of a search job.
type DispatchState string

const (
	StateQueued     DispatchState = "QUEUED"
	StateParsing    DispatchState = "PARSING"
	StateRunning    DispatchState = "RUNNING"
	StatePaused     DispatchState = "PAUSED"
	StateFinalizing DispatchState = "FINALIZING"
	StateDone       DispatchState = "DONE"
	StateFailed     DispatchState = "FAILED"
)

// JobProgress is a snapshot of a search job's status endpoint.
type JobProgress struct {
	SID             string
	State           DispatchState
	ProgressPercent float64
	EventCount      int64
	ResultCount     int64
	ScanCount       int64
	RunDuration     float64
	IsDone          bool
	IsFailed        bool
	IsPaused        bool
	TTL             int64
	Messages        []Message
	Content         map[string]any
}

// Message is a diagnostic message attached to a job by splunkd.
type Message struct {
	Type string
	Text string
}

// CreateJobOptions controls search job dispatch.
type CreateJobOptions struct {
	EarliestTime string
	LatestTime   string
	ExecMode     string // "normal" or "blocking"
	Namespace    string
	Timeout      time.Duration // blocking dispatch only
}

var sidPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateSID rejects identifiers that cannot be a Splunk search ID.
func ValidateSID(sid string) (string, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return "", validationErrorf("search ID must not be empty")
	}
	if !sidPattern.MatchString(sid) {
		return "", validationErrorf("invalid search ID: %q", sid)
	}
	return sid, nil
}

// CreateJob dispatches a search job and returns its SID.
func (c *Client) CreateJob(ctx context.Context, spl string, opts CreateJobOptions) (string, error) {
	form := url.Values{}
	form.Set("search", spl)
	if opts.ExecMode != "" {
		form.Set("exec_mode", opts.ExecMode)
	}
	if opts.EarliestTime != "" {
		form.Set("earliest_time", opts.EarliestTime)
	}
	if opts.LatestTime != "" {
		form.Set("latest_time", opts.LatestTime)
	}
	if opts.Namespace != "" {
		form.Set("namespace", opts.Namespace)
	}

	var response map[string]any
	var err error
	if opts.ExecMode == "blocking" {
		response, err = c.PostWithTimeout(ctx, "/search/v2/jobs", form, opts.Timeout, "create search job")
	} else {
		response, err = c.Post(ctx, "/search/v2/jobs", form, "create search job")
	}
	if err != nil {
		return "", err
	}

	if sid, ok := response["sid"].(string); ok && sid != "" {
		return sid, nil
	}
	// Blocking dispatch replies with a collection entry instead of a bare SID.
	for _, entry := range entries(response) {
		if name, ok := entry["name"].(string); ok && name != "" {
			return name, nil
		}
		if sid, ok := entryContent(entry)["sid"].(string); ok && sid != "" {
			return sid, nil
		}
	}
	return "", fmt.Errorf("no SID in job creation response")
}

// JobStatus fetches the current status of a job.
func (c *Client) JobStatus(ctx context.Context, sid string) (*JobProgress, error) {
	response, err := c.Get(ctx, "/search/v2/jobs/"+url.PathEscape(sid), nil, "get job status")
	if err != nil {
		return nil, err
	}
	jobEntries := entries(response)
	if len(jobEntries) == 0 {
		return nil, &APIError{Kind: KindNotFound, StatusCode: 404, Operation: "get job status", Message: "job not found: " + sid}
	}
	return progressFromContent(sid, entryContent(jobEntries[0])), nil
}

// ListJobs returns up to count jobs known to the dispatch directory.
func (c *Client) ListJobs(ctx context.Context, count int) ([]*JobProgress, error) {
	params := url.Values{}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}
	response, err := c.Get(ctx, "/search/v2/jobs", params, "list jobs")
	if err != nil {
		return nil, err
	}

	var jobs []*JobProgress
	for _, entry := range entries(response) {
		content := entryContent(entry)
		sid, _ := content["sid"].(string)
		if sid == "" {
			sid, _ = entry["name"].(string)
		}
		jobs = append(jobs, progressFromContent(sid, content))
	}
	return jobs, nil
}

// control posts an action to the job control endpoint.
func (c *Client) control(ctx context.Context, sid, action string, extra url.Values) error {
	form := url.Values{}
	form.Set("action", action)
	for k, vs := range extra {
		for _, v := range vs {
			form.Add(k, v)
		}
	}
	_, err := c.Post(ctx, "/search/v2/jobs/"+url.PathEscape(sid)+"/control", form, action+" job")
	return err
}

// CancelJob stops a job and removes its artifacts.
func (c *Client) CancelJob(ctx context.Context, sid string) error {
	return c.control(ctx, sid, "cancel", nil)
}

// PauseJob suspends a running job.
func (c *Client) PauseJob(ctx context.Context, sid string) error {
	return c.control(ctx, sid, "pause", nil)
}

// UnpauseJob resumes a paused job.
func (c *Client) UnpauseJob(ctx context.Context, sid string) error {
	return c.control(ctx, sid, "unpause", nil)
}

// FinalizeJob stops the search and keeps the results gathered so far.
func (c *Client) FinalizeJob(ctx context.Context, sid string) error {
	return c.control(ctx, sid, "finalize", nil)
}

// SetJobTTL sets how long the job artifacts live after completion.
func (c *Client) SetJobTTL(ctx context.Context, sid string, ttl int) error {
	extra := url.Values{}
	extra.Set("ttl", strconv.Itoa(ttl))
	return c.control(ctx, sid, "setttl", extra)
}

// DeleteJob removes the job and its artifacts.
func (c *Client) DeleteJob(ctx context.Context, sid string) error {
	_, err := c.Delete(ctx, "/search/v2/jobs/"+url.PathEscape(sid), "delete job")
	return err
}

// WaitOptions controls the WaitForJob polling loop.
type WaitOptions struct {
	// Interval is the initial poll interval. It grows by 1.5x per poll up
	// to MaxInterval, so short jobs return quickly without hammering
	// splunkd on long ones.
	Interval    time.Duration
	MaxInterval time.Duration
	// OnProgress, when set, is invoked after every successful poll.
	OnProgress func(*JobProgress)
}

// WaitForJob polls the status endpoint until the job completes, fails, or
// ctx is done. On FAILED it returns an error carrying the job's ERROR and
// FATAL messages.
func (c *Client) WaitForJob(ctx context.Context, sid string, opts WaitOptions) (*JobProgress, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	maxInterval := opts.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 2 * time.Second
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		progress, err := c.JobStatus(ctx, sid)
		if err != nil {
			return nil, err
		}
		if opts.OnProgress != nil {
			opts.OnProgress(progress)
		}

		if progress.IsFailed || progress.State == StateFailed {
			return progress, jobFailedError(sid, progress.Messages)
		}
		if progress.IsDone {
			return progress, nil
		}

		interval = time.Duration(float64(interval) * 1.5)
		if interval > maxInterval {
			interval = maxInterval
		}
		timer.Reset(interval)
	}
}

func jobFailedError(sid string, messages []Message) error {
	var details []string
	for _, m := range messages {
		t := strings.ToUpper(m.Type)
		if t == "ERROR" || t == "FATAL" {
			details = append(details, m.Text)
		}
	}
	if len(details) > 0 {
		return fmt.Errorf("search job %s failed: %s", sid, strings.Join(details, "; "))
	}
	return fmt.Errorf("search job %s failed", sid)
}

func progressFromContent(sid string, content map[string]any) *JobProgress {
	progress := &JobProgress{
		SID:     sid,
		Content: content,
	}
	if s, ok := content["sid"].(string); ok && s != "" {
		progress.SID = s
	}
	if s, ok := content["dispatchState"].(string); ok {
		progress.State = DispatchState(s)
	}
	progress.ProgressPercent = asFloat(content["doneProgress"]) * 100
	progress.EventCount = int64(asFloat(content["eventCount"]))
	progress.ResultCount = int64(asFloat(content["resultCount"]))
	progress.ScanCount = int64(asFloat(content["scanCount"]))
	progress.RunDuration = asFloat(content["runDuration"])
	progress.TTL = int64(asFloat(content["ttl"]))
	progress.IsDone = asBool(content["isDone"])
	progress.IsFailed = asBool(content["isFailed"])
	progress.IsPaused = asBool(content["isPaused"])

	if raw, ok := content["messages"].([]any); ok {
		for _, m := range raw {
			mm, ok := m.(map[string]any)
			if !ok {
				continue
			}
			msgType, _ := mm["type"].(string)
			msgText, _ := mm["text"].(string)
			progress.Messages = append(progress.Messages, Message{Type: msgType, Text: msgText})
		}
	}
	return progress
}

// asFloat coerces splunkd's loosely typed numerics (JSON numbers or
// stringified numbers, depending on endpoint) into a float64.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "1" || strings.EqualFold(b, "true")
	case float64:
		return b != 0
	default:
		return false
	}
}
