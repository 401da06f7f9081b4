package splunk

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// OneshotOptions controls a oneshot search.
type OneshotOptions struct {
	EarliestTime string
	LatestTime   string
	MaxCount     int
	Timeout      time.Duration
}

// Oneshot runs a search synchronously and returns its results inline.
// Best for ad-hoc queries returning under 50,000 rows.
func (c *Client) Oneshot(ctx context.Context, spl string, opts OneshotOptions) ([]map[string]any, error) {
	form := url.Values{}
	form.Set("search", spl)
	if opts.EarliestTime != "" {
		form.Set("earliest_time", opts.EarliestTime)
	}
	if opts.LatestTime != "" {
		form.Set("latest_time", opts.LatestTime)
	}
	if opts.MaxCount > 0 {
		form.Set("count", strconv.Itoa(opts.MaxCount))
	}

	response, err := c.PostWithTimeout(ctx, "/search/jobs/oneshot", form, opts.Timeout, "oneshot search")
	if err != nil {
		return nil, err
	}
	return resultsOf(response), nil
}

// ResultsOptions controls results retrieval and pagination.
type ResultsOptions struct {
	Count  int // 0 fetches all results
	Offset int
	Fields []string
}

// Results fetches the final results of a completed job.
func (c *Client) Results(ctx context.Context, sid string, opts ResultsOptions) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("count", strconv.Itoa(opts.Count))
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}
	if len(opts.Fields) > 0 {
		params.Set("field_list", strings.Join(opts.Fields, ","))
	}

	response, err := c.Get(ctx, "/search/v2/jobs/"+url.PathEscape(sid)+"/results", params, "get results")
	if err != nil {
		return nil, err
	}
	return resultsOf(response), nil
}

// Preview fetches partial results from a job that may still be running.
func (c *Client) Preview(ctx context.Context, sid string, count int) ([]map[string]any, error) {
	params := url.Values{}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}

	response, err := c.Get(ctx, "/search/v2/jobs/"+url.PathEscape(sid)+"/results_preview", params, "get preview")
	if err != nil {
		return nil, err
	}
	return resultsOf(response), nil
}
