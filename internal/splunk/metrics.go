package splunk

import (
	"context"
	"fmt"
	"strings"
)

// MStatsOptions shapes an mstats aggregation query.
type MStatsOptions struct {
	Index        string
	EarliestTime string
	LatestTime   string
	Span         string
	Agg          string // avg, sum, min, max, count
	SplitBy      string
}

// ListMetrics discovers metric names through mcatalog.
func (c *Client) ListMetrics(ctx context.Context, index string) ([]string, error) {
	spl := "| mcatalog values(metric_name) as metrics"
	if index != "" {
		spl += " WHERE index=" + index
	}
	spl += " | mvexpand metrics | sort metrics"

	results, err := c.Oneshot(ctx, spl, OneshotOptions{MaxCount: 1000})
	if err != nil {
		return nil, err
	}

	var names []string
	for _, r := range results {
		if name, ok := r["metrics"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// MetricsIndexes returns indexes with datatype=metric.
func (c *Client) MetricsIndexes(ctx context.Context) ([]IndexInfo, error) {
	all, err := c.ListIndexes(ctx, "")
	if err != nil {
		return nil, err
	}
	var metric []IndexInfo
	for _, info := range all {
		if info.DataType == "metric" {
			metric = append(metric, info)
		}
	}
	return metric, nil
}

// MStats queries a metric time series with the given aggregation.
func (c *Client) MStats(ctx context.Context, metricName string, opts MStatsOptions) ([]map[string]any, error) {
	agg := opts.Agg
	if agg == "" {
		agg = "avg"
	}
	span := opts.Span
	if span == "" {
		span = "1m"
	}

	spl := fmt.Sprintf("| mstats %s(%s) as value", agg, metricName)
	if opts.Index != "" {
		spl += " WHERE index=" + opts.Index
	}
	if opts.SplitBy != "" {
		spl += " BY " + opts.SplitBy
	}
	spl += " span=" + span

	return c.Oneshot(ctx, spl, OneshotOptions{
		EarliestTime: opts.EarliestTime,
		LatestTime:   opts.LatestTime,
		MaxCount:     1000,
	})
}

// MCatalog explores the metrics catalog: metric names and their dimensions.
func (c *Client) MCatalog(ctx context.Context, index, metricFilter string) ([]map[string]any, error) {
	spl := "| mcatalog values(metric_name) as metric_name, values(_dims) as dimensions"

	var where []string
	if index != "" {
		where = append(where, "index="+index)
	}
	if metricFilter != "" {
		where = append(where, fmt.Sprintf("metric_name=%q", metricFilter))
	}
	if len(where) > 0 {
		spl += " WHERE " + strings.Join(where, " AND ")
	}
	spl += " | stats count by metric_name, dimensions"

	return c.Oneshot(ctx, spl, OneshotOptions{MaxCount: 1000})
}
