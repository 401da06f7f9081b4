package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandcamel/splunk-as/internal/format"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Query metric indexes with mstats and mcatalog",
}

var (
	metricsIndex    string
	metricsEarliest string
	metricsLatest   string
	metricsSpan     string
	metricsAgg      string
	metricsSplitBy  string
	metricsFilter   string
	metricsOutput   string
)

var metricsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List metric names",
	RunE:  runMetricsList,
}

var metricsIndexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "List metric indexes",
	RunE:  runMetricsIndexes,
}

var metricsQueryCmd = &cobra.Command{
	Use:   "mstats METRIC",
	Short: "Query a metric time series with mstats",
	Long: `Aggregate a metric over time with mstats.

Example:
  splunk-as metrics mstats cpu.percent --agg max --span 5m --split-by host`,
	Args: cobra.ExactArgs(1),
	RunE: runMetricsQuery,
}

var metricsCatalogCmd = &cobra.Command{
	Use:   "mcatalog",
	Short: "Explore the metrics catalog (names and dimensions)",
	RunE:  runMetricsCatalog,
}

func init() {
	metricsListCmd.Flags().StringVarP(&metricsIndex, "index", "i", "", "Restrict to one metric index")
	metricsListCmd.Flags().StringVarP(&metricsOutput, "output", "o", format.OutputText, "Output format: text or json")

	metricsIndexesCmd.Flags().StringVarP(&metricsOutput, "output", "o", format.OutputText, "Output format: text or json")

	metricsQueryCmd.Flags().StringVarP(&metricsIndex, "index", "i", "", "Restrict to one metric index")
	metricsQueryCmd.Flags().StringVarP(&metricsEarliest, "earliest", "e", "-1h", "Earliest time")
	metricsQueryCmd.Flags().StringVarP(&metricsLatest, "latest", "l", "now", "Latest time")
	metricsQueryCmd.Flags().StringVar(&metricsSpan, "span", "1m", "Time bucket span")
	metricsQueryCmd.Flags().StringVar(&metricsAgg, "agg", "avg", "Aggregation: avg, sum, min, max, count")
	metricsQueryCmd.Flags().StringVar(&metricsSplitBy, "split-by", "", "Dimension to split the series by")
	metricsQueryCmd.Flags().StringVarP(&metricsOutput, "output", "o", format.OutputText, "Output format: text or json")

	metricsCatalogCmd.Flags().StringVarP(&metricsIndex, "index", "i", "", "Restrict to one metric index")
	metricsCatalogCmd.Flags().StringVarP(&metricsFilter, "metric", "m", "", "Filter by metric name")
	metricsCatalogCmd.Flags().StringVarP(&metricsOutput, "output", "o", format.OutputText, "Output format: text or json")

	metricsCmd.AddCommand(metricsListCmd)
	metricsCmd.AddCommand(metricsIndexesCmd)
	metricsCmd.AddCommand(metricsQueryCmd)
	metricsCmd.AddCommand(metricsCatalogCmd)
}

func runMetricsList(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	names, err := client.ListMetrics(ctx, metricsIndex)
	if err != nil {
		return err
	}

	if metricsOutput == format.OutputJSON {
		format.PrintJSON(map[string]any{"metrics": names, "count": len(names)})
		return nil
	}
	if len(names) == 0 {
		fmt.Println("No metrics found.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	fmt.Printf("\nTotal: %d metrics\n", len(names))
	return nil
}

func runMetricsIndexes(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	indexes, err := client.MetricsIndexes(ctx)
	if err != nil {
		return err
	}

	if metricsOutput == format.OutputJSON {
		var out []map[string]any
		for _, index := range indexes {
			out = append(out, indexJSON(index))
		}
		format.PrintJSON(out)
		return nil
	}

	if len(indexes) == 0 {
		fmt.Println("No metric indexes found.")
		return nil
	}
	rows := make([]map[string]any, 0, len(indexes))
	for _, index := range indexes {
		rows = append(rows, map[string]any{
			"Name":    index.Name,
			"Events":  index.TotalEventCount,
			"Size MB": fmt.Sprintf("%.1f", index.CurrentDBSizeMB),
		})
	}
	format.PrintTable(rows, []string{"Name", "Events", "Size MB"})
	return nil
}

func runMetricsQuery(cmd *cobra.Command, args []string) error {
	switch metricsAgg {
	case "avg", "sum", "min", "max", "count":
	default:
		return &splunk.ValidationError{Message: fmt.Sprintf("invalid aggregation %q (expected avg, sum, min, max, or count)", metricsAgg)}
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.MStats(ctx, args[0], splunk.MStatsOptions{
		Index:        metricsIndex,
		EarliestTime: metricsEarliest,
		LatestTime:   metricsLatest,
		Span:         metricsSpan,
		Agg:          metricsAgg,
		SplitBy:      metricsSplitBy,
	})
	if err != nil {
		return err
	}

	if metricsOutput == format.OutputJSON {
		format.PrintJSON(results)
		return nil
	}
	format.PrintTable(results, nil)
	if len(results) > 0 {
		fmt.Printf("\nTotal: %d data points\n", len(results))
	}
	return nil
}

func runMetricsCatalog(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.MCatalog(ctx, metricsIndex, metricsFilter)
	if err != nil {
		return err
	}

	if metricsOutput == format.OutputJSON {
		format.PrintJSON(results)
		return nil
	}
	format.PrintTable(results, nil)
	return nil
}
