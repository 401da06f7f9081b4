package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grandcamel/splunk-as/internal/format"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Discover indexes, sourcetypes, sources, and fields",
}

var (
	metaFilter     string
	metaIndex      string
	metaSourcetype string
	metaEarliest   string
	metaOutput     string
)

var metaIndexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "List indexes",
	RunE:  runMetaIndexes,
}

var metaIndexInfoCmd = &cobra.Command{
	Use:   "index-info NAME",
	Short: "Show detail for one index",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetaIndexInfo,
}

var metaSourcetypesCmd = &cobra.Command{
	Use:   "sourcetypes",
	Short: "List sourcetypes by event volume",
	RunE:  runMetaSourcetypes,
}

var metaSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List data sources by event volume",
	RunE:  runMetaSources,
}

var metaFieldsCmd = &cobra.Command{
	Use:   "fields INDEX",
	Short: "Summarize fields for an index",
	Long: `Run fieldsummary against an index to report field names, coverage,
and distinct value counts.

Example:
  splunk-as metadata fields main --sourcetype access_combined`,
	Args: cobra.ExactArgs(1),
	RunE: runMetaFields,
}

var metaSearchCmd = &cobra.Command{
	Use:   "search TYPE",
	Short: "Run a raw metadata search (hosts, sources, sourcetypes)",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetaSearch,
}

func init() {
	metaIndexesCmd.Flags().StringVarP(&metaFilter, "filter", "f", "", "Filter index names by substring")
	metaIndexesCmd.Flags().StringVarP(&metaOutput, "output", "o", format.OutputText, "Output format: text or json")

	metaIndexInfoCmd.Flags().StringVarP(&metaOutput, "output", "o", format.OutputText, "Output format: text or json")

	metaSourcetypesCmd.Flags().StringVarP(&metaIndex, "index", "i", "", "Restrict to one index")
	metaSourcetypesCmd.Flags().StringVarP(&metaOutput, "output", "o", format.OutputText, "Output format: text or json")

	metaSourcesCmd.Flags().StringVarP(&metaIndex, "index", "i", "", "Restrict to one index")
	metaSourcesCmd.Flags().StringVarP(&metaOutput, "output", "o", format.OutputText, "Output format: text or json")

	metaFieldsCmd.Flags().StringVarP(&metaSourcetype, "sourcetype", "s", "", "Restrict to one sourcetype")
	metaFieldsCmd.Flags().StringVarP(&metaEarliest, "earliest", "e", "-1h", "Earliest time for the sample")
	metaFieldsCmd.Flags().StringVarP(&metaOutput, "output", "o", format.OutputText, "Output format: text or json")

	metaSearchCmd.Flags().StringVarP(&metaIndex, "index", "i", "", "Restrict to one index")
	metaSearchCmd.Flags().StringVarP(&metaEarliest, "earliest", "e", "-24h", "Earliest time")
	metaSearchCmd.Flags().StringVarP(&metaOutput, "output", "o", format.OutputText, "Output format: text or json")

	metadataCmd.AddCommand(metaIndexesCmd)
	metadataCmd.AddCommand(metaIndexInfoCmd)
	metadataCmd.AddCommand(metaSourcetypesCmd)
	metadataCmd.AddCommand(metaSourcesCmd)
	metadataCmd.AddCommand(metaFieldsCmd)
	metadataCmd.AddCommand(metaSearchCmd)
}

func runMetaIndexes(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	indexes, err := client.ListIndexes(ctx, metaFilter)
	if err != nil {
		return err
	}

	if metaOutput == format.OutputJSON {
		var out []map[string]any
		for _, index := range indexes {
			out = append(out, indexJSON(index))
		}
		format.PrintJSON(out)
		return nil
	}

	if len(indexes) == 0 {
		fmt.Println("No indexes found.")
		return nil
	}
	rows := make([]map[string]any, 0, len(indexes))
	for _, index := range indexes {
		status := "enabled"
		if index.Disabled {
			status = "disabled"
		}
		rows = append(rows, map[string]any{
			"Name":    index.Name,
			"Type":    index.DataType,
			"Events":  index.TotalEventCount,
			"Size MB": fmt.Sprintf("%.1f", index.CurrentDBSizeMB),
			"Status":  status,
		})
	}
	format.PrintTable(rows, []string{"Name", "Type", "Events", "Size MB", "Status"})
	fmt.Printf("\nTotal: %d indexes\n", len(indexes))
	return nil
}

func indexJSON(index splunk.IndexInfo) map[string]any {
	return map[string]any{
		"name":               index.Name,
		"datatype":           index.DataType,
		"total_event_count":  index.TotalEventCount,
		"current_db_size_mb": index.CurrentDBSizeMB,
		"max_data_size_mb":   index.MaxDataSizeMB,
		"disabled":           index.Disabled,
	}
}

func runMetaIndexInfo(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	index, err := client.GetIndex(ctx, args[0])
	if err != nil {
		return err
	}

	if metaOutput == format.OutputJSON {
		format.PrintJSON(index.Content)
		return nil
	}
	fmt.Printf("Index:        %s\n", index.Name)
	fmt.Printf("Type:         %s\n", index.DataType)
	fmt.Printf("Events:       %d\n", index.TotalEventCount)
	fmt.Printf("Current size: %.1f MB\n", index.CurrentDBSizeMB)
	fmt.Printf("Max size:     %.1f MB\n", index.MaxDataSizeMB)
	fmt.Printf("Disabled:     %t\n", index.Disabled)
	if v := contentString(index.Content, "maxTotalDataSizeMB"); v != "" {
		fmt.Printf("Max total:    %s MB\n", v)
	}
	if v := contentString(index.Content, "frozenTimePeriodInSecs"); v != "" {
		fmt.Printf("Retention:    %ss\n", v)
	}
	if v := contentString(index.Content, "homePath"); v != "" {
		fmt.Printf("Home path:    %s\n", v)
	}
	return nil
}

func runMetaSourcetypes(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.Sourcetypes(ctx, metaIndex)
	if err != nil {
		return err
	}
	return emitMetaResults(results, []string{"sourcetype", "totalCount", "recentTime"})
}

func runMetaSources(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.Sources(ctx, metaIndex)
	if err != nil {
		return err
	}
	return emitMetaResults(results, []string{"source", "totalCount"})
}

func runMetaFields(cmd *cobra.Command, args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.FieldSummary(ctx, args[0], metaSourcetype, metaEarliest)
	if err != nil {
		return err
	}
	return emitMetaResults(results, []string{"field", "count", "distinct_count", "is_exact"})
}

func runMetaSearch(cmd *cobra.Command, args []string) error {
	metadataType := args[0]
	switch metadataType {
	case "hosts", "sources", "sourcetypes":
	default:
		return &splunk.ValidationError{Message: fmt.Sprintf("invalid metadata type %q (expected hosts, sources, or sourcetypes)", metadataType)}
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := client.MetadataSearch(ctx, metadataType, metaIndex, metaEarliest)
	if err != nil {
		return err
	}
	return emitMetaResults(results, nil)
}

func emitMetaResults(results []map[string]any, columns []string) error {
	if metaOutput == format.OutputJSON {
		format.PrintJSON(results)
		return nil
	}
	if len(columns) > 0 {
		columns = presentColumns(results, columns)
	}
	format.PrintTable(results, columns)
	if len(results) > 0 {
		fmt.Printf("\nTotal: %d rows\n", len(results))
	}
	return nil
}

// presentColumns drops preferred columns absent from every row so the table
// does not render empty cells for fields splunkd omitted.
func presentColumns(results []map[string]any, preferred []string) []string {
	var present []string
	for _, column := range preferred {
		for _, row := range results {
			if _, ok := row[column]; ok {
				present = append(present, column)
				break
			}
		}
	}
	return present
}
