package splunk

import (
	"context"
	"net/url"
	"strings"
)

// IndexInfo summarizes a single index from the /data/indexes collection.
type IndexInfo struct {
	Name            string
	TotalEventCount int64
	CurrentDBSizeMB float64
	MaxDataSizeMB   float64
	DataType        string
	Disabled        bool
	Content         map[string]any
}

// ListIndexes returns all indexes, optionally filtered by a case-insensitive
// name substring.
func (c *Client) ListIndexes(ctx context.Context, filter string) ([]IndexInfo, error) {
	response, err := c.Get(ctx, "/data/indexes", nil, "list indexes")
	if err != nil {
		return nil, err
	}

	var infos []IndexInfo
	for _, entry := range entries(response) {
		name, _ := entry["name"].(string)
		if filter != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(filter)) {
			continue
		}
		infos = append(infos, indexInfoFromEntry(name, entryContent(entry)))
	}
	return infos, nil
}

// GetIndex fetches detail for one index.
func (c *Client) GetIndex(ctx context.Context, name string) (*IndexInfo, error) {
	response, err := c.Get(ctx, "/data/indexes/"+url.PathEscape(name), nil, "get index info")
	if err != nil {
		return nil, err
	}
	indexEntries := entries(response)
	if len(indexEntries) == 0 {
		return nil, &APIError{Kind: KindNotFound, StatusCode: 404, Operation: "get index info", Message: "index not found: " + name}
	}
	info := indexInfoFromEntry(name, entryContent(indexEntries[0]))
	return &info, nil
}

func indexInfoFromEntry(name string, content map[string]any) IndexInfo {
	dataType, _ := content["datatype"].(string)
	if dataType == "" {
		dataType = "event"
	}
	return IndexInfo{
		Name:            name,
		TotalEventCount: int64(asFloat(content["totalEventCount"])),
		CurrentDBSizeMB: asFloat(content["currentDBSizeMB"]),
		MaxDataSizeMB:   asFloat(content["maxDataSizeMB"]),
		DataType:        dataType,
		Disabled:        asBool(content["disabled"]),
		Content:         content,
	}
}

// Sourcetypes discovers sourcetypes via a `| metadata` oneshot search,
// optionally scoped to one index.
func (c *Client) Sourcetypes(ctx context.Context, index string) ([]map[string]any, error) {
	spl := "| metadata type=sourcetypes"
	if index != "" {
		spl += " index=" + index
	}
	spl += " | table sourcetype, totalCount, recentTime | sort -totalCount"
	return c.Oneshot(ctx, spl, OneshotOptions{MaxCount: 1000})
}

// Sources discovers sources via a `| metadata` oneshot search.
func (c *Client) Sources(ctx context.Context, index string) ([]map[string]any, error) {
	spl := "| metadata type=sources"
	if index != "" {
		spl += " index=" + index
	}
	spl += " | table source, totalCount | sort -totalCount | head 100"
	return c.Oneshot(ctx, spl, OneshotOptions{MaxCount: 1000})
}

// FieldSummary runs fieldsummary over an index to report its field shape.
func (c *Client) FieldSummary(ctx context.Context, index, sourcetype, earliest string) ([]map[string]any, error) {
	spl := "index=" + index
	if sourcetype != "" {
		spl += " sourcetype=" + sourcetype
	}
	spl += " | fieldsummary | sort -count | head 50"
	return c.Oneshot(ctx, spl, OneshotOptions{EarliestTime: earliest, MaxCount: 100})
}

// MetadataSearch runs the raw `| metadata` command for hosts, sources, or
// sourcetypes.
func (c *Client) MetadataSearch(ctx context.Context, metadataType, index, earliest string) ([]map[string]any, error) {
	spl := "| metadata type=" + metadataType
	if index != "" {
		spl += " index=" + index
	}
	spl += " | table * | sort -totalCount | head 100"
	return c.Oneshot(ctx, spl, OneshotOptions{EarliestTime: earliest, MaxCount: 1000})
}
