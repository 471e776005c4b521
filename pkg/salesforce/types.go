package salesforce

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ReportFilter is one runtime filter clause (column, operator, value)
type ReportFilter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// ReportSummary is an entry of the recently viewed reports list
type ReportSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url,omitempty"`
	DescribeURL  string `json:"describeUrl,omitempty"`
	InstancesURL string `json:"instancesUrl,omitempty"`
}

// ReportRecord is a row of the Report sObject as returned by SOQL
type ReportRecord struct {
	ID            string `json:"Id"`
	Name          string `json:"Name"`
	DeveloperName string `json:"DeveloperName"`
	FolderName    string `json:"FolderName"`
	Format        string `json:"Format"`
	Description   string `json:"Description"`
	LastRunDate   string `json:"LastRunDate"`
}

// QueryResult is the SOQL query response; records are decoded by the caller
type QueryResult struct {
	TotalSize int               `json:"totalSize"`
	Done      bool              `json:"done"`
	Records   []json.RawMessage `json:"records"`
}

// ReportInstance describes one asynchronous run of a report
type ReportInstance struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	RequestDate    string `json:"requestDate,omitempty"`
	CompletionDate string `json:"completionDate,omitempty"`
	OwnerID        string `json:"ownerId,omitempty"`
	HasDetailRows  bool   `json:"hasDetailRows,omitempty"`
	URL            string `json:"url,omitempty"`
}

// ExecuteOptions controls a sync or async report run
type ExecuteOptions struct {
	Details  bool              `json:"details"`
	Metadata *MetadataOverride `json:"metadata,omitempty"`
}

// MetadataOverride is sent as the request body of a run. It replaces the
// saved filters for that run only.
type MetadataOverride struct {
	ReportMetadata FilterOverride `json:"reportMetadata"`
}

// FilterOverride carries only the runtime report filters
type FilterOverride struct {
	ReportFilters []ReportFilter `json:"reportFilters"`
}

// ReportType identifies the report type a report is built on
type ReportType struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// GroupingInfo is a grouping definition in report metadata
type GroupingInfo struct {
	Name            string `json:"name"`
	SortOrder       string `json:"sortOrder"`
	DateGranularity string `json:"dateGranularity,omitempty"`
}

// ReportMetadata is the saved definition of a report
type ReportMetadata struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	DeveloperName       string         `json:"developerName,omitempty"`
	Description         string         `json:"description,omitempty"`
	ReportFormat        string         `json:"reportFormat"`
	ReportType          *ReportType    `json:"reportType,omitempty"`
	DetailColumns       []string       `json:"detailColumns,omitempty"`
	Aggregates          []string       `json:"aggregates,omitempty"`
	ReportFilters       []ReportFilter `json:"reportFilters,omitempty"`
	ReportBooleanFilter string         `json:"reportBooleanFilter,omitempty"`
	GroupingsDown       []GroupingInfo `json:"groupingsDown,omitempty"`
	GroupingsAcross     []GroupingInfo `json:"groupingsAcross,omitempty"`
}

// ColumnInfo holds the display metadata of a column
type ColumnInfo struct {
	Label    string `json:"label"`
	DataType string `json:"dataType"`
}

// NamedColumnInfo pairs a column key with its info
type NamedColumnInfo struct {
	Name string
	ColumnInfo
}

// ColumnInfoList is a column-info object decoded in document order.
// Aggregate values are matched to labels by position, so key order is
// part of the contract.
type ColumnInfoList []NamedColumnInfo

// UnmarshalJSON decodes a JSON object keeping its key order
func (l *ColumnInfoList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("column info: expected object, got %v", tok)
	}

	var out ColumnInfoList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("column info: expected key, got %v", keyTok)
		}

		var info ColumnInfo
		if err := dec.Decode(&info); err != nil {
			return fmt.Errorf("column info %q: %w", key, err)
		}
		out = append(out, NamedColumnInfo{Name: key, ColumnInfo: info})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*l = out
	return nil
}

// MarshalJSON encodes the list back into an object in the same order
func (l ColumnInfoList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.ColumnInfo)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExtendedMetadata carries labels and data types for report columns
type ExtendedMetadata struct {
	DetailColumnInfo    map[string]ColumnInfo `json:"detailColumnInfo,omitempty"`
	AggregateColumnInfo ColumnInfoList        `json:"aggregateColumnInfo,omitempty"`
	GroupingColumnInfo  map[string]ColumnInfo `json:"groupingColumnInfo,omitempty"`
}

// Cell is an aggregate value or a detail-row data cell
type Cell struct {
	Label string      `json:"label,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// DetailRow is a record-level row of a fact map bucket
type DetailRow struct {
	DataCells []Cell `json:"dataCells"`
}

// FactMapEntry is the bucket stored under a group-path key such as "T!T"
type FactMapEntry struct {
	Aggregates []Cell      `json:"aggregates,omitempty"`
	Rows       []DetailRow `json:"rows,omitempty"`
}

// Grouping is one node of the grouping tree
type Grouping struct {
	Key       string      `json:"key"`
	Label     string      `json:"label"`
	Value     interface{} `json:"value"`
	Groupings []Grouping  `json:"groupings,omitempty"`
}

// Groupings wraps the top level of a grouping tree
type Groupings struct {
	Groupings []Grouping `json:"groupings"`
}

// ReportResult is the result tree of a sync run or a finished async instance
type ReportResult struct {
	AllData                bool                    `json:"allData"`
	HasDetailRows          bool                    `json:"hasDetailRows"`
	ReportMetadata         ReportMetadata          `json:"reportMetadata"`
	ReportExtendedMetadata ExtendedMetadata        `json:"reportExtendedMetadata"`
	FactMap                map[string]FactMapEntry `json:"factMap"`
	GroupingsDown          *Groupings              `json:"groupingsDown,omitempty"`
	GroupingsAcross        *Groupings              `json:"groupingsAcross,omitempty"`
}

// ReportCategory is a field category of a report type
type ReportCategory struct {
	Label   string                `json:"label"`
	Name    string                `json:"name,omitempty"`
	Columns map[string]ColumnInfo `json:"columns,omitempty"`
}

// ReportTypeMetadata describes the report type behind a report
type ReportTypeMetadata struct {
	Categories []ReportCategory `json:"categories,omitempty"`
}

// ReportDescription is the describe response; metadata only, no data
type ReportDescription struct {
	ReportMetadata         ReportMetadata      `json:"reportMetadata"`
	ReportExtendedMetadata ExtendedMetadata    `json:"reportExtendedMetadata"`
	ReportTypeMetadata     *ReportTypeMetadata `json:"reportTypeMetadata,omitempty"`
}
