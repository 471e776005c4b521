package reports

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

const (
	noDataText    = "No data returned."
	grandTotalKey = "T!T"
)

// Format renders a report result tree as text. Sections with no data are
// skipped. The output depends only on its arguments.
func Format(result *salesforce.ReportResult, includeDetails bool) string {
	if result == nil {
		return noDataText
	}

	f := formatter{result: result, includeDetails: includeDetails}
	return strings.Join(f.lines(), "\n")
}

type formatter struct {
	result         *salesforce.ReportResult
	includeDetails bool
}

func (f formatter) lines() []string {
	meta := f.result.ReportMetadata

	name := meta.Name
	if name == "" {
		name = "Unnamed Report"
	}
	lines := []string{
		"Report: " + name,
		"Format: " + orNA(meta.ReportFormat),
	}
	if len(meta.ReportFilters) > 0 {
		lines = append(lines, fmt.Sprintf("Active Filters (%d):", len(meta.ReportFilters)))
		for _, filter := range meta.ReportFilters {
			lines = append(lines, fmt.Sprintf("  - %s %s %s", filter.Column, filter.Operator, filter.Value))
		}
	}

	if f.result.FactMap == nil {
		return append(lines, "", noDataText)
	}

	down := topGroupings(f.result.GroupingsDown)
	across := topGroupings(f.result.GroupingsAcross)
	if len(down) > 0 || len(across) > 0 {
		lines = append(lines, "")
		if len(down) > 0 {
			lines = append(lines, fmt.Sprintf("Row Groupings: %d", len(down)))
		}
		if len(across) > 0 {
			lines = append(lines, fmt.Sprintf("Column Groupings: %d", len(across)))
		}
	}

	grand := f.result.FactMap[grandTotalKey]
	if len(grand.Aggregates) > 0 {
		lines = append(lines, "", "Grand Totals:")
		lines = append(lines, f.aggregateLines(grand.Aggregates, "  ")...)
	}

	if f.includeDetails && len(grand.Rows) > 0 {
		lines = append(lines, "", fmt.Sprintf("Detail Rows (%d):", len(grand.Rows)))
		lines = append(lines, f.detailTable(grand.Rows)...)
	}

	if len(down) > 0 {
		lines = append(lines, "", "Grouped Results:")
		lines = append(lines, f.groupingLines(down, 0)...)
	}

	return lines
}

func topGroupings(g *salesforce.Groupings) []salesforce.Grouping {
	if g == nil {
		return nil
	}
	return g.Groupings
}

// aggregateLines labels the i-th aggregate with the i-th entry of the
// aggregate column info, in document order.
func (f formatter) aggregateLines(aggregates []salesforce.Cell, indent string) []string {
	info := f.result.ReportExtendedMetadata.AggregateColumnInfo

	lines := make([]string, 0, len(aggregates))
	for i, agg := range aggregates {
		label := fmt.Sprintf("Aggregate %d", i)
		if i < len(info) && info[i].Label != "" {
			label = info[i].Label
		}
		lines = append(lines, fmt.Sprintf("%s%s: %s", indent, label, cellText(agg)))
	}
	return lines
}

// columnLabel resolves the header of the i-th detail column
func (f formatter) columnLabel(i int) string {
	columns := f.result.ReportMetadata.DetailColumns
	if i >= len(columns) || columns[i] == "" {
		return fmt.Sprintf("Col%d", i)
	}
	name := columns[i]
	if info, ok := f.result.ReportExtendedMetadata.DetailColumnInfo[name]; ok && info.Label != "" {
		return info.Label
	}
	return name
}

func (f formatter) detailTable(rows []salesforce.DetailRow) []string {
	width := len(f.result.ReportMetadata.DetailColumns)
	for _, row := range rows {
		if len(row.DataCells) > width {
			width = len(row.DataCells)
		}
	}
	if width == 0 {
		return nil
	}

	header := make([]string, width)
	separator := make([]string, width)
	for i := range header {
		header[i] = tableCell(f.columnLabel(i))
		separator[i] = "---"
	}

	lines := []string{tableRow(header), tableRow(separator)}
	for _, row := range rows {
		cells := make([]string, len(row.DataCells))
		for i, cell := range row.DataCells {
			cells[i] = tableCell(cellText(cell))
		}
		lines = append(lines, tableRow(cells))
	}
	return lines
}

func tableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// groupingLines renders groupings depth first. Each group's subtotal and
// rows come right after its header, before its children.
func (f formatter) groupingLines(groupings []salesforce.Grouping, depth int) []string {
	headerIndent := strings.Repeat("  ", depth+1)
	bodyIndent := strings.Repeat("  ", depth+2)
	rowIndent := strings.Repeat("  ", depth+3)

	var lines []string
	for _, g := range groupings {
		lines = append(lines, fmt.Sprintf("%s%s (%s):", headerIndent, orNA(g.Label), valueText(g.Value)))

		bucket := f.result.FactMap[g.Key+"!T"]
		lines = append(lines, f.aggregateLines(bucket.Aggregates, bodyIndent)...)

		if f.includeDetails && len(bucket.Rows) > 0 {
			lines = append(lines, fmt.Sprintf("%sRows (%d):", bodyIndent, len(bucket.Rows)))
			for _, row := range bucket.Rows {
				pairs := make([]string, len(row.DataCells))
				for i, cell := range row.DataCells {
					pairs[i] = fmt.Sprintf("%s: %s", f.columnLabel(i), cellText(cell))
				}
				lines = append(lines, rowIndent+strings.Join(pairs, ", "))
			}
		}

		lines = append(lines, f.groupingLines(g.Groupings, depth+1)...)
	}
	return lines
}

// cellText prefers the display label, then the raw value, then N/A
func cellText(c salesforce.Cell) string {
	if c.Label != "" {
		return c.Label
	}
	return valueText(c.Value)
}

func valueText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return notAvailable
	case string:
		return orNA(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
