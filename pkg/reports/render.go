package reports

import (
	"fmt"
	"strings"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

const notAvailable = "N/A"

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func renderRecentReports(recent LimitedResult[salesforce.ReportSummary]) string {
	if len(recent.Items) == 0 {
		return "No recently viewed reports found."
	}

	var b strings.Builder
	if recent.Truncated {
		fmt.Fprintf(&b, "Found %d recently viewed report(s), showing the first %d:\n", recent.Total, len(recent.Items))
	} else {
		fmt.Fprintf(&b, "Found %d recently viewed report(s):\n", recent.Total)
	}

	for i, r := range recent.Items {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, orNA(r.Name))
		fmt.Fprintf(&b, "   ID: %s\n", r.ID)
		if r.URL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", r.URL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderReportRecords(records []salesforce.ReportRecord) string {
	if len(records) == 0 {
		return "No reports found matching the filter."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d report(s):\n", len(records))

	for i, r := range records {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, orNA(r.Name))
		fmt.Fprintf(&b, "   ID: %s\n", r.ID)
		fmt.Fprintf(&b, "   Developer Name: %s\n", orNA(r.DeveloperName))
		fmt.Fprintf(&b, "   Format: %s\n", orNA(r.Format))
		fmt.Fprintf(&b, "   Folder: %s\n", orNA(r.FolderName))
		if r.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", r.Description)
		}
		if r.LastRunDate != "" {
			fmt.Fprintf(&b, "   Last Run: %s\n", r.LastRunDate)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDescription(d *salesforce.ReportDescription) string {
	if d == nil {
		return "No metadata returned."
	}

	meta := d.ReportMetadata
	ext := d.ReportExtendedMetadata

	lines := []string{
		"Report: " + orNA(meta.Name),
		"ID: " + orNA(meta.ID),
		"Format: " + orNA(meta.ReportFormat),
	}
	if meta.ReportType != nil {
		lines = append(lines, fmt.Sprintf("Type: %s (%s)", orNA(meta.ReportType.Label), meta.ReportType.Type))
	}
	if meta.Description != "" {
		lines = append(lines, "Description: "+meta.Description)
	}

	if len(meta.DetailColumns) > 0 {
		lines = append(lines, "", fmt.Sprintf("Detail Columns (%d):", len(meta.DetailColumns)))
		for _, col := range meta.DetailColumns {
			info, ok := ext.DetailColumnInfo[col]
			if !ok {
				lines = append(lines, "  - "+col)
				continue
			}
			lines = append(lines, fmt.Sprintf("  - %s (%s) [%s]", orNA(info.Label), col, orNA(info.DataType)))
		}
	}

	lines = append(lines, renderGroupingInfo("Row Groupings", meta.GroupingsDown)...)
	lines = append(lines, renderGroupingInfo("Column Groupings", meta.GroupingsAcross)...)

	if len(meta.ReportFilters) > 0 {
		lines = append(lines, "", fmt.Sprintf("Filters (%d):", len(meta.ReportFilters)))
		for _, f := range meta.ReportFilters {
			lines = append(lines, fmt.Sprintf("  - %s %s %s", f.Column, f.Operator, f.Value))
		}
		if meta.ReportBooleanFilter != "" {
			lines = append(lines, "  Filter Logic: "+meta.ReportBooleanFilter)
		}
	}

	if len(ext.AggregateColumnInfo) > 0 {
		lines = append(lines, "", fmt.Sprintf("Aggregates (%d):", len(ext.AggregateColumnInfo)))
		for _, agg := range ext.AggregateColumnInfo {
			lines = append(lines, fmt.Sprintf("  - %s (%s) [%s]", orNA(agg.Label), agg.Name, orNA(agg.DataType)))
		}
	}

	if d.ReportTypeMetadata != nil && len(d.ReportTypeMetadata.Categories) > 0 {
		categories := d.ReportTypeMetadata.Categories
		lines = append(lines, "", fmt.Sprintf("Report Type Categories (%d):", len(categories)))
		for _, c := range categories {
			if c.Name == "" {
				lines = append(lines, "  - "+orNA(c.Label))
				continue
			}
			lines = append(lines, fmt.Sprintf("  - %s (%s)", orNA(c.Label), c.Name))
		}
	}

	return strings.Join(lines, "\n")
}

func renderGroupingInfo(title string, groupings []salesforce.GroupingInfo) []string {
	if len(groupings) == 0 {
		return nil
	}

	lines := []string{"", fmt.Sprintf("%s (%d):", title, len(groupings))}
	for _, g := range groupings {
		granularity := g.DateGranularity
		if granularity == "" {
			granularity = "none"
		}
		lines = append(lines, fmt.Sprintf("  - %s (sort: %s, date granularity: %s)", g.Name, orNA(g.SortOrder), granularity))
	}
	return lines
}

func renderInstanceStarted(reportID string, instance *salesforce.ReportInstance) string {
	if instance == nil {
		return fmt.Sprintf("Asynchronous run of report %s started, but no instance was returned.", reportID)
	}

	lines := []string{
		fmt.Sprintf("Asynchronous run of report %s started.", reportID),
		"Instance ID: " + orNA(instance.ID),
		"Status: " + orNA(instance.Status),
		"Request Date: " + orNA(instance.RequestDate),
		"",
		fmt.Sprintf("Use the getInstanceResults operation with reportId %s and instanceId %s to fetch the results once the run has finished.", reportID, orNA(instance.ID)),
	}
	return strings.Join(lines, "\n")
}

func renderInstances(reportID string, instances []salesforce.ReportInstance) string {
	if len(instances) == 0 {
		return fmt.Sprintf("No instances found for report %s.", reportID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d instance(s) for report %s:\n", len(instances), reportID)
	for i, inst := range instances {
		fmt.Fprintf(&b, "\n%d. Instance ID: %s\n", i+1, orNA(inst.ID))
		fmt.Fprintf(&b, "   Status: %s\n", orNA(inst.Status))
		fmt.Fprintf(&b, "   Request Date: %s\n", orNA(inst.RequestDate))
		fmt.Fprintf(&b, "   Completion Date: %s\n", orNA(inst.CompletionDate))
	}
	return strings.TrimRight(b.String(), "\n")
}
