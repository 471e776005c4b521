package reports

import (
	"context"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

// Connection is the authenticated Salesforce session the dispatcher talks
// to. *salesforce.Client implements it.
type Connection interface {
	Query(ctx context.Context, soql string) (*salesforce.QueryResult, error)
	RecentReports(ctx context.Context) ([]salesforce.ReportSummary, error)
	DescribeReport(ctx context.Context, reportID string) (*salesforce.ReportDescription, error)
	ExecuteReport(ctx context.Context, reportID string, opts salesforce.ExecuteOptions) (*salesforce.ReportResult, error)
	ExecuteReportAsync(ctx context.Context, reportID string, opts salesforce.ExecuteOptions) (*salesforce.ReportInstance, error)
	ReportInstances(ctx context.Context, reportID string) ([]salesforce.ReportInstance, error)
	InstanceResults(ctx context.Context, reportID, instanceID string) (*salesforce.ReportResult, error)
}

var _ Connection = (*salesforce.Client)(nil)
