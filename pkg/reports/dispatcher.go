package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

const reportFields = "Id, Name, DeveloperName, FolderName, Format, Description, LastRunDate"

// Handle validates req, runs it against conn and renders the outcome. It
// never returns a Go error: every failure is an error Result.
func Handle(ctx context.Context, conn Connection, req Request) Result {
	if !req.Operation.Valid() {
		return errorResult("Unknown operation: %s. Valid operations: %s", req.Operation, operationNames())
	}
	if req.Operation != OperationList && req.ReportID == "" {
		return errorResult("Error: reportId is required for the '%s' operation", req.Operation)
	}
	if req.Operation == OperationGetInstanceResults && req.InstanceID == "" {
		return errorResult("Error: instanceId is required for the '%s' operation", req.Operation)
	}
	if err := ValidateLimit(req.Limit); err != nil {
		return errorResult("Error: %v", err)
	}
	if conn == nil {
		return errorResult("Error: no Salesforce connection is configured")
	}

	log.DefaultLogger.Debug("Running report operation", "operation", string(req.Operation), "report_id", req.ReportID)

	text, err := run(ctx, conn, req)
	if err != nil {
		log.DefaultLogger.Warn("Report operation failed", "operation", string(req.Operation), "report_id", req.ReportID, "error", err)
		return Result{Text: TranslateError(req.Operation, err), IsError: true}
	}
	return textResult(text)
}

func run(ctx context.Context, conn Connection, req Request) (string, error) {
	switch req.Operation {
	case OperationList:
		return listReports(ctx, conn, req)

	case OperationDescribe:
		description, err := conn.DescribeReport(ctx, req.ReportID)
		if err != nil {
			return "", err
		}
		return renderDescription(description), nil

	case OperationExecute:
		result, err := conn.ExecuteReport(ctx, req.ReportID, executeOptions(req))
		if err != nil {
			return "", err
		}
		return Format(result, req.IncludeDetails), nil

	case OperationExecuteAsync:
		instance, err := conn.ExecuteReportAsync(ctx, req.ReportID, executeOptions(req))
		if err != nil {
			return "", err
		}
		return renderInstanceStarted(req.ReportID, instance), nil

	case OperationGetInstances:
		instances, err := conn.ReportInstances(ctx, req.ReportID)
		if err != nil {
			return "", err
		}
		return renderInstances(req.ReportID, instances), nil

	case OperationGetInstanceResults:
		result, err := conn.InstanceResults(ctx, req.ReportID, req.InstanceID)
		if err != nil {
			return "", err
		}
		return Format(result, req.IncludeDetails), nil
	}

	return "", fmt.Errorf("unhandled operation %s", req.Operation)
}

func listReports(ctx context.Context, conn Connection, req Request) (string, error) {
	if req.QueryFilter == "" {
		recent, err := conn.RecentReports(ctx)
		if err != nil {
			return "", err
		}
		return renderRecentReports(LimitResults(recent, req.Limit)), nil
	}

	result, err := conn.Query(ctx, BuildListQuery(req.QueryFilter, req.Limit))
	if err != nil {
		return "", err
	}

	records := make([]salesforce.ReportRecord, 0, len(result.Records))
	for _, raw := range result.Records {
		var record salesforce.ReportRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return "", fmt.Errorf("failed to decode report record: %w", err)
		}
		records = append(records, record)
	}
	return renderReportRecords(records), nil
}

// BuildListQuery returns the SOQL used by list when a filter is given
func BuildListQuery(queryFilter string, limit int) string {
	return fmt.Sprintf("SELECT %s FROM Report WHERE %s LIMIT %d", reportFields, queryFilter, soqlLimit(limit))
}

// executeOptions builds the run options for execute and executeAsync.
// Filters become a metadata override that replaces the saved filters for
// this run; the saved report is not touched.
func executeOptions(req Request) salesforce.ExecuteOptions {
	opts := salesforce.ExecuteOptions{Details: req.IncludeDetails}
	if len(req.Filters) > 0 {
		filters := make([]salesforce.ReportFilter, len(req.Filters))
		copy(filters, req.Filters)
		opts.Metadata = &salesforce.MetadataOverride{
			ReportMetadata: salesforce.FilterOverride{ReportFilters: filters},
		}
	}
	return opts
}
