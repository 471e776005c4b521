package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/reports"
)

const (
	serverName    = "salesforce-reports-mcp-server"
	serverVersion = "1.0.0"
)

// Options tunes an MCPServer. Zero rate limit values disable limiting; a
// nil Metrics records nothing.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Metrics        *Metrics
	Logger         log.Logger
}

// MCPServer wraps the Salesforce connection and MCP server
type MCPServer struct {
	conn    reports.Connection
	server  *server.MCPServer
	limiter *rate.Limiter
	metrics *Metrics
	logger  log.Logger
}

// NewMCPServer creates a new MCP server over a Salesforce connection
func NewMCPServer(conn reports.Connection, opts Options) *MCPServer {
	logger := opts.Logger
	if logger == nil {
		logger = log.DefaultLogger
	}

	return &MCPServer{
		conn: conn,
		server: server.NewMCPServer(
			serverName,
			serverVersion,
		),
		limiter: newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// GetServer returns the underlying MCP server
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.server
}

// RegisterTools registers all MCP tools and returns how many were added
func (s *MCPServer) RegisterTools() int {
	s.server.AddTool(s.reportsTool(), s.handleReports)
	return 1
}

func (s *MCPServer) reportsTool() mcp.Tool {
	return mcp.Tool{
		Name:        reports.ToolName,
		Description: reports.ToolDescription,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: reports.SchemaProperties(),
			Required:   reports.RequiredArguments(),
		},
	}
}

func (s *MCPServer) handleReports(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	operation := operationLabel(arguments)

	if result := s.enforceRateLimit(); result != nil {
		s.logger.Warn("Tool call rejected by rate limiter", "tool", reports.ToolName, "operation", operation)
		s.metrics.RecordCall(operation, OutcomeRateLimited, 0)
		return result, nil
	}

	callID := uuid.NewString()
	start := time.Now()
	s.logger.Debug("Tool call started", "call_id", callID, "tool", reports.ToolName, "operation", operation)

	result := reports.HandleArguments(context.Background(), s.conn, arguments)

	elapsed := time.Since(start)
	outcome := OutcomeSuccess
	if result.IsError {
		outcome = OutcomeError
	}
	s.metrics.RecordCall(operation, outcome, elapsed)
	s.logger.Info("Tool call finished", "call_id", callID, "operation", operation, "outcome", outcome, "duration", elapsed.String())

	if result.IsError {
		return mcp.NewToolResultError(result.Text), nil
	}
	return mcp.NewToolResultText(result.Text), nil
}

// operationLabel keeps metric label cardinality bounded
func operationLabel(arguments map[string]interface{}) string {
	name, _ := arguments["operation"].(string)
	if op := reports.Operation(name); op.Valid() {
		return name
	}
	return "unknown"
}
