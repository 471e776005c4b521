package plugin

import (
	"github.com/sabio/salesforce-reports-mcp-go/pkg/agent"
	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message       string         `json:"message"`
	SessionID     string         `json:"session_id"`
	ReportContext *ReportContext `json:"report_context,omitempty"`
}

// ReportContext describes the report the user is looking at
type ReportContext struct {
	ReportID string                    `json:"report_id"`
	Name     string                    `json:"name"`
	Folder   string                    `json:"folder"`
	Filters  []salesforce.ReportFilter `json:"filters"`
}

// ClearChatRequest names the session whose history is dropped
type ClearChatRequest struct {
	SessionID string `json:"session_id"`
}

// ChatResponse represents a chat response
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// ComponentHealth is the health of one dependency
type ComponentHealth struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// AssistantHealth describes the report assistant configuration
type AssistantHealth struct {
	Configured bool                `json:"configured"`
	Model      string              `json:"model,omitempty"`
	Sessions   *agent.SessionStats `json:"sessions,omitempty"`
}

// HealthResponse is the body of the health resource
type HealthResponse struct {
	Status     string          `json:"status"`
	Salesforce ComponentHealth `json:"salesforce"`
	Assistant  AssistantHealth `json:"assistant"`
}
