package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/reports"
)

const healthTimeout = 3 * time.Second

// handleReports runs one report operation. Dispatcher failures are reported
// in the body with isError set, not as HTTP errors.
func (i *Instance) handleReports(ctx context.Context, req *backend.CallResourceRequest, sender backend.CallResourceResponseSender) error {
	var args map[string]interface{}
	if err := json.Unmarshal(req.Body, &args); err != nil {
		return sendError(sender, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	result := reports.HandleArguments(ctx, i.conn, args)
	log.DefaultLogger.Info("Reports request", "operation", args["operation"], "is_error", result.IsError)

	return sendJSON(sender, http.StatusOK, result)
}

// handleChat handles chat requests to the report assistant
func (i *Instance) handleChat(ctx context.Context, req *backend.CallResourceRequest, sender backend.CallResourceResponseSender) error {
	if i.assistant == nil {
		return sendError(sender, http.StatusServiceUnavailable, "Report assistant is not configured: set an OpenAI API key")
	}

	var chatReq ChatRequest
	if err := json.Unmarshal(req.Body, &chatReq); err != nil {
		return sendError(sender, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	if strings.TrimSpace(chatReq.Message) == "" {
		return sendError(sender, http.StatusBadRequest, "Message is required")
	}

	if chatReq.SessionID == "" {
		chatReq.SessionID = "session-" + uuid.NewString()
	}

	log.DefaultLogger.Info("Chat request", "session", chatReq.SessionID, "message_length", len(chatReq.Message))

	message := buildContextualMessage(chatReq.Message, chatReq.ReportContext)

	response, err := i.assistant.RunChat(ctx, message, chatReq.SessionID)
	if err != nil {
		log.DefaultLogger.Error("Chat failed", "error", err)
		return sendError(sender, http.StatusInternalServerError, fmt.Sprintf("Chat failed: %v", err))
	}

	return sendJSON(sender, http.StatusOK, ChatResponse{
		Response:  response,
		SessionID: chatReq.SessionID,
	})
}

// handleClearChat drops the history of one chat session
func (i *Instance) handleClearChat(ctx context.Context, req *backend.CallResourceRequest, sender backend.CallResourceResponseSender) error {
	if i.assistant == nil {
		return sendError(sender, http.StatusServiceUnavailable, "Report assistant is not configured: set an OpenAI API key")
	}

	var clearReq ClearChatRequest
	if err := json.Unmarshal(req.Body, &clearReq); err != nil {
		return sendError(sender, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if clearReq.SessionID == "" {
		return sendError(sender, http.StatusBadRequest, "session_id is required")
	}

	i.assistant.ClearSession(clearReq.SessionID)
	log.DefaultLogger.Info("Chat session cleared", "session", clearReq.SessionID)

	return sendJSON(sender, http.StatusOK, clearReq)
}

// handleHealth checks Salesforce connectivity and reports the assistant state
func (i *Instance) handleHealth(ctx context.Context, req *backend.CallResourceRequest, sender backend.CallResourceResponseSender) error {
	response := HealthResponse{
		Status:     "healthy",
		Salesforce: ComponentHealth{OK: true},
		Assistant: AssistantHealth{
			Configured: i.assistant != nil,
		},
	}
	if response.Assistant.Configured {
		stats := i.assistant.Stats()
		response.Assistant.Sessions = &stats
		if i.settings != nil {
			response.Assistant.Model = i.settings.AssistantModel()
		}
	}

	healthCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	_, err := i.conn.RecentReports(healthCtx)
	cancel()

	statusCode := http.StatusOK
	if err != nil {
		response.Status = "unhealthy"
		response.Salesforce = ComponentHealth{OK: false, Error: err.Error()}
		statusCode = http.StatusServiceUnavailable
	}

	return sendJSON(sender, statusCode, response)
}

// buildContextualMessage injects the current report into the user message
func buildContextualMessage(userMessage string, ctx *ReportContext) string {
	if ctx == nil {
		return userMessage
	}

	var contextParts []string

	contextParts = append(contextParts, "[Report Context]")

	if ctx.Name != "" {
		contextParts = append(contextParts, fmt.Sprintf("Report: %s", ctx.Name))
	}

	if ctx.ReportID != "" {
		contextParts = append(contextParts, fmt.Sprintf("Report ID: %s", ctx.ReportID))
	}

	if ctx.Folder != "" {
		contextParts = append(contextParts, fmt.Sprintf("Folder: %s", ctx.Folder))
	}

	if len(ctx.Filters) > 0 {
		contextParts = append(contextParts, "Filters:")
		for _, f := range ctx.Filters {
			contextParts = append(contextParts, fmt.Sprintf("  - %s %s %s", f.Column, f.Operator, f.Value))
		}
	}

	if len(contextParts) > 1 {
		contextStr := strings.Join(contextParts, "\n")
		return fmt.Sprintf("%s\n\n%s", contextStr, userMessage)
	}

	return userMessage
}
