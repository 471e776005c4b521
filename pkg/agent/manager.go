package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/sashabaranov/go-openai"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/reports"
)

const (
	// DefaultMaxToolRounds bounds the model/tool round trips of one chat turn
	DefaultMaxToolRounds = 5
	// DefaultSessionIdleTTL is how long an unused session keeps its history
	DefaultSessionIdleTTL = time.Hour
)

// ChatModel is the completion backend of the assistant. *llm.OpenAIClient
// implements it.
type ChatModel interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

type session struct {
	history  *History
	lastUsed time.Time
}

// Manager runs chat turns against the model and executes the report tool
// calls it makes.
type Manager struct {
	model         ChatModel
	conn          reports.Connection
	tools         []openai.Tool
	systemPrompt  string
	maxToolRounds int
	idleTTL       time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a new agent manager
func NewManager(model ChatModel, conn reports.Connection, systemPrompt string) (*Manager, error) {
	if model == nil {
		return nil, errors.New("a chat model is required")
	}
	if conn == nil {
		return nil, errors.New("a Salesforce connection is required")
	}

	return &Manager{
		model:         model,
		conn:          conn,
		tools:         []openai.Tool{reportsTool()},
		systemPrompt:  systemPrompt,
		maxToolRounds: DefaultMaxToolRounds,
		idleTTL:       DefaultSessionIdleTTL,
		now:           time.Now,
		sessions:      make(map[string]*session),
	}, nil
}

func reportsTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        reports.ToolName,
			Description: reports.ToolDescription,
			Parameters:  reports.InputSchema(),
		},
	}
}

// RunChat executes one chat turn. Tool calls are served through the report
// dispatcher; after maxToolRounds the model must answer without tools.
func (m *Manager) RunChat(ctx context.Context, userMessage, sessionID string) (string, error) {
	history := m.history(sessionID)

	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: m.systemPrompt,
	}}
	messages = append(messages, history.Messages()...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	var reply openai.ChatCompletionMessage
	for round := 0; ; round++ {
		tools := m.tools
		if round >= m.maxToolRounds {
			tools = nil
		}

		var err error
		reply, err = m.model.Chat(ctx, messages, tools)
		if err != nil {
			return "", fmt.Errorf("OpenAI chat failed: %w", err)
		}
		if len(reply.ToolCalls) == 0 || tools == nil {
			break
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.runTool(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	history.Append(openai.ChatMessageRoleUser, userMessage)
	history.Append(openai.ChatMessageRoleAssistant, reply.Content)

	return reply.Content, nil
}

func (m *Manager) runTool(ctx context.Context, call openai.ToolCall) string {
	if call.Function.Name != reports.ToolName {
		return fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return fmt.Sprintf("Error: failed to parse tool arguments: %v", err)
	}

	log.DefaultLogger.Debug("Assistant tool call", "tool_call_id", call.ID, "operation", args["operation"])
	return reports.HandleArguments(ctx, m.conn, args).Text
}

// history returns the session history, dropping sessions idle for too long
func (m *Manager) history(sessionID string) *History {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, s := range m.sessions {
		if id != sessionID && now.Sub(s.lastUsed) > m.idleTTL {
			delete(m.sessions, id)
		}
	}

	s, ok := m.sessions[sessionID]
	if !ok || now.Sub(s.lastUsed) > m.idleTTL {
		s = &session{history: NewHistory()}
		m.sessions[sessionID] = s
	}
	s.lastUsed = now
	return s.history
}

// SessionStats summarises the live sessions of a Manager
type SessionStats struct {
	Sessions   int `json:"sessions"`
	Messages   int `json:"messages"`
	Characters int `json:"characters"`
}

// Stats returns the number of live sessions and the history they hold
func (m *Manager) Stats() SessionStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := SessionStats{Sessions: len(m.sessions)}
	for _, s := range m.sessions {
		h := s.history.Stats()
		stats.Messages += h.MessageCount
		stats.Characters += h.TotalChars
	}
	return stats
}

// ClearSession clears the conversation history for a session
func (m *Manager) ClearSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		s.history.Clear()
	}
}
