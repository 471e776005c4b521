package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/reports"
	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

// scriptedModel replays canned replies and records what it was sent
type scriptedModel struct {
	replies  []openai.ChatCompletionMessage
	requests [][]openai.ChatCompletionMessage
	tools    [][]openai.Tool
	err      error
}

func (s *scriptedModel) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	s.requests = append(s.requests, messages)
	s.tools = append(s.tools, tools)
	if s.err != nil {
		return openai.ChatCompletionMessage{}, s.err
	}
	if len(s.replies) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "done"}, nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

// recentOnlyConnection serves RecentReports and fails everything else
type recentOnlyConnection struct {
	recentCalls int
}

func (c *recentOnlyConnection) Query(ctx context.Context, soql string) (*salesforce.QueryResult, error) {
	return nil, errors.New("unexpected query")
}

func (c *recentOnlyConnection) RecentReports(ctx context.Context) ([]salesforce.ReportSummary, error) {
	c.recentCalls++
	return []salesforce.ReportSummary{{ID: "00O1", Name: "Pipeline"}}, nil
}

func (c *recentOnlyConnection) DescribeReport(ctx context.Context, reportID string) (*salesforce.ReportDescription, error) {
	return nil, &salesforce.APIError{StatusCode: 404, ErrorCode: "NOT_FOUND", Message: "missing"}
}

func (c *recentOnlyConnection) ExecuteReport(ctx context.Context, reportID string, opts salesforce.ExecuteOptions) (*salesforce.ReportResult, error) {
	return nil, errors.New("unexpected execute")
}

func (c *recentOnlyConnection) ExecuteReportAsync(ctx context.Context, reportID string, opts salesforce.ExecuteOptions) (*salesforce.ReportInstance, error) {
	return nil, errors.New("unexpected executeAsync")
}

func (c *recentOnlyConnection) ReportInstances(ctx context.Context, reportID string) ([]salesforce.ReportInstance, error) {
	return nil, errors.New("unexpected instances")
}

func (c *recentOnlyConnection) InstanceResults(ctx context.Context, reportID, instanceID string) (*salesforce.ReportResult, error) {
	return nil, errors.New("unexpected instance results")
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func TestNewManagerRequiresCollaborators(t *testing.T) {
	if _, err := NewManager(nil, &recentOnlyConnection{}, ""); err == nil {
		t.Error("expected error without model")
	}
	if _, err := NewManager(&scriptedModel{}, nil, ""); err == nil {
		t.Error("expected error without connection")
	}
}

func TestRunChatWithoutTools(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, Content: "Hello!"},
	}}
	manager, err := NewManager(model, &recentOnlyConnection{}, "system prompt")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	got, err := manager.RunChat(context.Background(), "hi", "s1")
	if err != nil {
		t.Fatalf("RunChat() error = %v", err)
	}
	if got != "Hello!" {
		t.Errorf("RunChat() = %q", got)
	}

	sent := model.requests[0]
	if sent[0].Role != openai.ChatMessageRoleSystem || sent[0].Content != "system prompt" {
		t.Errorf("first message = %+v", sent[0])
	}
	if sent[len(sent)-1].Content != "hi" {
		t.Errorf("last message = %+v", sent[len(sent)-1])
	}
	if len(model.tools[0]) != 1 || model.tools[0][0].Function.Name != reports.ToolName {
		t.Errorf("expected report tool advertised, got %+v", model.tools[0])
	}
}

func TestRunChatExecutesToolCalls(t *testing.T) {
	conn := &recentOnlyConnection{}
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{
				toolCall("call_1", reports.ToolName, `{"operation":"list"}`),
				toolCall("call_2", reports.ToolName, `{"operation":"describe","reportId":"00OXX"}`),
			},
		},
		{Role: openai.ChatMessageRoleAssistant, Content: "You recently viewed Pipeline."},
	}}
	manager, _ := NewManager(model, conn, "system")

	got, err := manager.RunChat(context.Background(), "what did I look at?", "s1")
	if err != nil {
		t.Fatalf("RunChat() error = %v", err)
	}
	if got != "You recently viewed Pipeline." {
		t.Errorf("RunChat() = %q", got)
	}
	if conn.recentCalls != 1 {
		t.Errorf("RecentReports calls = %d, want 1", conn.recentCalls)
	}

	second := model.requests[1]
	toolMessages := second[len(second)-2:]
	if toolMessages[0].Role != openai.ChatMessageRoleTool || toolMessages[0].ToolCallID != "call_1" {
		t.Errorf("first tool message = %+v", toolMessages[0])
	}
	if !strings.Contains(toolMessages[0].Content, "1. Pipeline") {
		t.Errorf("list result not forwarded: %q", toolMessages[0].Content)
	}
	if !strings.Contains(toolMessages[1].Content, "Error executing describe operation") {
		t.Errorf("describe error not forwarded: %q", toolMessages[1].Content)
	}
}

func TestRunChatRejectsUnknownToolAndBadArguments(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{
				toolCall("call_1", "delete_everything", `{}`),
				toolCall("call_2", reports.ToolName, `{not json`),
			},
		},
	}}
	manager, _ := NewManager(model, &recentOnlyConnection{}, "system")

	if _, err := manager.RunChat(context.Background(), "go", "s1"); err != nil {
		t.Fatalf("RunChat() error = %v", err)
	}

	second := model.requests[1]
	toolMessages := second[len(second)-2:]
	if !strings.Contains(toolMessages[0].Content, "unknown tool") {
		t.Errorf("unexpected content: %q", toolMessages[0].Content)
	}
	if !strings.Contains(toolMessages[1].Content, "failed to parse tool arguments") {
		t.Errorf("unexpected content: %q", toolMessages[1].Content)
	}
}

func TestRunChatBoundsToolRounds(t *testing.T) {
	loop := openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{toolCall("call", reports.ToolName, `{"operation":"list"}`)},
	}
	var replies []openai.ChatCompletionMessage
	for i := 0; i < DefaultMaxToolRounds+3; i++ {
		replies = append(replies, loop)
	}
	model := &scriptedModel{replies: replies}
	conn := &recentOnlyConnection{}
	manager, _ := NewManager(model, conn, "system")

	if _, err := manager.RunChat(context.Background(), "loop", "s1"); err != nil {
		t.Fatalf("RunChat() error = %v", err)
	}

	if len(model.requests) != DefaultMaxToolRounds+1 {
		t.Errorf("model calls = %d, want %d", len(model.requests), DefaultMaxToolRounds+1)
	}
	if conn.recentCalls != DefaultMaxToolRounds {
		t.Errorf("tool executions = %d, want %d", conn.recentCalls, DefaultMaxToolRounds)
	}
	if last := model.tools[len(model.tools)-1]; last != nil {
		t.Error("expected final round without tools")
	}
}

func TestRunChatKeepsSessionHistory(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, Content: "first answer"},
		{Role: openai.ChatMessageRoleAssistant, Content: "second answer"},
		{Role: openai.ChatMessageRoleAssistant, Content: "other session"},
	}}
	manager, _ := NewManager(model, &recentOnlyConnection{}, "system")

	_, _ = manager.RunChat(context.Background(), "first question", "s1")
	_, _ = manager.RunChat(context.Background(), "second question", "s1")
	_, _ = manager.RunChat(context.Background(), "unrelated", "s2")

	second := model.requests[1]
	if len(second) != 4 {
		t.Fatalf("second turn sent %d messages, want 4", len(second))
	}
	if second[1].Content != "first question" || second[2].Content != "first answer" {
		t.Errorf("history not replayed: %+v", second)
	}

	third := model.requests[2]
	if len(third) != 2 {
		t.Errorf("new session sent %d messages, want 2", len(third))
	}
}

func TestRunChatModelError(t *testing.T) {
	model := &scriptedModel{err: errors.New("boom")}
	manager, _ := NewManager(model, &recentOnlyConnection{}, "system")

	if _, err := manager.RunChat(context.Background(), "hi", "s1"); err == nil {
		t.Fatal("expected error")
	}
	if n := len(manager.history("s1").Messages()); n != 0 {
		t.Errorf("failed turn should not be recorded, got %d messages", n)
	}
}

func TestIdleSessionsExpire(t *testing.T) {
	manager, _ := NewManager(&scriptedModel{}, &recentOnlyConnection{}, "system")
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return now }

	_, _ = manager.RunChat(context.Background(), "hi", "old")
	now = now.Add(2 * DefaultSessionIdleTTL)
	_, _ = manager.RunChat(context.Background(), "hi", "new")

	if stats := manager.Stats(); stats.Sessions != 1 {
		t.Errorf("Stats().Sessions = %d, want 1", stats.Sessions)
	}
}

func TestManagerStats(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, Content: "four"},
		{Role: openai.ChatMessageRoleAssistant, Content: "six"},
	}}
	manager, _ := NewManager(model, &recentOnlyConnection{}, "system")

	_, _ = manager.RunChat(context.Background(), "2+2", "s1")
	_, _ = manager.RunChat(context.Background(), "3+3", "s2")

	want := SessionStats{Sessions: 2, Messages: 4, Characters: 3 + 4 + 3 + 3}
	if got := manager.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestClearSession(t *testing.T) {
	manager, _ := NewManager(&scriptedModel{}, &recentOnlyConnection{}, "system")
	_, _ = manager.RunChat(context.Background(), "hi", "s1")

	manager.ClearSession("s1")
	if n := len(manager.history("s1").Messages()); n != 0 {
		t.Errorf("history after ClearSession = %d messages", n)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	if got := BuildSystemPrompt(""); got != SYSTEM_PROMPT {
		t.Error("expected base prompt without an org")
	}
	got := BuildSystemPrompt("https://acme.my.salesforce.com")
	if !strings.HasPrefix(got, SYSTEM_PROMPT) || !strings.Contains(got, "https://acme.my.salesforce.com") {
		t.Errorf("unexpected prompt suffix: %q", got[len(SYSTEM_PROMPT):])
	}
}
