package agent

import (
	"sync"

	"github.com/sashabaranov/go-openai"
)

// Default history limits
const (
	DefaultMaxMessages   = 100    // Maximum number of messages to retain
	DefaultMaxCharacters = 100000 // Maximum total characters (~25k tokens)
)

// HistoryConfig holds the limits of a session history
type HistoryConfig struct {
	MaxMessages   int // 0 = default, <0 = unlimited
	MaxCharacters int // 0 = default, <0 = unlimited
}

// History is the bounded user/assistant transcript of one chat session.
// Tool round trips are not kept.
type History struct {
	mu            sync.RWMutex
	messages      []openai.ChatCompletionMessage
	totalChars    int
	maxMessages   int
	maxCharacters int
}

// NewHistory creates an empty history with the default limits
func NewHistory() *History {
	return NewHistoryWithConfig(HistoryConfig{})
}

// NewHistoryWithConfig creates an empty history with custom limits
func NewHistoryWithConfig(config HistoryConfig) *History {
	if config.MaxMessages == 0 {
		config.MaxMessages = DefaultMaxMessages
	}
	if config.MaxCharacters == 0 {
		config.MaxCharacters = DefaultMaxCharacters
	}

	return &History{
		maxMessages:   config.MaxMessages,
		maxCharacters: config.MaxCharacters,
	}
}

// Append adds a message and drops the oldest ones once a limit is exceeded.
// The newest message is always kept.
func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, openai.ChatCompletionMessage{Role: role, Content: content})
	h.totalChars += len(content)

	for h.maxMessages > 0 && len(h.messages) > h.maxMessages {
		h.dropOldest()
	}
	for h.maxCharacters > 0 && h.totalChars > h.maxCharacters && len(h.messages) > 1 {
		h.dropOldest()
	}
}

// dropOldest must be called with mu held
func (h *History) dropOldest() {
	h.totalChars -= len(h.messages[0].Content)
	h.messages = h.messages[1:]
}

// Messages returns a copy of the transcript, oldest first
func (h *History) Messages() []openai.ChatCompletionMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]openai.ChatCompletionMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// HistoryStats holds statistics about history usage
type HistoryStats struct {
	MessageCount  int `json:"message_count"`
	TotalChars    int `json:"total_chars"`
	MaxMessages   int `json:"max_messages"`
	MaxCharacters int `json:"max_characters"`
}

// Stats returns the current usage against the limits
func (h *History) Stats() HistoryStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HistoryStats{
		MessageCount:  len(h.messages),
		TotalChars:    h.totalChars,
		MaxMessages:   h.maxMessages,
		MaxCharacters: h.maxCharacters,
	}
}

// Clear removes all messages
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = nil
	h.totalChars = 0
}
