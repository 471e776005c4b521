package salesforce

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response of the REST API. Salesforce reports
// failures as a list of {errorCode, message} objects; the first code is kept
// and all messages are joined.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.ErrorCode, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Message)
}

func newAPIError(statusCode int, body []byte) *APIError {
	var payload []struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload) > 0 {
		messages := make([]string, 0, len(payload))
		for _, p := range payload {
			if p.Message != "" {
				messages = append(messages, p.Message)
			}
		}
		return &APIError{
			StatusCode: statusCode,
			ErrorCode:  payload[0].ErrorCode,
			Message:    strings.Join(messages, "; "),
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// AuthError is a rejected OAuth token request
type AuthError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("token request returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("token request returned status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}
