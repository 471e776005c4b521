package plugin

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/llm"
	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

// Secure JSON keys read from DecryptedSecureJSONData
const (
	secretClientSecret  = "client_secret"
	secretPassword      = "password"
	secretSecurityToken = "security_token"
	secretAccessToken   = "access_token"
	secretOpenAIAPIKey  = "openai_api_key"
)

// PluginSettings holds the plugin configuration
type PluginSettings struct {
	LoginURL       string `json:"login_url"`
	InstanceURL    string `json:"instance_url"`
	ClientID       string `json:"client_id"`
	Username       string `json:"username"`
	APIVersion     string `json:"api_version"`
	TimeoutSeconds int    `json:"timeout_seconds"`

	OpenAIModel   string `json:"openai_model"`
	OpenAIBaseURL string `json:"openai_base_url"`

	// Secrets
	ClientSecret  string `json:"-"`
	Password      string `json:"-"`
	SecurityToken string `json:"-"`
	AccessToken   string `json:"-"`
	OpenAIAPIKey  string `json:"-"`
}

// LoadSettings loads plugin settings from JSON and the decrypted secrets
func LoadSettings(jsonData []byte, secrets map[string]string) (*PluginSettings, error) {
	settings := &PluginSettings{}

	if len(jsonData) > 0 {
		if err := json.Unmarshal(jsonData, settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	settings.ClientSecret = secrets[secretClientSecret]
	settings.Password = secrets[secretPassword]
	settings.SecurityToken = secrets[secretSecurityToken]
	settings.AccessToken = secrets[secretAccessToken]
	settings.OpenAIAPIKey = secrets[secretOpenAIAPIKey]

	return settings, nil
}

// Validate checks that a usable set of Salesforce credentials is present
func (s *PluginSettings) Validate() error {
	if s.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if _, err := s.SalesforceConfig().Mode(); err != nil {
		return err
	}
	return nil
}

// SalesforceConfig returns the connection settings for the Salesforce client
func (s *PluginSettings) SalesforceConfig() salesforce.Config {
	return salesforce.Config{
		LoginURL:      s.LoginURL,
		InstanceURL:   s.InstanceURL,
		AccessToken:   s.AccessToken,
		ClientID:      s.ClientID,
		ClientSecret:  s.ClientSecret,
		Username:      s.Username,
		Password:      s.Password,
		SecurityToken: s.SecurityToken,
		APIVersion:    s.APIVersion,
		Timeout:       time.Duration(s.TimeoutSeconds) * time.Second,
	}
}

// AssistantEnabled reports whether an OpenAI key is configured
func (s *PluginSettings) AssistantEnabled() bool {
	return s.OpenAIAPIKey != ""
}

// LLMConfig returns the OpenAI settings of the report assistant
func (s *PluginSettings) LLMConfig() llm.Config {
	return llm.Config{
		APIKey:  s.OpenAIAPIKey,
		Model:   s.OpenAIModel,
		BaseURL: s.OpenAIBaseURL,
	}
}

// AssistantModel returns the model the assistant will use
func (s *PluginSettings) AssistantModel() string {
	if s.OpenAIModel == "" {
		return llm.DefaultModel
	}
	return s.OpenAIModel
}
