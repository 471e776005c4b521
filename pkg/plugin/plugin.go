package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"golang.org/x/sync/singleflight"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/agent"
	"github.com/sabio/salesforce-reports-mcp-go/pkg/llm"
	"github.com/sabio/salesforce-reports-mcp-go/pkg/reports"
	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
)

// Make sure Plugin implements required interfaces
var (
	_ backend.CallResourceHandler = (*Plugin)(nil)
)

// Assistant answers chat messages about reports. *agent.Manager implements it.
type Assistant interface {
	RunChat(ctx context.Context, userMessage, sessionID string) (string, error)
	ClearSession(sessionID string)
	Stats() agent.SessionStats
}

// InstanceFactory builds the per-org instance from validated settings
type InstanceFactory func(ctx context.Context, settings *PluginSettings) (*Instance, error)

// Plugin is the main plugin struct that manages instances
type Plugin struct {
	mu          sync.RWMutex
	instances   map[int64]*Instance
	creating    singleflight.Group
	newInstance InstanceFactory
}

// Instance represents a plugin instance for a specific org
type Instance struct {
	conn      reports.Connection
	assistant Assistant
	settings  *PluginSettings
}

// NewPlugin creates a new Plugin
func NewPlugin() *Plugin {
	return &Plugin{
		instances:   make(map[int64]*Instance),
		newInstance: createInstance,
	}
}

// CallResource handles HTTP requests to plugin resources
func (p *Plugin) CallResource(ctx context.Context, req *backend.CallResourceRequest, sender backend.CallResourceResponseSender) error {
	log.DefaultLogger.Info("CallResource", "path", req.Path, "method", req.Method)

	instance, err := p.getInstance(ctx, req.PluginContext)
	if err != nil {
		return sendError(sender, http.StatusInternalServerError, fmt.Sprintf("Failed to get plugin instance: %v", err))
	}

	type resourceHandler func(context.Context, *backend.CallResourceRequest, backend.CallResourceResponseSender) error
	route := func(handlers map[string]resourceHandler) error {
		handler, ok := handlers[req.Method]
		if !ok {
			return sendError(sender, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed", req.Method))
		}
		return handler(ctx, req, sender)
	}

	switch req.Path {
	case "reports":
		return route(map[string]resourceHandler{http.MethodPost: instance.handleReports})
	case "chat":
		return route(map[string]resourceHandler{
			http.MethodPost:   instance.handleChat,
			http.MethodDelete: instance.handleClearChat,
		})
	case "health":
		return route(map[string]resourceHandler{http.MethodGet: instance.handleHealth})
	default:
		return sendError(sender, http.StatusNotFound, "Not found")
	}
}

// getInstance gets or creates an instance for the given plugin context
func (p *Plugin) getInstance(ctx context.Context, pluginCtx backend.PluginContext) (*Instance, error) {
	// Use OrgID as the instance key since this is an app plugin
	instanceID := pluginCtx.OrgID

	p.mu.RLock()
	instance, exists := p.instances[instanceID]
	p.mu.RUnlock()

	if exists {
		return instance, nil
	}

	// Instances are created outside the lock; concurrent requests for the
	// same org share one login.
	v, err, _ := p.creating.Do(strconv.FormatInt(instanceID, 10), func() (interface{}, error) {
		// Double-check, an earlier call may have just finished
		p.mu.RLock()
		instance, exists := p.instances[instanceID]
		p.mu.RUnlock()
		if exists {
			return instance, nil
		}

		settings, err := instanceSettings(pluginCtx)
		if err != nil {
			return nil, err
		}

		log.DefaultLogger.Info("Creating new plugin instance", "org_id", pluginCtx.OrgID)
		instance, err = p.newInstance(ctx, settings)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.instances[instanceID] = instance
		p.mu.Unlock()
		return instance, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Instance), nil
}

// instanceSettings reads AppInstanceSettings if available, otherwise
// DataSourceInstanceSettings
func instanceSettings(pluginCtx backend.PluginContext) (*PluginSettings, error) {
	var jsonData []byte
	var decryptedSecrets map[string]string

	if pluginCtx.AppInstanceSettings != nil {
		jsonData = pluginCtx.AppInstanceSettings.JSONData
		decryptedSecrets = pluginCtx.AppInstanceSettings.DecryptedSecureJSONData
	} else if pluginCtx.DataSourceInstanceSettings != nil {
		jsonData = pluginCtx.DataSourceInstanceSettings.JSONData
		decryptedSecrets = pluginCtx.DataSourceInstanceSettings.DecryptedSecureJSONData
	}

	settings, err := LoadSettings(jsonData, decryptedSecrets)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// createInstance connects to Salesforce and, when an OpenAI key is set,
// builds the report assistant
func createInstance(ctx context.Context, settings *PluginSettings) (*Instance, error) {
	client, err := salesforce.NewClient(ctx, settings.SalesforceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Salesforce: %w", err)
	}
	log.DefaultLogger.Info("Connected to Salesforce", "mode", client.Mode(), "instance_url", client.InstanceURL())

	instance := &Instance{
		conn:     client,
		settings: settings,
	}

	if !settings.AssistantEnabled() {
		log.DefaultLogger.Info("OpenAI API key not set, report assistant disabled")
		return instance, nil
	}

	model, err := llm.NewOpenAIClient(settings.LLMConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	log.DefaultLogger.Info("Initializing report assistant", "model", model.Model())
	manager, err := agent.NewManager(model, client, agent.BuildSystemPrompt(client.InstanceURL()))
	if err != nil {
		return nil, fmt.Errorf("failed to create agent manager: %w", err)
	}
	instance.assistant = manager

	return instance, nil
}

// sendJSON sends a JSON response
func sendJSON(sender backend.CallResourceResponseSender, status int, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return sendError(sender, http.StatusInternalServerError, fmt.Sprintf("Failed to marshal JSON: %v", err))
	}

	return sender.Send(&backend.CallResourceResponse{
		Status:  status,
		Headers: map[string][]string{"Content-Type": {"application/json"}},
		Body:    body,
	})
}

// sendError sends an error response
func sendError(sender backend.CallResourceResponseSender, status int, message string) error {
	body, _ := json.Marshal(map[string]string{"error": message})
	return sender.Send(&backend.CallResourceResponse{
		Status:  status,
		Headers: map[string][]string{"Content-Type": {"application/json"}},
		Body:    body,
	})
}
