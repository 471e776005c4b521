package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
)

func appContext(orgID int64) backend.PluginContext {
	return backend.PluginContext{
		OrgID: orgID,
		AppInstanceSettings: &backend.AppInstanceSettings{
			JSONData:                []byte(`{"instance_url":"https://acme.my.salesforce.com"}`),
			DecryptedSecureJSONData: map[string]string{"access_token": "00D!token"},
		},
	}
}

func newTestPlugin(factory InstanceFactory) *Plugin {
	p := NewPlugin()
	p.newInstance = factory
	return p
}

func callResource(t *testing.T, p *Plugin, req *backend.CallResourceRequest) *backend.CallResourceResponse {
	t.Helper()

	var got *backend.CallResourceResponse
	sender := backend.CallResourceResponseSenderFunc(func(resp *backend.CallResourceResponse) error {
		got = resp
		return nil
	})
	if err := p.CallResource(context.Background(), req, sender); err != nil {
		t.Fatalf("CallResource() error = %v", err)
	}
	return got
}

func TestCallResourceRouting(t *testing.T) {
	p := newTestPlugin(func(ctx context.Context, settings *PluginSettings) (*Instance, error) {
		return &Instance{conn: &fakeConnection{}, settings: settings}, nil
	})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"reports", http.MethodPost, "reports", `{"operation":"list"}`, http.StatusOK},
		{"health", http.MethodGet, "health", "", http.StatusOK},
		{"chat without assistant", http.MethodPost, "chat", `{"message":"hi"}`, http.StatusServiceUnavailable},
		{"clear chat without assistant", http.MethodDelete, "chat", `{"session_id":"abc"}`, http.StatusServiceUnavailable},
		{"wrong method", http.MethodGet, "reports", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "chat-stream", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callResource(t, p, &backend.CallResourceRequest{
				PluginContext: appContext(1),
				Method:        tt.method,
				Path:          tt.path,
				Body:          []byte(tt.body),
			})
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", resp.Status, tt.wantStatus, resp.Body)
			}
		})
	}
}

func TestGetInstanceCachesPerOrg(t *testing.T) {
	var mu sync.Mutex
	created := map[string]int{}
	p := newTestPlugin(func(ctx context.Context, settings *PluginSettings) (*Instance, error) {
		mu.Lock()
		created[settings.AccessToken]++
		mu.Unlock()
		return &Instance{conn: &fakeConnection{}, settings: settings}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(org int64) {
			defer wg.Done()
			if _, err := p.getInstance(context.Background(), appContext(org)); err != nil {
				t.Errorf("getInstance() error = %v", err)
			}
		}(int64(i % 2))
	}
	wg.Wait()

	if len(p.instances) != 2 {
		t.Errorf("instances = %d, want 2", len(p.instances))
	}
	if created["00D!token"] != 2 {
		t.Errorf("factory calls = %d, want 2", created["00D!token"])
	}
}

func TestSlowLoginDoesNotBlockOtherOrgs(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := newTestPlugin(func(ctx context.Context, settings *PluginSettings) (*Instance, error) {
		if settings.InstanceURL == "https://slow.my.salesforce.com" {
			close(started)
			<-release
		}
		return &Instance{conn: &fakeConnection{}, settings: settings}, nil
	})

	slowCtx := appContext(1)
	slowCtx.AppInstanceSettings.JSONData = []byte(`{"instance_url":"https://slow.my.salesforce.com"}`)

	slowDone := make(chan error, 1)
	go func() {
		_, err := p.getInstance(context.Background(), slowCtx)
		slowDone <- err
	}()
	<-started

	fastDone := make(chan error, 1)
	go func() {
		_, err := p.getInstance(context.Background(), appContext(2))
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("getInstance(org 2) error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("org 2 was blocked by the login of org 1")
	}

	close(release)
	if err := <-slowDone; err != nil {
		t.Fatalf("getInstance(org 1) error = %v", err)
	}
	if len(p.instances) != 2 {
		t.Errorf("instances = %d, want 2", len(p.instances))
	}
}

func TestGetInstanceErrors(t *testing.T) {
	t.Run("invalid settings", func(t *testing.T) {
		p := newTestPlugin(func(ctx context.Context, settings *PluginSettings) (*Instance, error) {
			t.Fatal("factory should not run with invalid settings")
			return nil, nil
		})
		pluginCtx := backend.PluginContext{
			OrgID:               1,
			AppInstanceSettings: &backend.AppInstanceSettings{JSONData: []byte(`{}`)},
		}

		if _, err := p.getInstance(context.Background(), pluginCtx); err == nil || !strings.Contains(err.Error(), "invalid settings") {
			t.Errorf("getInstance() error = %v", err)
		}
	})

	t.Run("factory failure is not cached", func(t *testing.T) {
		calls := 0
		p := newTestPlugin(func(ctx context.Context, settings *PluginSettings) (*Instance, error) {
			calls++
			return nil, errors.New("login failed")
		})

		resp := callResource(t, p, &backend.CallResourceRequest{
			PluginContext: appContext(1),
			Method:        http.MethodGet,
			Path:          "health",
		})
		_ = callResource(t, p, &backend.CallResourceRequest{
			PluginContext: appContext(1),
			Method:        http.MethodGet,
			Path:          "health",
		})

		if resp.Status != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", resp.Status)
		}
		var body map[string]string
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !strings.Contains(body["error"], "login failed") {
			t.Errorf("error = %q", body["error"])
		}
		if calls != 2 {
			t.Errorf("factory calls = %d, want 2", calls)
		}
	})
}

func TestCreateInstanceWithAccessToken(t *testing.T) {
	settings := &PluginSettings{
		InstanceURL:  "https://acme.my.salesforce.com",
		AccessToken:  "00D!token",
		OpenAIAPIKey: "sk-test",
	}

	instance, err := createInstance(context.Background(), settings)
	if err != nil {
		t.Fatalf("createInstance() error = %v", err)
	}
	if instance.conn == nil {
		t.Error("expected a Salesforce connection")
	}
	if instance.assistant == nil {
		t.Error("expected the assistant to be configured")
	}

	settings.OpenAIAPIKey = ""
	instance, err = createInstance(context.Background(), settings)
	if err != nil {
		t.Fatalf("createInstance() error = %v", err)
	}
	if instance.assistant != nil {
		t.Error("assistant should be disabled without an OpenAI key")
	}
}
