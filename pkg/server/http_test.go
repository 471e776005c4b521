package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHealthEndpoint(t *testing.T) {
	server := httptest.NewServer(NewHTTPHandler(prometheus.NewRegistry()))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Server != serverName {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.RecordCall("list", OutcomeSuccess, 120*time.Millisecond)

	server := httptest.NewServer(NewHTTPHandler(reg))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`salesforce_reports_tool_calls_total{operation="list",outcome="success"} 1`,
		`salesforce_reports_tool_call_duration_seconds_count{operation="list"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRecordCallNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordCall("list", OutcomeSuccess, time.Second)
}
