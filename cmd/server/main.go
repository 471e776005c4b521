package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/config"
	"github.com/sabio/salesforce-reports-mcp-go/pkg/salesforce"
	mcpserver "github.com/sabio/salesforce-reports-mcp-go/pkg/server"
)

var (
	transport = flag.String("transport", "", "Transport mode: stdio or sse (overrides MCP_TRANSPORT)")
	host      = flag.String("host", "", "Host to bind to for SSE mode (overrides MCP_HOST)")
	port      = flag.Int("port", 0, "Port to listen on for SSE mode (overrides MCP_PORT)")
)

var logger log.Logger = log.DefaultLogger

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	if *transport != "" {
		cfg.Transport = *transport
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupSalesforce(cfg *config.Config) (*salesforce.Client, error) {
	sf := cfg.Salesforce.Client()
	mode, err := sf.Mode()
	if err != nil {
		return nil, err
	}

	logger.Info("Salesforce configuration",
		"auth_mode", string(mode),
		"login_url", sf.LoginURL,
		"instance_url", sf.InstanceURL,
		"client_id", truncate(sf.ClientID, 8),
		"api_version", sf.APIVersion,
	)

	ctx, cancel := context.WithTimeout(context.Background(), sf.Timeout)
	defer cancel()
	return salesforce.NewClient(ctx, sf)
}

func runMetrics(addr string, reg *prometheus.Registry) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           mcpserver.NewHTTPHandler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", "error", err)
		}
	}()

	return srv
}

func runStdio(ctx context.Context, mcpServer *mcpserver.MCPServer) error {
	logger.Info("Running server with stdio transport (default)")

	stdioServer := server.NewStdioServer(mcpServer.GetServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func runSSE(ctx context.Context, mcpServer *mcpserver.MCPServer, addr string) error {
	logger.Info("Running server with SSE transport", "addr", addr, "endpoint", fmt.Sprintf("http://%s/sse", addr))

	sseServer := server.NewSSEServer(mcpServer.GetServer(), "/sse")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", "error", err)
		}
	}()

	if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger = log.NewWithLevel(level)
	log.DefaultLogger = logger

	logger.Info("Starting Salesforce Reports MCP Server...")

	client, err := setupSalesforce(cfg)
	if err != nil {
		logger.Error("Failed to connect to Salesforce", "error", err)
		os.Exit(1)
	}
	logger.Info("Successfully connected to Salesforce", "instance_url", client.InstanceURL())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mcpServer := mcpserver.NewMCPServer(client, mcpserver.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Metrics:        mcpserver.NewMetrics(reg),
		Logger:         logger,
	})
	logger.Info("Registered MCP tools", "count", mcpServer.RegisterTools())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		metricsServer = runMetrics(fmt.Sprintf("%s:%d", cfg.Host, cfg.MetricsPort), reg)
	}

	switch cfg.Transport {
	case "stdio":
		err = runStdio(ctx, mcpServer)
	case "sse":
		err = runSSE(ctx, mcpServer, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
