package main

import (
	"os"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"github.com/sabio/salesforce-reports-mcp-go/pkg/plugin"
)

const pluginID = "sabio-salesforce-reports"

func main() {
	p := plugin.NewPlugin()

	if err := backend.Manage(pluginID, backend.ServeOpts{
		CallResourceHandler: p,
	}); err != nil {
		log.DefaultLogger.Error("Plugin exited with error", "error", err)
		os.Exit(1)
	}
}
