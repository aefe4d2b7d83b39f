package preflight

import (
	"context"
	"strings"

	"rollcall/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data and log directories (always checked)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// Recognition models
	results = append(results, CheckModelFiles(cfg.Recognition.ModelDir))

	// Camera stream
	if strings.TrimSpace(cfg.Camera.StreamURL) != "" {
		results = append(results, CheckCameraStream(ctx, cfg.Camera.StreamURL))
	}

	// MQTT broker (when configured)
	if strings.TrimSpace(cfg.Notifications.MQTTBroker) != "" {
		results = append(results, CheckMQTTBroker(cfg.Notifications.MQTTBroker))
	}

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
