package modelclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const healthProbeTimeout = 5 * time.Second

// BackendHealth reports reachability of the local model backend.
type BackendHealth struct {
	Reachable bool   `json:"reachable"`
	LatencyMs int64  `json:"latency_ms"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ollamaVersionResponse is the JSON shape returned by GET /api/version.
type ollamaVersionResponse struct {
	Version string `json:"version"`
}

// CheckHealth probes the Ollama version endpoint and reports whether the
// backend is reachable, how long the probe took, and the server version.
// It never returns an error; probe failures are carried in the result so
// the stats endpoint can surface a degraded backend without failing.
func (c *OllamaClient) CheckHealth(ctx context.Context) BackendHealth {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/version", http.NoBody)
	if err != nil {
		return BackendHealth{Error: fmt.Sprintf("create request: %v", err)}
	}

	resp, err := c.client.Do(httpReq)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return BackendHealth{LatencyMs: latency, Error: fmt.Sprintf("backend unreachable: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return BackendHealth{LatencyMs: latency, Error: fmt.Sprintf("unhealthy status: %d", resp.StatusCode)}
	}

	health := BackendHealth{Reachable: true, LatencyMs: latency}

	// The version is informational; a decode failure still counts as healthy.
	var versionResp ollamaVersionResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&versionResp); decodeErr == nil {
		health.Version = versionResp.Version
	}
	return health
}
