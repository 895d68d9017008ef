package modelclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/phishguard/internal/modelclient"
)

func TestCheckHealth_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/version", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"0.6.1"}`))
	}))
	defer srv.Close()

	client := modelclient.NewOllamaClient(srv.URL, "gemma3:4b")
	health := client.CheckHealth(context.Background())

	assert.True(t, health.Reachable)
	assert.Equal(t, "0.6.1", health.Version)
	assert.Empty(t, health.Error)
	assert.GreaterOrEqual(t, health.LatencyMs, int64(0))
}

func TestCheckHealth_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close()

	client := modelclient.NewOllamaClient(srv.URL, "gemma3:4b")
	health := client.CheckHealth(context.Background())

	assert.False(t, health.Reachable)
	assert.Contains(t, health.Error, "backend unreachable")
}

func TestCheckHealth_UnhealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := modelclient.NewOllamaClient(srv.URL, "gemma3:4b")
	health := client.CheckHealth(context.Background())

	assert.False(t, health.Reachable)
	assert.Contains(t, health.Error, "unhealthy status: 503")
}
