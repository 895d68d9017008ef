package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/phishguard/internal/telemetry"
)

// providerOnce ensures we only create one Provider per test run to avoid
// duplicate Prometheus metric registration errors from promauto's global registry
var (
	testProvider *telemetry.Provider
	providerOnce sync.Once
)

func getTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	providerOnce.Do(func() {
		testProvider = telemetry.NewProvider()
	})
	return testProvider
}

func TestNewProvider(t *testing.T) {
	provider := getTestProvider(t)
	if provider == nil {
		t.Fatal("expected non-nil provider")
	}
	if provider.Tracer == nil {
		t.Error("expected non-nil tracer")
	}
	if provider.Metrics == nil {
		t.Error("expected non-nil metrics")
	}
}

func TestRecordEvaluation(t *testing.T) {
	provider := getTestProvider(t)

	// Should not panic
	provider.RecordEvaluation("benign", 100*time.Millisecond)
	provider.RecordEvaluation("phishing", 2*time.Second)
	provider.RecordShortCircuit("global_trust")
}

func TestRecordRace(t *testing.T) {
	provider := getTestProvider(t)

	// Should not panic
	provider.RecordRaceWin("local", 750*time.Millisecond)
	provider.RecordRaceFailure("remote")
}

func TestListMetrics(t *testing.T) {
	provider := getTestProvider(t)

	// Should not panic
	provider.RecordListRefresh("trust", "success")
	provider.SetListSnapshotSize("trust", 1500)
}

func TestNilProviderIsSafe(t *testing.T) {
	var provider *telemetry.Provider

	// Nil provider must be a no-op, not a panic
	provider.RecordEvaluation("benign", time.Millisecond)
	provider.RecordShortCircuit("block_list")
	provider.RecordRaceWin("remote", time.Second)
	provider.RecordRaceFailure("local")
	provider.RecordListRefresh("block", "failure")
	provider.SetListSnapshotSize("block", 10)
}
