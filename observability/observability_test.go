package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_InstancesAreIndependent(t *testing.T) {
	req := require.New(t)

	// Given two metric sets, as two servers in one test binary would have
	first := NewMetrics()
	second := NewMetrics()

	// When only the first one counts
	first.EventsPublished.WithLabelValues("userConnected").Inc()
	first.Connections.Set(3)

	// Then the second one is untouched
	req.Equal(1.0, testutil.ToFloat64(first.EventsPublished.WithLabelValues("userConnected")))
	req.Equal(0.0, testutil.ToFloat64(second.EventsPublished.WithLabelValues("userConnected")))
	req.Equal(3.0, testutil.ToFloat64(first.Connections))
}

func TestMetrics_Handler(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics()
	metrics.ChatMessages.WithLabelValues("en").Inc()

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(recorder.Body)
	req.NoError(err)
	req.Contains(string(body), `hunt_chat_messages_total{lang="en"} 1`)
}

func TestMonitoringManager_Snapshot(t *testing.T) {
	req := require.New(t)
	monitoring := NewMonitoringManager()
	sampledAt := time.Now()
	monitoring.SetProcess(ProcessStats{PID: 42, RSSBytes: 1024, CPUPercent: 1.5, SampledAt: sampledAt})

	snapshot := monitoring.Snapshot(2, 3, 4)
	req.Equal(2, snapshot.Connections)
	req.Equal(3, snapshot.Links)
	req.Equal(4, snapshot.Messages)
	req.Equal(int32(42), snapshot.Process.PID)
	req.Equal(uint64(1024), snapshot.Process.RSSBytes)
	req.NotEmpty(snapshot.Uptime)
}
