package observability

import (
	"sync"
	"time"
)

// ProcessStats is the last sample of the process stats worker.
type ProcessStats struct {
	PID        int32     `json:"pid"`
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	Threads    int32     `json:"threads"`
	SampledAt  time.Time `json:"sampled_at"`
}

// Snapshot aggregates what GET /stats shows.
type Snapshot struct {
	Connections int          `json:"connections"`
	Links       int          `json:"links"`
	Messages    int          `json:"messages"`
	StartedAt   time.Time    `json:"started_at"`
	Uptime      string       `json:"uptime"`
	Process     ProcessStats `json:"process"`
}

// MonitoringManager keeps the latest runtime samples for the stats endpoint.
type MonitoringManager struct {
	mu        sync.RWMutex
	startedAt time.Time
	process   ProcessStats
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{startedAt: time.Now()}
}

func (mm *MonitoringManager) SetProcess(stats ProcessStats) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.process = stats
}

func (mm *MonitoringManager) Process() ProcessStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.process
}

// Snapshot combines the sampled process stats with the live counts given by the caller.
func (mm *MonitoringManager) Snapshot(connections, links, messages int) Snapshot {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return Snapshot{
		Connections: connections,
		Links:       links,
		Messages:    messages,
		StartedAt:   mm.startedAt.UTC(),
		Uptime:      time.Since(mm.startedAt).Round(time.Second).String(),
		Process:     mm.process,
	}
}
