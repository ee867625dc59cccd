package workers

import (
	"context"
	"log/slog"
	"os"
	"time"
	"treasure-hunt/observability"

	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker samples the server's own memory and CPU on a fixed period
// and publishes them to the stats endpoint and prometheus.
type ProcessStatsWorker struct {
	log        *slog.Logger
	interval   time.Duration
	monitoring *observability.MonitoringManager
	metrics    *observability.Metrics
	counts     func() (links, messages int)
}

func NewProcessStatsWorker(
	log *slog.Logger,
	interval time.Duration,
	monitoring *observability.MonitoringManager,
	metrics *observability.Metrics,
	counts func() (links, messages int),
) *ProcessStatsWorker {
	return &ProcessStatsWorker{
		log:        log,
		interval:   interval,
		monitoring: monitoring,
		metrics:    metrics,
		counts:     counts,
	}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	w.log.Info("Starting process stats worker", "interval", w.interval)

	w.sample(p)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) {
	stats, err := selfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "error", err)
		return
	}
	w.monitoring.SetProcess(stats)
	w.metrics.ProcessRSSBytes.Set(float64(stats.RSSBytes))
	w.metrics.ProcessCPUPercent.Set(stats.CPUPercent)

	if w.counts != nil {
		links, messages := w.counts()
		w.metrics.StoredLinks.Set(float64(links))
		w.metrics.StoredChatMessages.Set(float64(messages))
	}
	w.log.Debug("Process stats sampled", "rss", stats.RSSBytes, "cpu", stats.CPUPercent)
}

// selfStats reads memory, CPU and thread count of the given process.
func selfStats(p *process.Process) (observability.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	threads, err := p.NumThreads()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	return observability.ProcessStats{
		PID:        p.Pid,
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Threads:    threads,
		SampledAt:  time.Now().UTC(),
	}, nil
}
