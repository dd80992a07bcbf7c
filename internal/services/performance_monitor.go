package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sentinelfi/risk-engine/internal/logging"
)

// SystemMetrics is a point-in-time snapshot of host and process health,
// exposed through the health endpoint.
type SystemMetrics struct {
	Timestamp         time.Time `json:"timestamp"`
	CPUUsagePercent   float64   `json:"cpu_usage_percent"`
	MemoryUsedPercent float64   `json:"memory_used_percent"`
	MemoryUsedMB      uint64    `json:"memory_used_mb"`
	Goroutines        int       `json:"goroutines"`
	EvaluationsTotal  int64     `json:"evaluations_total"`
	LastEvaluationMS  int64     `json:"last_evaluation_ms"`
}

// PerformanceMonitor samples host resource usage and tracks evaluation
// throughput for the health endpoint.
type PerformanceMonitor struct {
	logger logging.Logger

	mu               sync.RWMutex
	cpuUsage         float64
	memUsedPercent   float64
	memUsedMB        uint64
	evaluationsTotal int64
	lastEvaluationMS int64
}

// NewPerformanceMonitor creates a performance monitor.
func NewPerformanceMonitor(logger logging.Logger) *PerformanceMonitor {
	return &PerformanceMonitor{
		logger: logger.WithComponent("performance_monitor"),
	}
}

// UpdateSystemMetrics refreshes host CPU and memory usage.
func (pm *PerformanceMonitor) UpdateSystemMetrics(ctx context.Context) error {
	cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return fmt.Errorf("failed to get CPU usage: %w", err)
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get memory usage: %w", err)
	}

	pm.mu.Lock()
	if len(cpuPercent) > 0 {
		pm.cpuUsage = cpuPercent[0]
	}
	pm.memUsedPercent = memInfo.UsedPercent
	pm.memUsedMB = memInfo.Used / 1024 / 1024
	pm.mu.Unlock()

	return nil
}

// RecordEvaluation tracks one completed scoring cycle.
func (pm *PerformanceMonitor) RecordEvaluation(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.evaluationsTotal++
	pm.lastEvaluationMS = duration.Milliseconds()
}

// Snapshot returns the current metrics.
func (pm *PerformanceMonitor) Snapshot() SystemMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return SystemMetrics{
		Timestamp:         time.Now().UTC(),
		CPUUsagePercent:   pm.cpuUsage,
		MemoryUsedPercent: pm.memUsedPercent,
		MemoryUsedMB:      pm.memUsedMB,
		Goroutines:        runtime.NumGoroutine(),
		EvaluationsTotal:  pm.evaluationsTotal,
		LastEvaluationMS:  pm.lastEvaluationMS,
	}
}

// Start launches a background sampling loop until the context is done.
func (pm *PerformanceMonitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := pm.UpdateSystemMetrics(ctx); err != nil {
					pm.logger.WithError(err).Warn("system metrics sampling failed")
				}
			}
		}
	}()
}
