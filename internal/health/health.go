// Package health reports process resource usage alongside a rollup of
// recent solver reliability, for the /healthz endpoint.
package health

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/aristath/kellyfolio/internal/history"
)

// Report is the JSON body returned by GET /healthz.
type Report struct {
	Status            string  `json:"status"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryRSSBytes    uint64  `json:"memory_rss_bytes"`
	OpenFileCount     int32   `json:"open_file_count"`
	RecentFailureRate float64 `json:"recent_failure_rate"`
}

// windowSize is how many of the most recent allocation runs are sampled
// when computing RecentFailureRate.
const windowSize = 20

// unhealthyFailureRate marks the service degraded when the recent solver
// failure rate exceeds this fraction.
const unhealthyFailureRate = 0.5

// Reporter builds a Report on demand from live process metrics and the
// run-history store.
type Reporter struct {
	store *history.Store
	pid   int32
}

// New returns a Reporter for the current process.
func New(store *history.Store) *Reporter {
	return &Reporter{store: store, pid: int32(os.Getpid())}
}

// Report gathers process metrics and the recent solver failure rate.
func (r *Reporter) Report(ctx context.Context) (*Report, error) {
	proc, err := process.NewProcessWithContext(ctx, r.pid)
	if err != nil {
		return nil, fmt.Errorf("inspecting current process: %w", err)
	}

	cpuPercent, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading CPU percent: %w", err)
	}
	memInfo, err := proc.MemInfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading memory info: %w", err)
	}

	openFiles, err := proc.OpenFilesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading open file descriptors: %w", err)
	}

	failureRate, err := r.store.RecentFailureRate(ctx, windowSize)
	if err != nil {
		return nil, fmt.Errorf("computing recent failure rate: %w", err)
	}

	status := "ok"
	if failureRate > unhealthyFailureRate {
		status = "degraded"
	}

	return &Report{
		Status:            status,
		CPUPercent:        cpuPercent,
		MemoryRSSBytes:    memInfo.RSS,
		OpenFileCount:     int32(len(openFiles)),
		RecentFailureRate: failureRate,
	}, nil
}
