// Package monitor collects host resource snapshots for the server status
// endpoint. Snapshots are cached briefly so a dashboard polling every second
// does not hammer the process table.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gopsutilNet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	snapshotCacheTTL = 2 * time.Second
	trafficWindow    = 6 * time.Second
	trafficSamples   = 10
	processLimit     = 20
)

type Service struct {
	log *slog.Logger

	mu      sync.Mutex
	hasSnap bool
	snap    snapshot

	traffic *trafficMeter
}

func NewService(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		log:     log,
		traffic: newTrafficMeter(trafficSamples, trafficWindow),
	}
}

type Snapshot struct {
	CPUUsage    float64   `json:"cpuUsage"`
	CPUCores    int       `json:"cpuCores"`
	LoadAverage []float64 `json:"loadAverage,omitempty"`

	MemoryTotalBytes uint64  `json:"memoryTotalBytes"`
	MemoryUsedBytes  uint64  `json:"memoryUsedBytes"`
	MemoryPercent    float64 `json:"memoryPercent"`

	NetworkBytesReceived uint64  `json:"networkBytesReceived"`
	NetworkBytesSent     uint64  `json:"networkBytesSent"`
	NetworkSpeedReceived float64 `json:"networkSpeedReceived"`
	NetworkSpeedSent     float64 `json:"networkSpeedSent"`

	Platform string `json:"platform"`

	Processes   []ProcessInfo `json:"processes"`
	TimestampMs int64         `json:"timestamp"`
}

type ProcessInfo struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	CPUPercent  float64 `json:"cpuPercent"`
	MemoryBytes uint64  `json:"memoryBytes"`
	Username    string  `json:"username"`
}

type snapshot struct {
	collectedAt time.Time
	data        Snapshot
	procMetrics []processWithMetrics
}

type processWithMetrics struct {
	pid         int32
	name        string
	cpuPercent  float64
	memoryBytes uint64
	username    string
}

// Snapshot returns the current host snapshot with the top processes sorted
// by sortBy ("cpu" or "memory").
func (s *Service) Snapshot(ctx context.Context, sortBy string) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	snap := s.getSnapshot(ctx)
	resp := snap.data
	resp.Processes = selectTopProcesses(snap.procMetrics, sortBy, processLimit)
	return resp
}

func (s *Service) getSnapshot(ctx context.Context) snapshot {
	now := time.Now()

	s.mu.Lock()
	if s.hasSnap && now.Sub(s.snap.collectedAt) < snapshotCacheTTL {
		out := s.snap
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	snap := s.collectSnapshot(ctx)

	s.mu.Lock()
	s.snap = snap
	s.hasSnap = true
	s.mu.Unlock()

	return snap
}

func (s *Service) collectSnapshot(ctx context.Context) snapshot {
	collectedAt := time.Now()

	resp := Snapshot{
		Platform: runtime.GOOS,
	}

	// CPU usage: prefer non-blocking sampling (diff from last call) and per-CPU
	// sampling on macOS to avoid 0% results caused by coarse aggregated tick
	// updates.
	if usage, err := readCPUUsage(ctx); err == nil {
		resp.CPUUsage = usage
	} else {
		s.log.Warn("monitor: get cpu percent failed", "error", err)
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		resp.CPUCores = cores
	} else {
		s.log.Warn("monitor: get cpu cores failed", "error", err)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil && avg != nil {
		resp.LoadAverage = []float64{avg.Load1, avg.Load5, avg.Load15}
	} else if err != nil {
		s.log.Warn("monitor: get load average failed", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		resp.MemoryTotalBytes = vm.Total
		resp.MemoryUsedBytes = vm.Used
		resp.MemoryPercent = vm.UsedPercent
	} else if err != nil {
		s.log.Warn("monitor: get memory failed", "error", err)
	}

	if ioStats, err := gopsutilNet.IOCountersWithContext(ctx, false); err == nil && len(ioStats) > 0 {
		resp.NetworkBytesReceived = ioStats[0].BytesRecv
		resp.NetworkBytesSent = ioStats[0].BytesSent

		s.traffic.Add(trafficSample{
			bytesReceived: ioStats[0].BytesRecv,
			bytesSent:     ioStats[0].BytesSent,
			at:            collectedAt,
		})

		recvSpd, sentSpd := s.traffic.Speed(collectedAt)
		resp.NetworkSpeedReceived = recvSpd
		resp.NetworkSpeedSent = sentSpd
	} else if err != nil {
		s.log.Warn("monitor: get network io failed", "error", err)
	}

	procMetrics, err := collectProcessMetrics(ctx)
	if err != nil {
		s.log.Warn("monitor: get process list failed", "error", err)
		procMetrics = nil
	}

	resp.TimestampMs = collectedAt.UnixMilli()

	return snapshot{
		collectedAt: collectedAt,
		data:        resp,
		procMetrics: procMetrics,
	}
}

func readCPUUsage(ctx context.Context) (float64, error) {
	var errs []error

	if p, err := cpu.PercentWithContext(ctx, 0, true); err == nil && len(p) > 0 {
		return average(p), nil
	} else if err != nil {
		errs = append(errs, err)
	}
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		return p[0], nil
	} else if err != nil {
		errs = append(errs, err)
	}

	// Fallback: take a short blocking interval to bootstrap lastTimes.
	if p, err := cpu.PercentWithContext(ctx, 250*time.Millisecond, true); err == nil && len(p) > 0 {
		return average(p), nil
	} else if err != nil {
		errs = append(errs, err)
	}
	if p, err := cpu.PercentWithContext(ctx, 250*time.Millisecond, false); err == nil && len(p) > 0 {
		return p[0], nil
	} else if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return 0, fmt.Errorf("cpu percent unavailable")
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func collectProcessMetrics(ctx context.Context) ([]processWithMetrics, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]processWithMetrics, 0, len(procs))
	for _, p := range procs {
		if p == nil {
			continue
		}

		name, err := p.NameWithContext(ctx)
		if err != nil || strings.TrimSpace(name) == "" {
			// Some system processes may not allow name lookup; keep a readable fallback.
			name = fmt.Sprintf("[%d]", p.Pid)
		}

		cpuPercent, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			cpuPercent = 0
		}

		var memBytes uint64
		if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			memBytes = memInfo.RSS
		}

		username, err := p.UsernameWithContext(ctx)
		if err != nil || strings.TrimSpace(username) == "" {
			username = "system"
		}

		out = append(out, processWithMetrics{
			pid:         p.Pid,
			name:        name,
			cpuPercent:  cpuPercent,
			memoryBytes: memBytes,
			username:    username,
		})
	}

	return out, nil
}

func normalizeSortBy(sortBy string) string {
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "memory":
		return "memory"
	default:
		return "cpu"
	}
}

func selectTopProcesses(metrics []processWithMetrics, sortBy string, limit int) []ProcessInfo {
	if len(metrics) == 0 || limit <= 0 {
		return []ProcessInfo{}
	}

	sortBy = normalizeSortBy(sortBy)
	copied := make([]processWithMetrics, len(metrics))
	copy(copied, metrics)

	sort.Slice(copied, func(i, j int) bool {
		if sortBy == "memory" {
			return copied[i].memoryBytes > copied[j].memoryBytes
		}
		return copied[i].cpuPercent > copied[j].cpuPercent
	})

	if len(copied) > limit {
		copied = copied[:limit]
	}

	out := make([]ProcessInfo, 0, len(copied))
	for _, p := range copied {
		name := strings.TrimSpace(p.name)
		if name == "" {
			name = fmt.Sprintf("[%d]", p.pid)
		}

		out = append(out, ProcessInfo{
			PID:         p.pid,
			Name:        name,
			CPUPercent:  p.cpuPercent,
			MemoryBytes: p.memoryBytes,
			Username:    p.username,
		})
	}
	return out
}
