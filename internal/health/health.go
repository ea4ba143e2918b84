package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"retail-backend/internal/cache"
)

// Pinger is anything that can answer a liveness round trip (the pgx pool,
// the report bucket).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db      Pinger
	archive Pinger // optional
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
	Redis    ComponentHealth `json:"redis"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms,omitempty"`
}

type DetailedStatus struct {
	HealthStatus
	ReportArchive ComponentHealth `json:"report_archive"`
	System        SystemStats     `json:"system"`
}

type SystemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsed      string  `json:"disk_used"`
	DiskTotal     string  `json:"disk_total"`
}

func NewHealthChecker(db Pinger, archive Pinger) *HealthChecker {
	return &HealthChecker{db: db, archive: archive}
}

// CheckBasic reports unhealthy only when the database is down. Redis is
// optional and only shows up as degraded.
func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := ping(h.db)

	redisHealth := ComponentHealth{Status: "disabled"}
	if cache.GetClient() != nil {
		redisHealth.Status = "healthy"
		if !cache.IsHealthy() {
			redisHealth.Status = "unhealthy"
		}
	}

	status := "healthy"
	switch {
	case dbHealth.Status != "healthy":
		status = "unhealthy"
	case redisHealth.Status == "unhealthy":
		status = "degraded"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Redis:    redisHealth,
	}
}

func (h *HealthChecker) CheckDetailed() DetailedStatus {
	out := DetailedStatus{
		HealthStatus:  h.CheckBasic(),
		ReportArchive: ComponentHealth{Status: "disabled"},
		System:        systemStats(),
	}
	if h.archive != nil {
		out.ReportArchive = ping(h.archive)
	}
	return out
}

func ping(p Pinger) ComponentHealth {
	if p == nil {
		return ComponentHealth{Status: "unhealthy"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func systemStats() SystemStats {
	var s SystemStats

	// Non-blocking: compares against the previous call
	if cpuPercents, err := cpu.Percent(0, false); err == nil && len(cpuPercents) > 0 {
		s.CPUPercent = cpuPercents[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = memStats.UsedPercent
		s.MemoryUsed = formatBytes(memStats.Used)
		s.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats, err := disk.Usage("/"); err == nil {
		s.DiskPercent = diskStats.UsedPercent
		s.DiskUsed = formatBytes(diskStats.Used)
		s.DiskTotal = formatBytes(diskStats.Total)
	}
	return s
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}
