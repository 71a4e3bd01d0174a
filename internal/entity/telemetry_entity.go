package entity

import "time"

// TelemetrySample is one GPU reading. Transient: the orchestrator keeps only
// a bounded ring of recent samples per device.
type TelemetrySample struct {
	GpuIndex       int       `json:"gpu_index"`
	GpuName        string    `json:"gpu_name"`
	MemoryUsedMiB  uint64    `json:"memory_used_mib"`
	MemoryTotalMiB uint64    `json:"memory_total_mib"`
	UtilizationPct int       `json:"utilization_pct"`
	Timestamp      time.Time `json:"timestamp"`
}
