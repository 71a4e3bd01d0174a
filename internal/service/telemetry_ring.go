package service

import "ai-research-desk/internal/entity"

// telemetryRing keeps the most recent samples for one GPU, oldest first.
// Once full, each push evicts the oldest entry, so memory stays bounded no
// matter how long the process runs.
type telemetryRing struct {
	capacity int
	samples  []entity.TelemetrySample
	start    int
}

func newTelemetryRing(capacity int) *telemetryRing {
	if capacity < 1 {
		capacity = 1
	}
	return &telemetryRing{
		capacity: capacity,
		samples:  make([]entity.TelemetrySample, 0, capacity),
	}
}

func (r *telemetryRing) Push(sample entity.TelemetrySample) {
	if len(r.samples) < r.capacity {
		r.samples = append(r.samples, sample)
		return
	}
	r.samples[r.start] = sample
	r.start = (r.start + 1) % r.capacity
}

func (r *telemetryRing) Len() int {
	return len(r.samples)
}

// Latest returns the newest sample, if any.
func (r *telemetryRing) Latest() (entity.TelemetrySample, bool) {
	if len(r.samples) == 0 {
		return entity.TelemetrySample{}, false
	}
	idx := (r.start + len(r.samples) - 1) % len(r.samples)
	return r.samples[idx], true
}

// Snapshot copies the ring contents in chronological order.
func (r *telemetryRing) Snapshot() []entity.TelemetrySample {
	out := make([]entity.TelemetrySample, 0, len(r.samples))
	for i := 0; i < len(r.samples); i++ {
		out = append(out, r.samples[(r.start+i)%len(r.samples)])
	}
	return out
}
