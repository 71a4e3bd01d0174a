package telemetry

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/entity"
	"ai-research-desk/internal/pkg/logger"
)

// TelemetryPublisher delivers sampler reports to the orchestrator's inbound
// channel.
type TelemetryPublisher interface {
	PublishTelemetry(report dto.TelemetryReport) error
}

// queryArgs is the nvidia-smi invocation. One CSV line per device:
// "index, name, memory.used, memory.total, utilization.gpu".
var queryArgs = []string{
	"--query-gpu=index,name,memory.used,memory.total,utilization.gpu",
	"--format=csv,noheader,nounits",
}

// Sampler polls the GPU query tool on a fixed period. The loop is resilient:
// a missing tool, non-zero exit, or malformed output becomes an unavailable
// report and polling continues. If the consumer is slower than the tick, the
// newest report replaces the pending one (latest-value semantics).
type Sampler struct {
	command   string
	interval  time.Duration
	publisher TelemetryPublisher
	logger    logger.ILogger

	// query is swapped out in tests.
	query func(ctx context.Context) ([]byte, error)

	updates chan dto.TelemetryReport
}

func NewSampler(command string, interval time.Duration, publisher TelemetryPublisher, log logger.ILogger) *Sampler {
	s := &Sampler{
		command:   command,
		interval:  interval,
		publisher: publisher,
		logger:    log,
		updates:   make(chan dto.TelemetryReport, 1),
	}
	s.query = s.execQuery
	return s
}

// Run blocks until ctx ends. Publishing happens on a separate goroutine so a
// slow consumer can never stall the tick loop.
func (s *Sampler) Run(ctx context.Context) error {
	go s.forward(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Prime immediately so the UI has a reading before the first tick.
	s.offer(s.sampleOnce(ctx))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.offer(s.sampleOnce(ctx))
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) dto.TelemetryReport {
	tickCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	now := time.Now()
	out, err := s.query(tickCtx)
	if err != nil {
		s.logger.Warn("Telemetry", "GPU query failed", map[string]interface{}{"error": err.Error()})
		return dto.TelemetryReport{Available: false, Reason: err.Error(), At: now}
	}

	samples, err := ParseQueryOutput(string(out), now)
	if err != nil {
		s.logger.Warn("Telemetry", "GPU output parse failed", map[string]interface{}{"error": err.Error()})
		return dto.TelemetryReport{Available: false, Reason: err.Error(), At: now}
	}

	return dto.TelemetryReport{Available: true, Samples: samples, At: now}
}

func (s *Sampler) execQuery(ctx context.Context) ([]byte, error) {
	out, err := exec.CommandContext(ctx, s.command, queryArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.command, err)
	}
	return out, nil
}

// offer conflates: the pending report, if any, is replaced by the newest.
// Single producer, so the drain-then-send pair cannot race.
func (s *Sampler) offer(report dto.TelemetryReport) {
	select {
	case s.updates <- report:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- report
	}
}

func (s *Sampler) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case report := <-s.updates:
			if err := s.publisher.PublishTelemetry(report); err != nil {
				s.logger.Warn("Telemetry", "Failed to publish report", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// ParseQueryOutput parses nvidia-smi CSV output, one sample per device line.
func ParseQueryOutput(out string, at time.Time) ([]entity.TelemetrySample, error) {
	var samples []entity.TelemetrySample

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 5 {
			return nil, fmt.Errorf("malformed gpu line: %q", line)
		}

		idx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed gpu index: %q", parts[0])
		}
		used, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed memory.used: %q", parts[2])
		}
		total, err := strconv.ParseUint(strings.TrimSpace(parts[3]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed memory.total: %q", parts[3])
		}
		util, err := strconv.Atoi(strings.TrimSpace(parts[4]))
		if err != nil {
			return nil, fmt.Errorf("malformed utilization: %q", parts[4])
		}

		samples = append(samples, entity.TelemetrySample{
			GpuIndex:       idx,
			GpuName:        strings.TrimSpace(parts[1]),
			MemoryUsedMiB:  used,
			MemoryTotalMiB: total,
			UtilizationPct: util,
			Timestamp:      at,
		})
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no gpu devices in output")
	}
	return samples, nil
}
