package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/pkg/logger"
)

type collectPublisher struct {
	mu      sync.Mutex
	reports []dto.TelemetryReport
}

func (p *collectPublisher) PublishTelemetry(r dto.TelemetryReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return nil
}

func (p *collectPublisher) snapshot() []dto.TelemetryReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.TelemetryReport(nil), p.reports...)
}

func TestParseQueryOutput(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		out     string
		wantLen int
		wantErr bool
	}{
		{
			name:    "single device",
			out:     "0, NVIDIA GeForce RTX 3090, 8123, 24576, 37\n",
			wantLen: 1,
		},
		{
			name:    "two devices",
			out:     "0, RTX 3090, 8123, 24576, 37\n1, RTX 3060, 2048, 12288, 5\n",
			wantLen: 2,
		},
		{
			name:    "empty output",
			out:     "\n",
			wantErr: true,
		},
		{
			name:    "missing columns",
			out:     "0, 8123, 24576\n",
			wantErr: true,
		},
		{
			name:    "non-numeric memory",
			out:     "0, RTX 3090, [N/A], 24576, 37\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := ParseQueryOutput(tt.out, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(samples) != tt.wantLen {
				t.Fatalf("got %d samples, want %d", len(samples), tt.wantLen)
			}
			for _, s := range samples {
				if !s.Timestamp.Equal(now) {
					t.Errorf("sample timestamp not stamped with query time")
				}
			}
		})
	}
}

func TestParseQueryOutputValues(t *testing.T) {
	samples, err := ParseQueryOutput("1, NVIDIA RTX A4000, 512, 16384, 93\n", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	s := samples[0]
	if s.GpuIndex != 1 || s.GpuName != "NVIDIA RTX A4000" || s.MemoryUsedMiB != 512 ||
		s.MemoryTotalMiB != 16384 || s.UtilizationPct != 93 {
		t.Errorf("unexpected sample: %+v", s)
	}
}

func TestSamplerSurvivesToolFailure(t *testing.T) {
	pub := &collectPublisher{}
	s := NewSampler("nvidia-smi", 5*time.Millisecond, pub, logger.NewNopLogger())

	var mu sync.Mutex
	calls := 0
	s.query = func(ctx context.Context) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= 2 {
			return []byte("0, RTX 3090, 8123, 24576, 37\n"), nil
		}
		// Tool disappears mid-run.
		return nil, errors.New("nvidia-smi: executable file not found in $PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	reports := pub.snapshot()
	if len(reports) < 4 {
		t.Fatalf("only %d reports published; loop appears to have stopped", len(reports))
	}

	var available, unavailable int
	for _, r := range reports {
		if r.Available {
			available++
		} else {
			unavailable++
			if r.Reason == "" {
				t.Error("unavailable report missing reason")
			}
		}
	}
	if available == 0 {
		t.Error("no successful reports before the tool vanished")
	}
	if unavailable == 0 {
		t.Error("tool failure never reported; loop should keep polling and reporting")
	}
}

func TestOfferConflatesToNewest(t *testing.T) {
	s := NewSampler("nvidia-smi", time.Second, &collectPublisher{}, logger.NewNopLogger())

	// No forwarder running: the channel holds at most the newest report.
	for i := 0; i < 5; i++ {
		s.offer(dto.TelemetryReport{Available: true, At: time.Unix(int64(i), 0)})
	}

	select {
	case got := <-s.updates:
		if !got.At.Equal(time.Unix(4, 0)) {
			t.Fatalf("pending report is %v, want the newest (t=4)", got.At)
		}
	default:
		t.Fatal("no pending report")
	}

	select {
	case extra := <-s.updates:
		t.Fatalf("stale report still queued: %v", extra.At)
	default:
	}
}
