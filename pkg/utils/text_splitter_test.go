package utils

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		chunkSize   int
		overlap     int
		wantChunks  int
		wantOffsets []int
	}{
		{
			name:        "shorter than chunk size",
			text:        "hello world",
			chunkSize:   100,
			overlap:     10,
			wantChunks:  1,
			wantOffsets: []int{0},
		},
		{
			name:        "exact multiple",
			text:        strings.Repeat("a", 20),
			chunkSize:   10,
			overlap:     0,
			wantChunks:  2,
			wantOffsets: []int{0, 10},
		},
		{
			name:        "with overlap",
			text:        strings.Repeat("b", 25),
			chunkSize:   10,
			overlap:     5,
			wantChunks:  4,
			wantOffsets: []int{0, 5, 10, 15},
		},
		{
			name:       "empty input",
			text:       "",
			chunkSize:  10,
			overlap:    2,
			wantChunks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, tt.chunkSize, tt.overlap)

			if len(chunks) != tt.wantChunks {
				t.Fatalf("chunk count = %d, want %d", len(chunks), tt.wantChunks)
			}
			for i, c := range chunks {
				if c.Offset != tt.wantOffsets[i] {
					t.Errorf("chunk %d offset = %d, want %d", i, c.Offset, tt.wantOffsets[i])
				}
			}
		})
	}
}

func TestSplitTextOverlapGreaterThanChunk(t *testing.T) {
	// Degenerate overlap must not loop forever; step falls back to chunkSize.
	chunks := SplitText(strings.Repeat("c", 30), 10, 15)
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}
}

func TestSplitTextStableOffsets(t *testing.T) {
	text := strings.Repeat("signal processing ", 200)
	first := SplitText(text, 150, 20)
	second := SplitText(text, 150, 20)

	if len(first) != len(second) {
		t.Fatalf("rescan produced different chunk counts: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between identical splits", i)
		}
	}
}
