package telemetry

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		wantMean float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4.0}, 4.0},
		{"uniform", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, p50, p90 := Summarize(tt.samples)
			if math.Abs(mean-tt.wantMean) > 0.001 {
				t.Errorf("mean = %v, want %v", mean, tt.wantMean)
			}
			if len(tt.samples) > 1 {
				if p50 > p90 {
					t.Errorf("p50 %v > p90 %v", p50, p90)
				}
			}
		})
	}
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	samples := []float64{3, 1, 2}
	Summarize(samples)
	if samples[0] != 3 || samples[1] != 1 || samples[2] != 2 {
		t.Errorf("input mutated: %v", samples)
	}
}
