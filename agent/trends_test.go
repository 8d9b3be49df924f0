package agent

import (
	"testing"

	"catalert/models"
)

func TestWeightTrend(t *testing.T) {
	cases := []struct {
		name    string
		weights []float64
		want    models.Trend
	}{
		{"six percent gain", []float64{10.0, 10.6}, models.TrendIncreasing},
		{"seven percent loss", []float64{10.0, 9.3}, models.TrendDecreasing},
		{"two percent gain", []float64{10.0, 10.2}, models.TrendStable},
		{"exactly five percent", []float64{10.0, 10.5}, models.TrendStable},
		{"single measurement", []float64{10.0}, models.TrendInsufficientData},
		{"no measurements", nil, models.TrendInsufficientData},
		{"zero baseline", []float64{0, 4.2}, models.TrendInsufficientData},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := WeightTrend(c.weights); got != c.want {
				t.Errorf("WeightTrend(%v) = %s, want %s", c.weights, got, c.want)
			}
		})
	}
}

func TestActivityDurationTrend(t *testing.T) {
	flat := []float64{10, 10, 10, 10, 10, 10, 10}
	if got := ActivityDurationTrend(flat); got != models.TrendStable {
		t.Errorf("identical windows should be stable, got %s", got)
	}

	if got := ActivityDurationTrend([]float64{10, 10, 10, 10, 10, 10}); got != models.TrendInsufficientData {
		t.Errorf("six records should be insufficient, got %s", got)
	}

	rising := append([]float64{10, 10, 10, 10, 10, 10, 10}, 15, 15, 15, 15, 15, 15, 15)
	if got := ActivityDurationTrend(rising); got != models.TrendIncreasing {
		t.Errorf("expected increasing, got %s", got)
	}

	falling := append([]float64{10, 10, 10, 10, 10, 10, 10}, 5, 5, 5, 5, 5, 5, 5)
	if got := ActivityDurationTrend(falling); got != models.TrendDecreasing {
		t.Errorf("expected decreasing, got %s", got)
	}
}

func TestCompletionRateTrend(t *testing.T) {
	repeat := func(v bool, n int) []bool {
		out := make([]bool, n)
		for i := range out {
			out[i] = v
		}
		return out
	}

	// Thirteen records cannot support a completion verdict.
	thirteen := repeat(true, 13)
	if got := CompletionRateTrend(thirteen); got != models.TrendInsufficientData {
		t.Errorf("thirteen records should be insufficient, got %s", got)
	}

	improving := append(repeat(false, 7), repeat(true, 7)...)
	if got := CompletionRateTrend(improving); got != models.TrendImproving {
		t.Errorf("expected improving, got %s", got)
	}

	declining := append(repeat(true, 7), repeat(false, 7)...)
	if got := CompletionRateTrend(declining); got != models.TrendDeclining {
		t.Errorf("expected declining, got %s", got)
	}

	steady := append(repeat(true, 7), repeat(true, 7)...)
	if got := CompletionRateTrend(steady); got != models.TrendStable {
		t.Errorf("expected stable, got %s", got)
	}
}
