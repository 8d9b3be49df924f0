package agent

import (
	"catalert/models"
)

// TrendReport summarizes how a cat's key care series are moving.
type TrendReport struct {
	WeightTrend         models.Trend `json:"weight_trend"`
	ActivityTrend       models.Trend `json:"activity_trend"`
	CompletionRateTrend models.Trend `json:"completion_rate_trend"`
}

// WeightTrend compares the newest weight against the oldest one in the
// window. Fewer than two measurements is reported as such rather than
// passed off as stable.
func WeightTrend(weights []float64) models.Trend {
	if len(weights) < 2 {
		return models.TrendInsufficientData
	}
	oldest := weights[0]
	newest := weights[len(weights)-1]
	if oldest == 0 {
		return models.TrendInsufficientData
	}
	change := (newest - oldest) / oldest
	switch {
	case change > 0.05:
		return models.TrendIncreasing
	case change < -0.05:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// ActivityDurationTrend compares the mean duration of the most recent
// seven activities against the earliest seven. Durations are oldest
// first; missing durations count as zero.
func ActivityDurationTrend(durations []float64) models.Trend {
	if len(durations) < 7 {
		return models.TrendInsufficientData
	}
	recent := mean(durations[len(durations)-7:])
	earliest := mean(durations[:7])
	switch {
	case recent > earliest*1.1:
		return models.TrendIncreasing
	case recent < earliest*0.9:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// CompletionRateTrend compares the completion ratio of the last seven
// activities against the seven before them. Completions are oldest
// first; fewer than fourteen records cannot support a verdict.
func CompletionRateTrend(completed []bool) models.Trend {
	if len(completed) < 14 {
		return models.TrendInsufficientData
	}
	recent := ratio(completed[len(completed)-7:])
	previous := ratio(completed[len(completed)-14 : len(completed)-7])
	switch {
	case recent > previous+0.1:
		return models.TrendImproving
	case recent < previous-0.1:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func ratio(flags []bool) float64 {
	if len(flags) == 0 {
		return 0
	}
	var hits int
	for _, f := range flags {
		if f {
			hits++
		}
	}
	return float64(hits) / float64(len(flags))
}
