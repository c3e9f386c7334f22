package challenge

import (
	"math"

	"github.com/dukerupert/motiveme/internal/model"
)

// Stats summarises a set of challenges for the dashboard.
type Stats struct {
	Total                    int `json:"total"`
	Active                   int `json:"active"`
	Completed                int `json:"completed"`
	Failed                   int `json:"failed"`
	TotalPoints              int `json:"total_points"`
	MaxStreak                int `json:"max_streak"`
	AvgCompletionRatePercent int `json:"avg_completion_rate"`
}

// Aggregate reduces a set of challenges, typically one user's, to summary
// counters. An empty set yields all zeros.
func Aggregate(challenges []model.Challenge) Stats {
	var s Stats
	rateSum := 0
	for _, c := range challenges {
		s.Total++
		switch c.Status {
		case model.StatusActive:
			s.Active++
		case model.StatusCompleted:
			s.Completed++
		case model.StatusFailed:
			s.Failed++
		}
		s.TotalPoints += c.PointsEarned
		s.MaxStreak = max(s.MaxStreak, c.CurrentStreak)
		rateSum += c.CompletionRatePercent
	}
	if s.Total > 0 {
		s.AvgCompletionRatePercent = int(math.Round(float64(rateSum) / float64(s.Total)))
	}
	return s
}
