package challenge

import (
	"math"
	"time"

	"github.com/dukerupert/motiveme/internal/model"
)

// Recompute applies the end-of-window transition and refreshes the completion
// rate and streak. A challenge leaves Active only once today is strictly after
// its end date: Completed if every occurrence is checked, Failed otherwise.
// Terminal statuses never change. Points are left untouched.
func Recompute(c model.Challenge, now time.Time) model.Challenge {
	out := clone(c)
	if out.Status == model.StatusActive && dayKey(now) > dayKey(out.EndDate()) {
		if allChecked(out.Occurrences) {
			out.Status = model.StatusCompleted
		} else {
			out.Status = model.StatusFailed
		}
	}
	refreshMetrics(&out, now)
	return out
}

// Streak counts consecutive checked occurrences walking back from the latest
// one dated on or before now. Occurrences after now are skipped, not breaks.
func Streak(occurrences []model.Occurrence, now time.Time) int {
	today := dayKey(now)
	streak := 0
	for i := len(occurrences) - 1; i >= 0; i-- {
		o := occurrences[i]
		if dayKey(o.Date) > today {
			continue
		}
		if !o.Checked {
			break
		}
		streak++
	}
	return streak
}

// CompletionRate is round(100 * checked / total), or 0 with no occurrences.
func CompletionRate(occurrences []model.Occurrence) int {
	if len(occurrences) == 0 {
		return 0
	}
	checked := 0
	for _, o := range occurrences {
		if o.Checked {
			checked++
		}
	}
	return int(math.Round(100 * float64(checked) / float64(len(occurrences))))
}

func refreshMetrics(c *model.Challenge, now time.Time) {
	c.CompletionRatePercent = CompletionRate(c.Occurrences)
	c.CurrentStreak = Streak(c.Occurrences, now)
}

func allChecked(occurrences []model.Occurrence) bool {
	for _, o := range occurrences {
		if !o.Checked {
			return false
		}
	}
	return true
}

func clone(c model.Challenge) model.Challenge {
	out := c
	if c.Occurrences != nil {
		out.Occurrences = make([]model.Occurrence, len(c.Occurrences))
		copy(out.Occurrences, c.Occurrences)
	}
	if c.CustomWeekdays != nil {
		out.CustomWeekdays = make([]int, len(c.CustomWeekdays))
		copy(out.CustomWeekdays, c.CustomWeekdays)
	}
	return out
}
