package challenge

import (
	"fmt"
	"time"

	"github.com/dukerupert/motiveme/internal/model"
)

// GenerateOccurrences expands a schedule into its check-in days. Day offsets
// 0..durationDays-1 from the start date's local midnight are visited; Daily
// keeps every day and Custom keeps only days whose weekday is in weekdays.
// The result is deterministic, including ids.
func GenerateOccurrences(start time.Time, durationDays int, freq model.Frequency, weekdays []int) []model.Occurrence {
	start = startOfDay(start)

	var allowed [7]bool
	for _, d := range weekdays {
		if d >= 0 && d <= 6 {
			allowed[d] = true
		}
	}

	occurrences := make([]model.Occurrence, 0, max(durationDays, 0))
	for i := 0; i < durationDays; i++ {
		date := start.AddDate(0, 0, i)
		wd := int(date.Weekday())
		if freq == model.FrequencyCustom && !allowed[wd] {
			continue
		}
		occurrences = append(occurrences, model.Occurrence{
			ID:       fmt.Sprintf("%s_%d", date.Format("20060102"), len(occurrences)),
			Date:     date,
			Weekday:  wd,
			Required: true,
		})
	}
	return occurrences
}

// OccurrenceOn returns the index of the occurrence falling on day's calendar
// date, or -1.
func OccurrenceOn(occurrences []model.Occurrence, day time.Time) int {
	key := dayKey(day)
	for i, o := range occurrences {
		if dayKey(o.Date) == key {
			return i
		}
	}
	return -1
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayKey orders calendar dates as yyyymmdd, each read in its own location.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Location is the time zone the challenge was created in. Unknown names fall
// back to UTC.
func Location(c model.Challenge) *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PendingToday reports whether c has an unchecked occurrence on now's date.
func PendingToday(c model.Challenge, now time.Time) bool {
	if c.Status != model.StatusActive {
		return false
	}
	idx := OccurrenceOn(c.Occurrences, now)
	return idx >= 0 && !c.Occurrences[idx].Checked
}
