package challenge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dukerupert/motiveme/internal/model"
)

func TestRecomputeFailsAfterMissedDays(t *testing.T) {
	c := newDaily(t, 7)
	var err error
	for day := 1; day <= 3; day++ {
		c, _, err = CheckIn(c, at(day), CheckInInput{})
		if err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
	}

	out := Recompute(c, at(10))
	if out.Status != model.StatusFailed {
		t.Errorf("status = %q, want %q", out.Status, model.StatusFailed)
	}
	if out.CompletionRatePercent != 43 {
		t.Errorf("completion = %d, want 43", out.CompletionRatePercent)
	}
	if out.CurrentStreak != 0 {
		t.Errorf("streak = %d, want 0", out.CurrentStreak)
	}
	if out.PointsEarned != c.PointsEarned {
		t.Errorf("points changed: %d -> %d", c.PointsEarned, out.PointsEarned)
	}
}

func TestRecomputeStaysActiveOnEndDate(t *testing.T) {
	c := newDaily(t, 7)

	// Start + 7 days is 2025-01-08; only a later day ends the window.
	out := Recompute(c, time.Date(2025, 1, 8, 23, 59, 0, 0, time.UTC))
	if out.Status != model.StatusActive {
		t.Errorf("status = %q, want %q", out.Status, model.StatusActive)
	}

	out = Recompute(c, time.Date(2025, 1, 9, 0, 0, 1, 0, time.UTC))
	if out.Status != model.StatusFailed {
		t.Errorf("status = %q, want %q", out.Status, model.StatusFailed)
	}
}

func TestRecomputeTerminalIsSticky(t *testing.T) {
	c := newDaily(t, 3)
	c.Status = model.StatusFailed

	out := Recompute(c, at(2))
	if out.Status != model.StatusFailed {
		t.Errorf("status = %q, want %q", out.Status, model.StatusFailed)
	}
}

func TestRecomputeEmptyScheduleCompletes(t *testing.T) {
	c, err := New(Params{
		Title:          "Sunday reading",
		DurationDays:   1,
		Frequency:      model.FrequencyCustom,
		CustomWeekdays: []int{0},
		WitnessEmail:   "w@example.com",
		Gage:           "Wash the car",
	}, at(1))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(c.Occurrences) != 0 {
		t.Fatalf("occurrences = %d, want 0", len(c.Occurrences))
	}

	out := Recompute(c, at(5))
	if out.Status != model.StatusCompleted {
		t.Errorf("status = %q, want %q", out.Status, model.StatusCompleted)
	}
	if out.CompletionRatePercent != 0 {
		t.Errorf("completion = %d, want 0", out.CompletionRatePercent)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	c := newDaily(t, 10)
	var err error
	for _, day := range []int{1, 2, 4} {
		c, _, err = CheckIn(c, at(day), CheckInInput{Notes: "ok"})
		if err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
	}

	for _, now := range []time.Time{at(5), at(20)} {
		once := Recompute(c, now)
		twice := Recompute(once, now)

		a, _ := json.Marshal(once)
		b, _ := json.Marshal(twice)
		if string(a) != string(b) {
			t.Errorf("now=%v: recompute not idempotent\n%s\n%s", now, a, b)
		}
	}
}

func TestStreakSkipsFutureOccurrences(t *testing.T) {
	c := newDaily(t, 7)
	var err error
	for day := 1; day <= 2; day++ {
		c, _, err = CheckIn(c, at(day), CheckInInput{})
		if err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
	}
	if got := Streak(c.Occurrences, at(2)); got != 2 {
		t.Errorf("streak = %d, want 2", got)
	}
	// Today unchecked breaks the streak.
	if got := Streak(c.Occurrences, at(3)); got != 0 {
		t.Errorf("streak = %d, want 0", got)
	}
}

func TestCompletionRateEmpty(t *testing.T) {
	if got := CompletionRate(nil); got != 0 {
		t.Errorf("rate = %d, want 0", got)
	}
}
