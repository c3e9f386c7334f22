package challenge

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/validate"
)

// Scoring and input limits for a check-in.
const (
	BasePoints       = 5    // every check-in
	StreakBonus      = 20   // when the new streak is a multiple of StreakBonusEvery
	StreakBonusEvery = 7    // days
	CompletionBonus  = 50   // when the last open occurrence is checked
	MaxNotesLength   = 1000 // characters
)

// CheckInInput carries the optional notes and proof link for a check-in.
type CheckInInput struct {
	Notes    string
	ProofURL string
}

// CheckInResult is what the caller relays to the points ledger, the witness
// email and the UI.
type CheckInResult struct {
	OccurrenceID  string `json:"occurrence_id"`
	PointsGained  int    `json:"points_gained"`
	CurrentStreak int    `json:"current_streak"`
	Completed     bool   `json:"completed"`
}

// CheckIn marks today's occurrence as done and returns the updated copy of c.
// On error the returned challenge is c unchanged.
func CheckIn(c model.Challenge, now time.Time, in CheckInInput) (model.Challenge, CheckInResult, error) {
	if c.Status != model.StatusActive {
		return c, CheckInResult{}, ErrChallengeNotActive
	}

	in.Notes = strings.TrimSpace(in.Notes)
	in.ProofURL = strings.TrimSpace(in.ProofURL)
	verr := &ValidationError{}
	if utf8.RuneCountInString(in.Notes) > MaxNotesLength {
		verr.add("notes", "must be at most 1000 characters")
	}
	if in.ProofURL != "" {
		verr.merge(validate.Var("proof_url", in.ProofURL, "url,max=2048"))
	}
	if err := verr.orNil(); err != nil {
		return c, CheckInResult{}, err
	}

	idx := OccurrenceOn(c.Occurrences, now)
	if idx < 0 {
		return c, CheckInResult{}, ErrNoOccurrenceScheduled
	}
	if c.Occurrences[idx].Checked {
		return c, CheckInResult{}, ErrAlreadyCheckedIn
	}

	out := clone(c)
	checkedAt := now
	occ := &out.Occurrences[idx]
	occ.Checked = true
	occ.CheckedAt = &checkedAt
	occ.Notes = in.Notes
	occ.ProofURL = in.ProofURL

	refreshMetrics(&out, now)

	res := CheckInResult{
		OccurrenceID:  occ.ID,
		PointsGained:  BasePoints,
		CurrentStreak: out.CurrentStreak,
	}
	if out.CurrentStreak > 0 && out.CurrentStreak%StreakBonusEvery == 0 {
		res.PointsGained += StreakBonus
	}
	if allChecked(out.Occurrences) {
		out.Status = model.StatusCompleted
		res.PointsGained += CompletionBonus
		res.Completed = true
	}
	out.PointsEarned += res.PointsGained

	return out, res, nil
}
