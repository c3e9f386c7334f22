// Package challenge holds the lifecycle rules of a challenge: building one
// from user input, generating its occurrences, checking in, recomputing its
// status and aggregating stats. Every function is pure; "now" always comes
// from the caller and nothing is persisted or sent from here.
package challenge

import (
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/validate"
)

// Params is the user-supplied part of a new challenge.
type Params struct {
	Title          string          `json:"title" validate:"min=5,max=100"`
	DurationDays   int             `json:"duration_days" validate:"min=1,max=365"`
	Frequency      model.Frequency `json:"frequency" validate:"oneof=daily custom"`
	CustomWeekdays []int           `json:"custom_weekdays" validate:"dive,min=0,max=6"`
	WitnessEmail   string          `json:"witness_email" validate:"required,email,max=254"`
	Gage           string          `json:"gage" validate:"required,max=500"`
}

// New validates p and builds an Active challenge starting on now's calendar
// day, in now's location, with its occurrences generated once.
func New(p Params, now time.Time) (model.Challenge, error) {
	p = normalize(p)

	verr := &ValidationError{}
	verr.merge(validate.Struct(p))

	if p.Frequency == model.FrequencyCustom {
		switch {
		case len(p.CustomWeekdays) == 0:
			verr.add("custom_weekdays", "at least one day is required")
		case len(p.CustomWeekdays) > 7:
			verr.add("custom_weekdays", "at most 7 days")
		}
	}
	if err := verr.orNil(); err != nil {
		return model.Challenge{}, err
	}

	start := startOfDay(now)
	c := model.Challenge{
		Title:          p.Title,
		StartDate:      start,
		DurationDays:   p.DurationDays,
		Frequency:      p.Frequency,
		CustomWeekdays: p.CustomWeekdays,
		WitnessEmail:   p.WitnessEmail,
		Gage:           p.Gage,
		Status:         model.StatusActive,
		Timezone:       now.Location().String(),
	}
	c.Occurrences = GenerateOccurrences(start, c.DurationDays, c.Frequency, c.CustomWeekdays)
	refreshMetrics(&c, now)
	return c, nil
}

// EditParams carries the mutable fields; nil means unchanged. The schedule
// (start, duration, frequency) is immutable once created.
type EditParams struct {
	Title        *string `json:"title"`
	WitnessEmail *string `json:"witness_email"`
	Gage         *string `json:"gage"`
}

func Edit(c model.Challenge, p EditParams) (model.Challenge, error) {
	verr := &ValidationError{}
	out := clone(c)

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		verr.merge(validate.Var("title", title, "min=5,max=100"))
		out.Title = title
	}
	if p.WitnessEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*p.WitnessEmail))
		verr.merge(validate.Var("witness_email", email, "required,email,max=254"))
		out.WitnessEmail = email
	}
	if p.Gage != nil {
		gage := collapseSpaces(*p.Gage)
		verr.merge(validate.Var("gage", gage, "required,max=500"))
		out.Gage = gage
	}

	if err := verr.orNil(); err != nil {
		return c, err
	}
	return out, nil
}

func normalize(p Params) Params {
	p.Title = strings.TrimSpace(p.Title)
	p.WitnessEmail = strings.ToLower(strings.TrimSpace(p.WitnessEmail))
	p.Gage = collapseSpaces(p.Gage)
	p.Frequency = model.Frequency(strings.ToLower(strings.TrimSpace(string(p.Frequency))))

	if p.Frequency != model.FrequencyCustom {
		p.CustomWeekdays = nil
		return p
	}
	days := slices.Clone(p.CustomWeekdays)
	slices.Sort(days)
	p.CustomWeekdays = slices.Compact(days)
	return p
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
