package model

import "time"

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyCustom Frequency = "custom"
)

type ChallengeStatus string

const (
	StatusActive    ChallengeStatus = "active"
	StatusCompleted ChallengeStatus = "completed"
	StatusFailed    ChallengeStatus = "failed"
)

// Occurrence is one scheduled check-in day of a challenge.
type Occurrence struct {
	ID        string     `json:"id"`
	Date      time.Time  `json:"date"`
	Weekday   int        `json:"weekday"`
	Required  bool       `json:"required"`
	Checked   bool       `json:"checked"`
	CheckedAt *time.Time `json:"checked_at"`
	Notes     string     `json:"notes"`
	ProofURL  string     `json:"proof_url,omitempty"`
}

type Challenge struct {
	ID                    string          `json:"id"`
	OwnerID               int64           `json:"owner_id"`
	Title                 string          `json:"title"`
	StartDate             time.Time       `json:"start_date"`
	DurationDays          int             `json:"duration_days"`
	Frequency             Frequency       `json:"frequency"`
	CustomWeekdays        []int           `json:"custom_weekdays"`
	WitnessEmail          string          `json:"witness_email"`
	Gage                  string          `json:"gage"`
	Status                ChallengeStatus `json:"status"`
	Occurrences           []Occurrence    `json:"occurrences"`
	CurrentStreak         int             `json:"current_streak"`
	CompletionRatePercent int             `json:"completion_rate"`
	PointsEarned          int             `json:"points_earned"`
	Timezone              string          `json:"timezone"`
	Version               int             `json:"version"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// EndDate is the first calendar day after the challenge window.
func (c Challenge) EndDate() time.Time {
	return c.StartDate.AddDate(0, 0, c.DurationDays)
}

type CheckIn struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ChallengeID  string    `json:"challenge_id"`
	OccurrenceID string    `json:"occurrence_id"`
	CheckedAt    time.Time `json:"checked_at"`
	Notes        string    `json:"notes"`
	ProofURL     string    `json:"proof_url,omitempty"`
	PointsGained int       `json:"points_gained"`
}

type WitnessLink struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	ChallengeID string    `json:"challenge_id"`
	CreatedAt   time.Time `json:"created_at"`
}
