package model

import "time"

const (
	NotifChallengeCreated   = "challenge_created"
	NotifCheckInSuccess     = "checkin_success"
	NotifChallengeCompleted = "challenge_completed"
	NotifChallengeFailed    = "challenge_failed"
	NotifBadgeEarned        = "badge_earned"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
