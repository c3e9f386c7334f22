package model

import "time"

type UserBadge struct {
	UserID   int64     `json:"user_id"`
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}
