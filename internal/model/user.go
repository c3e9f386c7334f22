package model

import "time"

type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Points        int       `json:"points"`
	LongestStreak int       `json:"longest_streak"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserStats are the counters badge conditions are evaluated against.
type UserStats struct {
	Points              int `json:"points"`
	ChallengesCreated   int `json:"challenges_created"`
	ChallengesCompleted int `json:"challenges_completed"`
	TotalCheckIns       int `json:"total_checkins"`
	LongestStreak       int `json:"longest_streak"`
	WitnessCount        int `json:"witness_count"`
}
