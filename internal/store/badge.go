package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/motiveme/internal/model"
)

type BadgeStore struct {
	db *sql.DB
}

func NewBadgeStore(db *sql.DB) *BadgeStore {
	return &BadgeStore{db: db}
}

// Award records the badge and credits its points to the user. It reports
// false, crediting nothing, when the user already holds the badge.
func (s *BadgeStore) Award(userID int64, badgeID string, points int) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT OR IGNORE INTO user_badges (user_id, badge_id) VALUES (?, ?)`, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("insert user badge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if points > 0 {
		if _, err := tx.Exec(`UPDATE users SET points = points + ? WHERE id = ?`, points, userID); err != nil {
			return false, fmt.Errorf("credit badge points: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit badge: %w", err)
	}
	return true, nil
}

func (s *BadgeStore) ListByUser(userID int64) ([]model.UserBadge, error) {
	rows, err := s.db.Query(
		`SELECT user_id, badge_id, earned_at FROM user_badges WHERE user_id = ? ORDER BY earned_at, badge_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	defer rows.Close()

	var badges []model.UserBadge
	for rows.Next() {
		var b model.UserBadge
		if err := rows.Scan(&b.UserID, &b.BadgeID, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan user badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// IDs returns just the badge ids the user holds.
func (s *BadgeStore) IDs(userID int64) ([]string, error) {
	badges, err := s.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.BadgeID)
	}
	return ids, nil
}
