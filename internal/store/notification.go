package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/motiveme/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var read int
	err := scanner.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Read = read != 0
	return &n, nil
}

const notificationCols = `id, user_id, type, title, message, read, created_at`

func (s *NotificationStore) Create(userID int64, typ, title, message string) (*model.Notification, error) {
	result, err := s.db.Exec(
		`INSERT INTO notifications (user_id, type, title, message) VALUES (?, ?, ?, ?)`,
		userID, typ, title, message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

// ListByUser returns the newest notifications first. With unreadOnly set,
// read ones are skipped.
func (s *NotificationStore) ListByUser(userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// SetRead flags one of the user's notifications. It reports false when no
// notification with that id belongs to the user.
func (s *NotificationStore) SetRead(userID, id int64, read bool) (bool, error) {
	var r int
	if read {
		r = 1
	}
	result, err := s.db.Exec(`UPDATE notifications SET read = ? WHERE id = ? AND user_id = ?`, r, id, userID)
	if err != nil {
		return false, fmt.Errorf("set notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *NotificationStore) CountUnread(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
