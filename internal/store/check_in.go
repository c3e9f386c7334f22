package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/motiveme/internal/model"
)

// CheckInStore reads the check-in ledger. Rows are written by
// ChallengeStore.RecordCheckIn together with the challenge update.
type CheckInStore struct {
	db *sql.DB
}

func NewCheckInStore(db *sql.DB) *CheckInStore {
	return &CheckInStore{db: db}
}

func scanCheckIn(scanner interface{ Scan(...any) error }) (*model.CheckIn, error) {
	var ci model.CheckIn
	err := scanner.Scan(
		&ci.ID, &ci.UserID, &ci.ChallengeID, &ci.OccurrenceID,
		&ci.CheckedAt, &ci.Notes, &ci.ProofURL, &ci.PointsGained,
	)
	if err != nil {
		return nil, err
	}
	return &ci, nil
}

const checkInCols = `id, user_id, challenge_id, occurrence_id, checked_at, notes, proof_url, points_gained`

// ListByUser returns the user's check-ins, newest first, optionally narrowed
// to one challenge when challengeID is not empty.
func (s *CheckInStore) ListByUser(userID int64, challengeID string, limit int) ([]model.CheckIn, error) {
	query := `SELECT ` + checkInCols + ` FROM check_ins WHERE user_id = ?`
	args := []any{userID}
	if challengeID != "" {
		query += ` AND challenge_id = ?`
		args = append(args, challengeID)
	}
	query += ` ORDER BY checked_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	var checkIns []model.CheckIn
	for rows.Next() {
		ci, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		checkIns = append(checkIns, *ci)
	}
	return checkIns, rows.Err()
}

func (s *CheckInStore) CountByUser(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM check_ins WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count check-ins: %w", err)
	}
	return n, nil
}
