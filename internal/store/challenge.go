package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/motiveme/internal/model"
)

// ErrVersionConflict means the challenge changed since it was read.
var ErrVersionConflict = errors.New("challenge was modified concurrently")

const startDateLayout = "2006-01-02"

type ChallengeStore struct {
	db *sql.DB
}

func NewChallengeStore(db *sql.DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

func scanChallenge(scanner interface{ Scan(...any) error }) (*model.Challenge, error) {
	var c model.Challenge
	var startDate, customDays, occurrences string

	err := scanner.Scan(
		&c.ID, &c.OwnerID, &c.Title, &startDate, &c.DurationDays, &c.Frequency,
		&customDays, &c.WitnessEmail, &c.Gage, &c.Status, &occurrences,
		&c.CurrentStreak, &c.CompletionRatePercent, &c.PointsEarned, &c.Timezone,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	c.StartDate, err = time.ParseInLocation(startDateLayout, startDate, loc)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if err := json.Unmarshal([]byte(customDays), &c.CustomWeekdays); err != nil {
		return nil, fmt.Errorf("decode custom days: %w", err)
	}
	if len(c.CustomWeekdays) == 0 {
		c.CustomWeekdays = nil
	}
	if err := json.Unmarshal([]byte(occurrences), &c.Occurrences); err != nil {
		return nil, fmt.Errorf("decode occurrences: %w", err)
	}
	for i := range c.Occurrences {
		c.Occurrences[i].Date = c.Occurrences[i].Date.In(loc)
	}
	return &c, nil
}

const challengeCols = `id, owner_id, title, start_date, duration_days, frequency, custom_days, witness_email, gage,
	status, occurrences, current_streak, completion_rate, points_earned, timezone, version, created_at, updated_at`

func encodeSchedule(c model.Challenge) (customDays, occurrences string, err error) {
	days := c.CustomWeekdays
	if days == nil {
		days = []int{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", "", fmt.Errorf("encode custom days: %w", err)
	}
	occ := c.Occurrences
	if occ == nil {
		occ = []model.Occurrence{}
	}
	o, err := json.Marshal(occ)
	if err != nil {
		return "", "", fmt.Errorf("encode occurrences: %w", err)
	}
	return string(b), string(o), nil
}

// Create inserts c under a fresh id with version 1.
func (s *ChallengeStore) Create(c model.Challenge) (*model.Challenge, error) {
	customDays, occurrences, err := encodeSchedule(c)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()

	_, err = s.db.Exec(
		`INSERT INTO challenges (id, owner_id, title, start_date, duration_days, frequency, custom_days,
		   witness_email, gage, status, occurrences, current_streak, completion_rate, points_earned, timezone)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.OwnerID, c.Title, c.StartDate.Format(startDateLayout), c.DurationDays, c.Frequency, customDays,
		c.WitnessEmail, c.Gage, c.Status, occurrences, c.CurrentStreak, c.CompletionRatePercent, c.PointsEarned, c.Timezone,
	)
	if err != nil {
		return nil, fmt.Errorf("insert challenge: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChallengeStore) GetByID(id string) (*model.Challenge, error) {
	row := s.db.QueryRow(`SELECT `+challengeCols+` FROM challenges WHERE id = ?`, id)
	c, err := scanChallenge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeStore) list(query string, args ...any) ([]model.Challenge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// ListByOwner returns the owner's challenges, newest first.
func (s *ChallengeStore) ListByOwner(ownerID int64) ([]model.Challenge, error) {
	challenges, err := s.list(`SELECT `+challengeCols+` FROM challenges WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list challenges by owner: %w", err)
	}
	return challenges, nil
}

// ListActive returns every Active challenge across all owners.
func (s *ChallengeStore) ListActive() ([]model.Challenge, error) {
	challenges, err := s.list(`SELECT ` + challengeCols + ` FROM challenges WHERE status = 'active' ORDER BY owner_id, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active challenges: %w", err)
	}
	return challenges, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func save(db execer, c model.Challenge) error {
	customDays, occurrences, err := encodeSchedule(c)
	if err != nil {
		return err
	}
	result, err := db.Exec(
		`UPDATE challenges SET title = ?, witness_email = ?, gage = ?, custom_days = ?, status = ?, occurrences = ?,
		   current_streak = ?, completion_rate = ?, points_earned = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		c.Title, c.WitnessEmail, c.Gage, customDays, c.Status, occurrences,
		c.CurrentStreak, c.CompletionRatePercent, c.PointsEarned, time.Now().UTC(),
		c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Save writes the mutable state of c if its version still matches the stored
// one, and returns the stored row with the bumped version.
func (s *ChallengeStore) Save(c model.Challenge) (*model.Challenge, error) {
	if err := save(s.db, c); err != nil {
		return nil, err
	}
	return s.GetByID(c.ID)
}

// RecordCheckIn saves c, appends ci to the ledger and credits the owner's
// points and longest streak in one transaction.
func (s *ChallengeStore) RecordCheckIn(c model.Challenge, ci model.CheckIn) (*model.Challenge, *model.CheckIn, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := save(tx, c); err != nil {
		return nil, nil, err
	}

	result, err := tx.Exec(
		`INSERT INTO check_ins (user_id, challenge_id, occurrence_id, checked_at, notes, proof_url, points_gained)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ci.UserID, ci.ChallengeID, ci.OccurrenceID, ci.CheckedAt.UTC(), ci.Notes, ci.ProofURL, ci.PointsGained,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert check-in: %w", err)
	}
	ci.ID, err = result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE users SET points = points + ?, longest_streak = MAX(longest_streak, ?), updated_at = ? WHERE id = ?`,
		ci.PointsGained, c.CurrentStreak, time.Now().UTC(), ci.UserID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("credit user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit check-in: %w", err)
	}

	saved, err := s.GetByID(c.ID)
	if err != nil {
		return nil, nil, err
	}
	return saved, &ci, nil
}

func (s *ChallengeStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM challenges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}
