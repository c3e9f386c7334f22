package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/motiveme/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.Points, &u.LongestStreak, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, email, name, points, longest_streak, created_at, updated_at`

func (s *UserStore) Create(email, name, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		email, name, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetPasswordHash returns the user id and bcrypt hash for email, or 0 and ""
// when no such user exists.
func (s *UserStore) GetPasswordHash(email string) (int64, string, error) {
	var id int64
	var hash string
	err := s.db.QueryRow(`SELECT id, password_hash FROM users WHERE email = ?`, email).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("get password hash: %w", err)
	}
	return id, hash, nil
}

func (s *UserStore) UpdateName(id int64, name string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

// AddPoints adds delta to the user's profile points.
func (s *UserStore) AddPoints(id int64, delta int) error {
	_, err := s.db.Exec(
		`UPDATE users SET points = points + ?, updated_at = ? WHERE id = ?`,
		delta, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	return nil
}

// RecordStreak raises the user's longest streak to streak if it is higher.
func (s *UserStore) RecordStreak(id int64, streak int) error {
	_, err := s.db.Exec(
		`UPDATE users SET longest_streak = MAX(longest_streak, ?) WHERE id = ?`,
		streak, id,
	)
	if err != nil {
		return fmt.Errorf("record streak: %w", err)
	}
	return nil
}

// Stats gathers the counters badges are evaluated against. Witness count is
// the number of challenges naming the user's email as witness.
func (s *UserStore) Stats(id int64) (model.UserStats, error) {
	var st model.UserStats
	err := s.db.QueryRow(
		`SELECT u.points, u.longest_streak,
		   (SELECT COUNT(*) FROM challenges c WHERE c.owner_id = u.id),
		   (SELECT COUNT(*) FROM challenges c WHERE c.owner_id = u.id AND c.status = 'completed'),
		   (SELECT COUNT(*) FROM check_ins ci WHERE ci.user_id = u.id),
		   (SELECT COUNT(*) FROM challenges c WHERE c.witness_email = u.email)
		 FROM users u WHERE u.id = ?`,
		id,
	).Scan(&st.Points, &st.LongestStreak, &st.ChallengesCreated, &st.ChallengesCompleted, &st.TotalCheckIns, &st.WitnessCount)
	if err != nil {
		return model.UserStats{}, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
