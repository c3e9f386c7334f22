package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/motiveme/internal/model"
)

// WitnessLinkStore holds the unguessable tokens that let a witness view a
// challenge without an account.
type WitnessLinkStore struct {
	db *sql.DB
}

func NewWitnessLinkStore(db *sql.DB) *WitnessLinkStore {
	return &WitnessLinkStore{db: db}
}

func scanWitnessLink(scanner interface{ Scan(...any) error }) (*model.WitnessLink, error) {
	var wl model.WitnessLink
	err := scanner.Scan(&wl.ID, &wl.Token, &wl.ChallengeID, &wl.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &wl, nil
}

const witnessLinkCols = `id, token, challenge_id, created_at`

// Create issues the link for a challenge. A challenge has at most one link.
func (s *WitnessLinkStore) Create(challengeID string) (*model.WitnessLink, error) {
	token, err := randomToken(24)
	if err != nil {
		return nil, err
	}
	result, err := s.db.Exec(
		`INSERT INTO witness_links (token, challenge_id) VALUES (?, ?)`,
		token, challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert witness link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+witnessLinkCols+` FROM witness_links WHERE id = ?`, id)
	return scanWitnessLink(row)
}

func (s *WitnessLinkStore) GetByToken(token string) (*model.WitnessLink, error) {
	row := s.db.QueryRow(`SELECT `+witnessLinkCols+` FROM witness_links WHERE token = ?`, token)
	wl, err := scanWitnessLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get witness link by token: %w", err)
	}
	return wl, nil
}

func (s *WitnessLinkStore) GetByChallenge(challengeID string) (*model.WitnessLink, error) {
	row := s.db.QueryRow(`SELECT `+witnessLinkCols+` FROM witness_links WHERE challenge_id = ?`, challengeID)
	wl, err := scanWitnessLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get witness link by challenge: %w", err)
	}
	return wl, nil
}
