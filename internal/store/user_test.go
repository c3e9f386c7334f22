package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/motiveme/internal/database"
	"github.com/dukerupert/motiveme/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "Test User", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUserCreate(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	u, err := us.Create("alice@example.com", "Alice", "$2a$10$hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Points != 0 || u.LongestStreak != 0 {
		t.Errorf("points = %d, streak = %d, want 0", u.Points, u.LongestStreak)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	if _, err := us.Create("alice@example.com", "Alice", "h"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("alice@example.com", "Alice2", "h"); err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	u, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserGetPasswordHash(t *testing.T) {
	us := NewUserStore(openTestDB(t))
	created, _ := us.Create("alice@example.com", "Alice", "secret-hash")

	id, hash, err := us.GetPasswordHash("alice@example.com")
	if err != nil {
		t.Fatalf("get password hash: %v", err)
	}
	if id != created.ID || hash != "secret-hash" {
		t.Errorf("got (%d, %q), want (%d, %q)", id, hash, created.ID, "secret-hash")
	}

	id, hash, err = us.GetPasswordHash("nobody@example.com")
	if err != nil || id != 0 || hash != "" {
		t.Errorf("unknown email: got (%d, %q, %v)", id, hash, err)
	}
}

func TestUserUpdateName(t *testing.T) {
	us := NewUserStore(openTestDB(t))
	created, _ := us.Create("alice@example.com", "Alice", "h")

	u, err := us.UpdateName(created.ID, "Alicia")
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if u.Name != "Alicia" {
		t.Errorf("name = %q, want %q", u.Name, "Alicia")
	}
}

func TestUserPointsAndStreak(t *testing.T) {
	us := NewUserStore(openTestDB(t))
	u, _ := us.Create("alice@example.com", "Alice", "h")

	if err := us.AddPoints(u.ID, 25); err != nil {
		t.Fatalf("add points: %v", err)
	}
	if err := us.RecordStreak(u.ID, 4); err != nil {
		t.Fatalf("record streak: %v", err)
	}
	if err := us.RecordStreak(u.ID, 2); err != nil {
		t.Fatalf("record streak: %v", err)
	}

	got, _ := us.GetByID(u.ID)
	if got.Points != 25 {
		t.Errorf("points = %d, want 25", got.Points)
	}
	if got.LongestStreak != 4 {
		t.Errorf("longest streak = %d, want 4", got.LongestStreak)
	}
}

func TestUserStats(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)
	cs := NewChallengeStore(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	c1 := testChallenge(alice.ID, "bob@example.com")
	c2 := testChallenge(alice.ID, "bob@example.com")
	c2.Status = model.StatusCompleted
	c3 := testChallenge(bob.ID, "alice@example.com")
	for _, c := range []model.Challenge{c1, c2, c3} {
		if _, err := cs.Create(c); err != nil {
			t.Fatalf("create challenge: %v", err)
		}
	}

	st, err := us.Stats(alice.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.ChallengesCreated != 2 || st.ChallengesCompleted != 1 {
		t.Errorf("created = %d, completed = %d, want 2, 1", st.ChallengesCreated, st.ChallengesCompleted)
	}
	if st.WitnessCount != 1 {
		t.Errorf("alice witness count = %d, want 1", st.WitnessCount)
	}

	st, _ = us.Stats(bob.ID)
	if st.WitnessCount != 2 {
		t.Errorf("bob witness count = %d, want 2", st.WitnessCount)
	}
}

func testChallenge(ownerID int64, witness string) model.Challenge {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Challenge{
		OwnerID:      ownerID,
		Title:        "Read every night",
		StartDate:    start,
		DurationDays: 3,
		Frequency:    model.FrequencyDaily,
		WitnessEmail: witness,
		Gage:         "Cook dinner",
		Status:       model.StatusActive,
		Timezone:     "UTC",
		Occurrences: []model.Occurrence{
			{ID: "20250101_0", Date: start, Weekday: 3, Required: true},
			{ID: "20250102_1", Date: start.AddDate(0, 0, 1), Weekday: 4, Required: true},
			{ID: "20250103_2", Date: start.AddDate(0, 0, 2), Weekday: 5, Required: true},
		},
	}
}
