package sweep

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dukerupert/motiveme/internal/challenge"
	"github.com/dukerupert/motiveme/internal/database"
	"github.com/dukerupert/motiveme/internal/metrics"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/notify"
	"github.com/dukerupert/motiveme/internal/store"
)

type testEnv struct {
	sweeper       *Sweeper
	metrics       *metrics.Metrics
	challenges    *store.ChallengeStore
	users         *store.UserStore
	notifications *store.NotificationStore
	owner         *model.User
	now           time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		metrics:       metrics.New(),
		challenges:    store.NewChallengeStore(db),
		users:         store.NewUserStore(db),
		notifications: store.NewNotificationStore(db),
		now:           time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	n := notify.New(env.notifications, env.users, store.NewBadgeStore(db), store.NewWitnessLinkStore(db), nil, nil, env.metrics, logger)
	env.sweeper = New(env.challenges, env.users, n, env.metrics, logger)
	env.sweeper.Now = func() time.Time { return env.now }

	env.owner, err = env.users.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return env
}

// create stores a daily challenge starting on env.now's day.
func (e *testEnv) create(t *testing.T, title string, days int) model.Challenge {
	t.Helper()
	c, err := challenge.New(challenge.Params{
		Title:        title,
		DurationDays: days,
		Frequency:    model.FrequencyDaily,
		WitnessEmail: "bob@example.com",
		Gage:         "Buy pizza",
	}, e.now)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	c.OwnerID = e.owner.ID
	created, err := e.challenges.Create(c)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	return *created
}

func TestRefreshUnchangedDoesNotSave(t *testing.T) {
	env := newTestEnv(t)
	c := env.create(t, "Run every day", 3)

	got, err := env.sweeper.Refresh(c)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Version != c.Version {
		t.Errorf("version = %d, want %d (no write)", got.Version, c.Version)
	}
}

func TestRefreshPersistsTransition(t *testing.T) {
	env := newTestEnv(t)
	c := env.create(t, "Run every day", 3)

	env.now = env.now.AddDate(0, 0, 5)
	got, err := env.sweeper.Refresh(c)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}

	stored, err := env.challenges.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if stored.Status != model.StatusFailed || stored.Version != c.Version+1 {
		t.Errorf("stored status = %s version = %d", stored.Status, stored.Version)
	}

	list, err := env.notifications.ListByUser(env.owner.ID, false, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 1 || list[0].Type != model.NotifChallengeFailed {
		t.Errorf("notifications = %+v, want one failure", list)
	}
}

func TestRefreshVersionConflictReturnsFreshRow(t *testing.T) {
	env := newTestEnv(t)
	c := env.create(t, "Run every day", 3)

	edited := c
	edited.Title = "Run every single day"
	if _, err := env.challenges.Save(edited); err != nil {
		t.Fatalf("save: %v", err)
	}

	env.now = env.now.AddDate(0, 0, 5)
	got, err := env.sweeper.Refresh(c)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Title != "Run every single day" {
		t.Errorf("title = %q, want the concurrently saved one", got.Title)
	}
	if got.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if v := testutil.ToFloat64(env.metrics.VersionConflicts); v != 1 {
		t.Errorf("version conflicts = %v, want 1", v)
	}
}

func TestRunStatusSweep(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Short challenge", 1)
	long := env.create(t, "Long challenge", 30)

	env.now = env.now.AddDate(0, 0, 3)
	ended, err := env.sweeper.RunStatusSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if ended != 1 {
		t.Errorf("ended = %d, want 1", ended)
	}

	active, err := env.challenges.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != long.ID {
		t.Errorf("active = %+v, want only the long challenge", active)
	}
	if v := testutil.ToFloat64(env.metrics.Transitions.WithLabelValues("failed")); v != 1 {
		t.Errorf("failed transitions = %v, want 1", v)
	}
}

func TestRunStatusSweepStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Short challenge", 1)
	env.now = env.now.AddDate(0, 0, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.sweeper.RunStatusSweep(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestRunStatusSweepSecondPassIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Short challenge", 1)
	env.now = env.now.AddDate(0, 0, 3)

	if _, err := env.sweeper.RunStatusSweep(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	ended, err := env.sweeper.RunStatusSweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if ended != 0 {
		t.Errorf("ended = %d, want 0", ended)
	}
}

func TestSendReminders(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Read ten pages", 5)
	done := env.create(t, "Drink water", 5)

	checked, _, err := challenge.CheckIn(done, env.now, challenge.CheckInInput{})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if _, err := env.challenges.Save(checked); err != nil {
		t.Fatalf("save: %v", err)
	}

	bob, err := env.users.Create("bob@example.com", "Bob", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	c, err := challenge.New(challenge.Params{
		Title:        "Bob meditates",
		DurationDays: 5,
		Frequency:    model.FrequencyDaily,
		WitnessEmail: "alice@example.com",
		Gage:         "Cook dinner",
	}, env.now)
	if err != nil {
		t.Fatalf("new challenge: %v", err)
	}
	c.OwnerID = bob.ID
	if _, err := env.challenges.Create(c); err != nil {
		t.Fatalf("create challenge: %v", err)
	}

	sent, err := env.sweeper.SendReminders(context.Background())
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	if sent != 2 {
		t.Errorf("reminded owners = %d, want 2", sent)
	}
}
