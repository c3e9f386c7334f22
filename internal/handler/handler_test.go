package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/motiveme/internal/auth"
	"github.com/dukerupert/motiveme/internal/database"
	"github.com/dukerupert/motiveme/internal/metrics"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/notify"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/sweep"
)

type testEnv struct {
	db            *sql.DB
	logger        *slog.Logger
	metrics       *metrics.Metrics
	users         *store.UserStore
	sessions      *store.SessionStore
	challenges    *store.ChallengeStore
	links         *store.WitnessLinkStore
	checkIns      *store.CheckInStore
	notifications *store.NotificationStore
	badges        *store.BadgeStore
	notifier      *notify.Notifier
	sweeper       *sweep.Sweeper
	now           time.Time
	user          *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:            db,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:       metrics.New(),
		users:         store.NewUserStore(db),
		sessions:      store.NewSessionStore(db),
		challenges:    store.NewChallengeStore(db),
		links:         store.NewWitnessLinkStore(db),
		checkIns:      store.NewCheckInStore(db),
		notifications: store.NewNotificationStore(db),
		badges:        store.NewBadgeStore(db),
		now:           time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	env.notifier = notify.New(env.notifications, env.users, env.badges, env.links, nil, nil, env.metrics, env.logger)
	env.sweeper = sweep.New(env.challenges, env.users, env.notifier, env.metrics, env.logger)
	env.sweeper.Now = func() time.Time { return env.now }

	env.user, err = env.users.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return env
}

func (e *testEnv) challengeHandler() *ChallengeHandler {
	return NewChallengeHandler(e.challenges, e.links, e.users, e.sweeper, e.notifier, e.metrics, time.UTC, e.logger)
}

// request builds a request authenticated as userID (0 for anonymous) with
// body encoded as JSON and the given path values set as name, value pairs.
func request(t *testing.T, method, path string, body any, userID int64, pathValues ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		r = r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID}))
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		r.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return r
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func fieldNames(resp errorResponse) []string {
	names := make([]string, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		names = append(names, f.Field)
	}
	return names
}

func validChallengeBody() map[string]any {
	return map[string]any{
		"title":         "Run every day",
		"duration_days": 7,
		"frequency":     "daily",
		"witness_email": "bob@example.com",
		"gage":          "Buy pizza for the team",
	}
}

// createChallenge posts a valid challenge as the env's user.
func (e *testEnv) createChallenge(t *testing.T, body map[string]any) model.Challenge {
	t.Helper()
	w := httptest.NewRecorder()
	e.challengeHandler().Create(w, request(t, "POST", "/api/challenges", body, e.user.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	return decode[model.Challenge](t, w)
}
