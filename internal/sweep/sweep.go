// Package sweep keeps stored challenges in step with the calendar: it
// recomputes them when they are read, closes out the ones whose window has
// passed and reminds owners of check-ins still open today.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/motiveme/internal/badge"
	"github.com/dukerupert/motiveme/internal/challenge"
	"github.com/dukerupert/motiveme/internal/metrics"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/notify"
	"github.com/dukerupert/motiveme/internal/store"
)

type Sweeper struct {
	challenges *store.ChallengeStore
	users      *store.UserStore
	notifier   *notify.Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func New(challenges *store.ChallengeStore, users *store.UserStore, n *notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		challenges: challenges,
		users:      users,
		notifier:   n,
		metrics:    m,
		logger:     logger,
		Now:        time.Now,
	}
}

// NowFor is the current time in c's own time zone.
func (s *Sweeper) NowFor(c model.Challenge) time.Time {
	return s.Now().In(challenge.Location(c))
}

// Refresh recomputes c and persists the result when anything changed. A
// transition out of Active is announced to the owner and the witness.
// If another writer saved c first, the fresh row is returned recomputed but
// unsaved; the next read or sweep persists it.
func (s *Sweeper) Refresh(c model.Challenge) (model.Challenge, error) {
	next := challenge.Recompute(c, s.NowFor(c))
	if !changed(c, next) {
		return next, nil
	}

	saved, err := s.challenges.Save(next)
	if errors.Is(err, store.ErrVersionConflict) {
		s.metrics.VersionConflicts.Inc()
		fresh, err := s.challenges.GetByID(c.ID)
		if err != nil {
			return c, err
		}
		if fresh == nil {
			return next, nil
		}
		return challenge.Recompute(*fresh, s.NowFor(*fresh)), nil
	}
	if err != nil {
		return c, fmt.Errorf("save recomputed challenge: %w", err)
	}

	if c.Status == model.StatusActive && saved.Status != model.StatusActive {
		s.Ended(*saved)
	}
	return *saved, nil
}

// Ended announces a challenge that just left Active and returns any badges
// the owner earned by it.
func (s *Sweeper) Ended(c model.Challenge) []badge.Badge {
	s.logger.Info("challenge ended", "challenge_id", c.ID, "owner_id", c.OwnerID, "status", c.Status, "completion_rate", c.CompletionRatePercent)
	s.notifier.ChallengeEnded(c)
	if c.Status != model.StatusCompleted {
		return nil
	}
	return s.notifier.AwardBadges(c.OwnerID)
}

func changed(before, after model.Challenge) bool {
	return before.Status != after.Status ||
		before.CurrentStreak != after.CurrentStreak ||
		before.CompletionRatePercent != after.CompletionRatePercent
}

// RunStatusSweep refreshes every Active challenge and returns how many left
// Active. Failures on one challenge are logged and do not stop the sweep.
func (s *Sweeper) RunStatusSweep(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(s.metrics.SweepDuration)
	defer timer.ObserveDuration()

	active, err := s.challenges.ListActive()
	if err != nil {
		return 0, fmt.Errorf("list active challenges: %w", err)
	}

	ended := 0
	for _, c := range active {
		if err := ctx.Err(); err != nil {
			return ended, err
		}
		next, err := s.Refresh(c)
		if err != nil {
			s.logger.Error("refresh challenge", "challenge_id", c.ID, "error", err)
			continue
		}
		if next.Status != model.StatusActive {
			ended++
		}
	}

	s.logger.Info("status sweep finished", "active", len(active), "ended", ended)
	return ended, nil
}

// SendReminders emails every owner who still has a check-in open today and
// returns how many owners were reminded.
func (s *Sweeper) SendReminders(ctx context.Context) (int, error) {
	active, err := s.challenges.ListActive()
	if err != nil {
		return 0, fmt.Errorf("list active challenges: %w", err)
	}

	// One email per owner, in ListActive order.
	var owners []int64
	pending := make(map[int64][]string)
	for _, c := range active {
		if !challenge.PendingToday(c, s.NowFor(c)) {
			continue
		}
		if _, ok := pending[c.OwnerID]; !ok {
			owners = append(owners, c.OwnerID)
		}
		pending[c.OwnerID] = append(pending[c.OwnerID], c.Title)
	}

	sent := 0
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		user, err := s.users.GetByID(ownerID)
		if err != nil || user == nil {
			s.logger.Error("load reminder recipient", "user_id", ownerID, "error", err)
			continue
		}
		s.notifier.DailyReminder(user, pending[ownerID])
		sent++
	}

	s.logger.Info("daily reminders queued", "owners", sent)
	return sent, nil
}
