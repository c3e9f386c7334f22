// Package notify fans challenge events out to the owner's in-app feed, the
// owner's open websocket sessions and the witness's inbox.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/motiveme/internal/badge"
	"github.com/dukerupert/motiveme/internal/metrics"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/websocket"
)

const emailTimeout = 30 * time.Second

// Mailer is the subset of the email client the notifier drives.
type Mailer interface {
	Configured() bool
	SendWitnessInvite(ctx context.Context, to, ownerName, title, gage, witnessToken string) error
	SendChallengeCompleted(ctx context.Context, to, ownerName, title, witnessToken string) error
	SendChallengeFailed(ctx context.Context, to, ownerName, title, gage string, completionRate int, witnessToken string) error
	SendDailyReminder(ctx context.Context, to, name string, titles []string) error
}

type Notifier struct {
	notifications *store.NotificationStore
	users         *store.UserStore
	badges        *store.BadgeStore
	links         *store.WitnessLinkStore
	hub           *websocket.Hub
	mailer        Mailer
	metrics       *metrics.Metrics
	logger        *slog.Logger

	wg sync.WaitGroup
}

func New(
	notifications *store.NotificationStore,
	users *store.UserStore,
	badges *store.BadgeStore,
	links *store.WitnessLinkStore,
	hub *websocket.Hub,
	mailer Mailer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		badges:        badges,
		links:         links,
		hub:           hub,
		mailer:        mailer,
		metrics:       m,
		logger:        logger,
	}
}

// Wait blocks until every queued email has been attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Push sends a websocket event to the user's open sessions.
func (n *Notifier) Push(userID int64, msg websocket.Message) {
	if n.hub != nil {
		n.hub.SendToUser(userID, msg)
	}
}

// Notify stores an in-app notification and pushes it live.
func (n *Notifier) Notify(userID int64, typ, title, message string) {
	notif, err := n.notifications.Create(userID, typ, title, message)
	if err != nil {
		n.logger.Error("create notification", "user_id", userID, "type", typ, "error", err)
		return
	}
	n.Push(userID, websocket.NewMessage("notification", "created", fmt.Sprint(notif.ID), notif))
}

// mail runs send in the background with its own deadline, so a slow mail
// provider never holds up a request or a sweep.
func (n *Notifier) mail(kind string, send func(ctx context.Context) error) {
	if n.mailer == nil || !n.mailer.Configured() {
		n.logger.Debug("email not configured, skipping", "kind", kind)
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()

		err := send(ctx)
		n.metrics.EmailResult(kind, err)
		if err != nil {
			n.logger.Error("send email", "kind", kind, "error", err)
		}
	}()
}

// ChallengeCreated notifies the owner and invites the witness.
func (n *Notifier) ChallengeCreated(owner *model.User, c model.Challenge, link *model.WitnessLink) {
	n.Notify(owner.ID, model.NotifChallengeCreated, "Challenge started",
		fmt.Sprintf("\"%s\" runs for %d days. %s is your witness.", c.Title, c.DurationDays, c.WitnessEmail))
	n.Push(owner.ID, websocket.NewMessage("challenge", "created", c.ID, c))
	n.WitnessInvite(owner, c, link)
}

// WitnessInvite emails the challenge's current witness their link.
func (n *Notifier) WitnessInvite(owner *model.User, c model.Challenge, link *model.WitnessLink) {
	if link == nil {
		return
	}
	name := displayName(owner)
	n.mail("witness-invite", func(ctx context.Context) error {
		return n.mailer.SendWitnessInvite(ctx, c.WitnessEmail, name, c.Title, c.Gage, link.Token)
	})
}

// ChallengeEnded reports a transition out of Active to the owner and the
// witness. c must already be Completed or Failed.
func (n *Notifier) ChallengeEnded(c model.Challenge) {
	owner, err := n.users.GetByID(c.OwnerID)
	if err != nil || owner == nil {
		n.logger.Error("load challenge owner", "challenge_id", c.ID, "owner_id", c.OwnerID, "error", err)
		return
	}
	link, err := n.links.GetByChallenge(c.ID)
	if err != nil {
		n.logger.Error("load witness link", "challenge_id", c.ID, "error", err)
	}
	token := ""
	if link != nil {
		token = link.Token
	}
	name := displayName(owner)

	n.metrics.Transitions.WithLabelValues(string(c.Status)).Inc()

	switch c.Status {
	case model.StatusCompleted:
		n.Notify(owner.ID, model.NotifChallengeCompleted, "Challenge completed",
			fmt.Sprintf("You finished \"%s\" at %d%%. No gage to pay!", c.Title, c.CompletionRatePercent))
		n.mail("challenge-completed", func(ctx context.Context) error {
			return n.mailer.SendChallengeCompleted(ctx, c.WitnessEmail, name, c.Title, token)
		})
	case model.StatusFailed:
		n.Notify(owner.ID, model.NotifChallengeFailed, "Challenge failed",
			fmt.Sprintf("\"%s\" ended at %d%%. Time to pay the gage: %s", c.Title, c.CompletionRatePercent, c.Gage))
		n.mail("challenge-failed", func(ctx context.Context) error {
			return n.mailer.SendChallengeFailed(ctx, c.WitnessEmail, name, c.Title, c.Gage, c.CompletionRatePercent, token)
		})
	default:
		return
	}
	n.Push(owner.ID, websocket.NewMessage("challenge", string(c.Status), c.ID, c))
}

// AwardBadges evaluates the user's counters against the catalog and records
// every newly earned badge with its points. It returns the badges awarded.
func (n *Notifier) AwardBadges(userID int64) []badge.Badge {
	stats, err := n.users.Stats(userID)
	if err != nil {
		n.logger.Error("load user stats", "user_id", userID, "error", err)
		return nil
	}
	owned, err := n.badges.IDs(userID)
	if err != nil {
		n.logger.Error("load user badges", "user_id", userID, "error", err)
		return nil
	}

	var awarded []badge.Badge
	for _, b := range badge.Evaluate(stats, owned) {
		ok, err := n.badges.Award(userID, b.ID, b.Points)
		if err != nil {
			n.logger.Error("award badge", "user_id", userID, "badge", b.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		awarded = append(awarded, b)
		n.metrics.BadgesAwarded.WithLabelValues(b.ID).Inc()
		n.metrics.PointsAwarded.Add(float64(b.Points))

		msg := fmt.Sprintf("%s %s: %s", b.Icon, b.Name, b.Description)
		if b.Points > 0 {
			msg += fmt.Sprintf(" (+%d points)", b.Points)
		}
		n.Notify(userID, model.NotifBadgeEarned, "Badge earned", msg)
		n.Push(userID, websocket.NewMessage("badge", "earned", b.ID, b))
	}
	if len(awarded) > 0 {
		n.logger.Info("badges awarded", "user_id", userID, "count", len(awarded), "points", badge.TotalPoints(awarded))
	}
	return awarded
}

// DailyReminder emails the user the titles still waiting for today's check-in.
func (n *Notifier) DailyReminder(user *model.User, titles []string) {
	if len(titles) == 0 {
		return
	}
	name := displayName(user)
	n.mail("daily-reminder", func(ctx context.Context) error {
		return n.mailer.SendDailyReminder(ctx, user.Email, name, titles)
	})
}

func displayName(u *model.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
