package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/motiveme/internal/auth"
	"github.com/dukerupert/motiveme/internal/badge"
	"github.com/dukerupert/motiveme/internal/challenge"
	"github.com/dukerupert/motiveme/internal/metrics"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/notify"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/sweep"
	"github.com/dukerupert/motiveme/internal/validate"
	"github.com/dukerupert/motiveme/internal/websocket"
)

type ChallengeHandler struct {
	challengeStore *store.ChallengeStore
	linkStore      *store.WitnessLinkStore
	userStore      *store.UserStore
	sweeper        *sweep.Sweeper
	notifier       *notify.Notifier
	metrics        *metrics.Metrics
	defaultZone    *time.Location
	logger         *slog.Logger
}

func NewChallengeHandler(
	cs *store.ChallengeStore,
	ls *store.WitnessLinkStore,
	us *store.UserStore,
	sw *sweep.Sweeper,
	n *notify.Notifier,
	m *metrics.Metrics,
	defaultZone *time.Location,
	logger *slog.Logger,
) *ChallengeHandler {
	return &ChallengeHandler{
		challengeStore: cs,
		linkStore:      ls,
		userStore:      us,
		sweeper:        sw,
		notifier:       n,
		metrics:        m,
		defaultZone:    defaultZone,
		logger:         logger,
	}
}

type createChallengeRequest struct {
	challenge.Params
	// Timezone is an IANA name; the server's zone is used when empty.
	Timezone string `json:"timezone"`
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	loc := h.defaultZone
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeValidation(w, []validate.FieldError{{Field: "timezone", Message: "is not a known time zone"}})
			return
		}
		loc = l
	}

	userID := auth.UserID(r.Context())
	c, err := challenge.New(req.Params, h.sweeper.Now().In(loc))
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "create challenge")
		return
	}
	c.OwnerID = userID

	created, err := h.challengeStore.Create(c)
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "create challenge")
		return
	}
	h.metrics.ChallengesCreated.Inc()

	link, err := h.linkStore.Create(created.ID)
	if err != nil {
		h.logger.Error("create witness link", "challenge_id", created.ID, "error", err)
	}
	owner, err := h.userStore.GetByID(userID)
	if err != nil || owner == nil {
		h.logger.Error("load owner", "user_id", userID, "error", err)
	} else {
		h.notifier.ChallengeCreated(owner, *created, link)
	}
	h.notifier.AwardBadges(userID)

	h.logger.Info("challenge created", "challenge_id", created.ID, "owner_id", userID, "occurrences", len(created.Occurrences))
	writeJSON(w, http.StatusCreated, created)
}

// List returns the user's challenges, newest first, each recomputed against
// today. ?status= filters on the recomputed status.
func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.challengeStore.ListByOwner(auth.UserID(r.Context()))
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "list challenges")
		return
	}

	status := model.ChallengeStatus(r.URL.Query().Get("status"))
	out := make([]model.Challenge, 0, len(challenges))
	for _, c := range challenges {
		fresh, err := h.sweeper.Refresh(c)
		if err != nil {
			h.logger.Error("refresh challenge", "challenge_id", c.ID, "error", err)
			fresh = c
		}
		if status != "" && fresh.Status != status {
			continue
		}
		out = append(out, fresh)
	}
	writeJSON(w, http.StatusOK, out)
}

// owned loads the {id} challenge if it belongs to the caller. Other users'
// challenges are reported as not found.
func (h *ChallengeHandler) owned(w http.ResponseWriter, r *http.Request) (*model.Challenge, bool) {
	c, err := h.challengeStore.GetByID(r.PathValue("id"))
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "load challenge")
		return nil, false
	}
	if c == nil || c.OwnerID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "challenge not found")
		return nil, false
	}
	return c, true
}

func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	fresh, err := h.sweeper.Refresh(*c)
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "refresh challenge")
		return
	}
	writeJSON(w, http.StatusOK, fresh)
}

// Update edits the title, witness email or gage. A new witness gets an
// invitation with the existing witness link.
func (h *ChallengeHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req challenge.EditParams
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	edited, err := challenge.Edit(*c, req)
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "update challenge")
		return
	}
	saved, err := h.challengeStore.Save(edited)
	if err != nil {
		h.countConflict(err)
		writeChallengeError(w, r, h.logger, err, "update challenge")
		return
	}

	if !strings.EqualFold(saved.WitnessEmail, c.WitnessEmail) {
		h.reinvite(*saved)
	}
	h.notifier.Push(saved.OwnerID, websocket.NewMessage("challenge", "updated", saved.ID, saved))
	writeJSON(w, http.StatusOK, saved)
}

func (h *ChallengeHandler) reinvite(c model.Challenge) {
	owner, err := h.userStore.GetByID(c.OwnerID)
	if err != nil || owner == nil {
		h.logger.Error("load owner", "user_id", c.OwnerID, "error", err)
		return
	}
	link, err := h.linkStore.GetByChallenge(c.ID)
	if err != nil {
		h.logger.Error("load witness link", "challenge_id", c.ID, "error", err)
		return
	}
	h.notifier.WitnessInvite(owner, c, link)
}

func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.challengeStore.Delete(c.ID); err != nil {
		writeChallengeError(w, r, h.logger, err, "delete challenge")
		return
	}
	h.notifier.Push(c.OwnerID, websocket.NewMessage("challenge", "deleted", c.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

type checkInRequest struct {
	Notes    string `json:"notes"`
	ProofURL string `json:"proof_url"`
}

type checkInResponse struct {
	Challenge    model.Challenge         `json:"challenge"`
	Result       challenge.CheckInResult `json:"result"`
	CheckIn      *model.CheckIn          `json:"check_in"`
	BadgesEarned []badge.Badge           `json:"badges_earned"`
}

// CheckIn records today's occurrence of the {id} challenge. The challenge is
// brought up to date first, so a window that has closed reports "not active".
func (h *ChallengeHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req checkInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	current, err := h.sweeper.Refresh(*c)
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "check in")
		return
	}

	now := h.sweeper.NowFor(current)
	next, res, err := challenge.CheckIn(current, now, challenge.CheckInInput{Notes: req.Notes, ProofURL: req.ProofURL})
	if err != nil {
		writeChallengeError(w, r, h.logger, err, "check in")
		return
	}

	entry := model.CheckIn{
		UserID:       current.OwnerID,
		ChallengeID:  current.ID,
		OccurrenceID: res.OccurrenceID,
		CheckedAt:    now,
		PointsGained: res.PointsGained,
	}
	if idx := challenge.OccurrenceOn(next.Occurrences, now); idx >= 0 {
		entry.Notes = next.Occurrences[idx].Notes
		entry.ProofURL = next.Occurrences[idx].ProofURL
	}

	saved, ci, err := h.challengeStore.RecordCheckIn(next, entry)
	if err != nil {
		h.countConflict(err)
		writeChallengeError(w, r, h.logger, err, "check in")
		return
	}
	h.metrics.CheckIns.Inc()
	h.metrics.PointsAwarded.Add(float64(res.PointsGained))

	h.notifier.Notify(saved.OwnerID, model.NotifCheckInSuccess, "Check-in recorded",
		fmt.Sprintf("+%d points on \"%s\". Current streak: %d.", res.PointsGained, saved.Title, res.CurrentStreak))
	h.notifier.Push(saved.OwnerID, websocket.NewMessage("challenge", "checked_in", saved.ID, saved))

	var earned []badge.Badge
	if res.Completed {
		earned = h.sweeper.Ended(*saved)
	} else {
		earned = h.notifier.AwardBadges(saved.OwnerID)
	}

	writeJSON(w, http.StatusOK, checkInResponse{
		Challenge:    *saved,
		Result:       res,
		CheckIn:      ci,
		BadgesEarned: earned,
	})
}

func (h *ChallengeHandler) countConflict(err error) {
	if errors.Is(err, store.ErrVersionConflict) {
		h.metrics.VersionConflicts.Inc()
	}
}
