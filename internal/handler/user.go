package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/motiveme/internal/auth"
	"github.com/dukerupert/motiveme/internal/badge"
	"github.com/dukerupert/motiveme/internal/challenge"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/sweep"
	"github.com/dukerupert/motiveme/internal/validate"
)

type UserHandler struct {
	userStore      *store.UserStore
	badgeStore     *store.BadgeStore
	challengeStore *store.ChallengeStore
	sweeper        *sweep.Sweeper
	logger         *slog.Logger
}

func NewUserHandler(us *store.UserStore, bs *store.BadgeStore, cs *store.ChallengeStore, sw *sweep.Sweeper, logger *slog.Logger) *UserHandler {
	return &UserHandler{userStore: us, badgeStore: bs, challengeStore: cs, sweeper: sw, logger: logger}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateMeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if fields := validate.Struct(req); len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	user, err := h.userStore.UpdateName(auth.UserID(r.Context()), req.Name)
	if err != nil {
		h.logger.Error("update user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type statsResponse struct {
	Challenges challenge.Stats `json:"challenges"`
	Profile    model.UserStats `json:"profile"`
}

// Stats aggregates the user's challenges, each brought up to date first.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	challenges, err := h.challengeStore.ListByOwner(userID)
	if err != nil {
		h.logger.Error("list challenges", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	for i, c := range challenges {
		fresh, err := h.sweeper.Refresh(c)
		if err != nil {
			h.logger.Error("refresh challenge", "challenge_id", c.ID, "error", err)
			continue
		}
		challenges[i] = fresh
	}

	profile, err := h.userStore.Stats(userID)
	if err != nil {
		h.logger.Error("user stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Challenges: challenge.Aggregate(challenges),
		Profile:    profile,
	})
}

type badgeView struct {
	badge.Status
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// Badges lists the whole catalog with the user's progress on each.
func (h *UserHandler) Badges(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	stats, err := h.userStore.Stats(userID)
	if err != nil {
		h.logger.Error("user stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load badges")
		return
	}
	owned, err := h.badgeStore.ListByUser(userID)
	if err != nil {
		h.logger.Error("list badges", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load badges")
		return
	}

	earnedAt := make(map[string]time.Time, len(owned))
	ids := make([]string, 0, len(owned))
	for _, ub := range owned {
		earnedAt[ub.BadgeID] = ub.EarnedAt
		ids = append(ids, ub.BadgeID)
	}

	board := badge.Board(stats, ids)
	views := make([]badgeView, 0, len(board))
	for _, s := range board {
		v := badgeView{Status: s}
		if at, ok := earnedAt[s.ID]; ok {
			v.EarnedAt = &at
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}
