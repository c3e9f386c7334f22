package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/sweep"
)

// WitnessHandler serves the public, read-only view a witness reaches from
// the link in their invitation.
type WitnessHandler struct {
	linkStore      *store.WitnessLinkStore
	challengeStore *store.ChallengeStore
	userStore      *store.UserStore
	sweeper        *sweep.Sweeper
	logger         *slog.Logger
}

func NewWitnessHandler(ls *store.WitnessLinkStore, cs *store.ChallengeStore, us *store.UserStore, sw *sweep.Sweeper, logger *slog.Logger) *WitnessHandler {
	return &WitnessHandler{linkStore: ls, challengeStore: cs, userStore: us, sweeper: sw, logger: logger}
}

type witnessDay struct {
	Date    time.Time `json:"date"`
	Checked bool      `json:"checked"`
}

type witnessView struct {
	Title          string                `json:"title"`
	OwnerName      string                `json:"owner_name"`
	Gage           string                `json:"gage"`
	Status         model.ChallengeStatus `json:"status"`
	CompletionRate int                   `json:"completion_rate"`
	CurrentStreak  int                   `json:"current_streak"`
	StartDate      time.Time             `json:"start_date"`
	EndDate        time.Time             `json:"end_date"`
	CheckedIn      int                   `json:"checked_in"`
	Scheduled      int                   `json:"scheduled"`
	Days           []witnessDay          `json:"days"`
}

func (h *WitnessHandler) View(w http.ResponseWriter, r *http.Request) {
	link, err := h.linkStore.GetByToken(r.PathValue("token"))
	if err != nil {
		h.logger.Error("witness link lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge")
		return
	}
	if link == nil {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}
	c, err := h.challengeStore.GetByID(link.ChallengeID)
	if err != nil {
		h.logger.Error("witness challenge lookup", "challenge_id", link.ChallengeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}

	fresh, err := h.sweeper.Refresh(*c)
	if err != nil {
		h.logger.Error("refresh challenge", "challenge_id", c.ID, "error", err)
		fresh = *c
	}

	// The view shows the last day of the window, inclusive.
	lastDay := fresh.EndDate().AddDate(0, 0, -1)
	view := witnessView{
		Title:          fresh.Title,
		Gage:           fresh.Gage,
		Status:         fresh.Status,
		CompletionRate: fresh.CompletionRatePercent,
		CurrentStreak:  fresh.CurrentStreak,
		StartDate:      fresh.StartDate,
		EndDate:        lastDay,
		Scheduled:      len(fresh.Occurrences),
		Days:           make([]witnessDay, 0, len(fresh.Occurrences)),
	}
	for _, o := range fresh.Occurrences {
		if o.Checked {
			view.CheckedIn++
		}
		view.Days = append(view.Days, witnessDay{Date: o.Date, Checked: o.Checked})
	}
	if owner, err := h.userStore.GetByID(fresh.OwnerID); err == nil && owner != nil {
		view.OwnerName = owner.Name
		if view.OwnerName == "" {
			view.OwnerName = owner.Email
		}
	}

	writeJSON(w, http.StatusOK, view)
}
