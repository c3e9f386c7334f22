package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/motiveme/internal/auth"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/store"
)

type CheckInHandler struct {
	checkInStore *store.CheckInStore
	logger       *slog.Logger
}

func NewCheckInHandler(cs *store.CheckInStore, logger *slog.Logger) *CheckInHandler {
	return &CheckInHandler{checkInStore: cs, logger: logger}
}

// List returns the caller's check-in ledger, newest first, optionally for
// one ?challenge_id=.
func (h *CheckInHandler) List(w http.ResponseWriter, r *http.Request) {
	checkIns, err := h.checkInStore.ListByUser(
		auth.UserID(r.Context()),
		r.URL.Query().Get("challenge_id"),
		queryLimit(r, 50, 500),
	)
	if err != nil {
		h.logger.Error("list check-ins", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list check-ins")
		return
	}
	if checkIns == nil {
		checkIns = []model.CheckIn{}
	}
	writeJSON(w, http.StatusOK, checkIns)
}
