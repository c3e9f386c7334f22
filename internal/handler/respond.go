package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/motiveme/internal/challenge"
	"github.com/dukerupert/motiveme/internal/middleware"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/validate"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string                `json:"error"`
	Fields []validate.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeValidation(w http.ResponseWriter, fields []validate.FieldError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
}

// decodeJSON reads a JSON body of at most maxBodyBytes. An empty body leaves
// v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// queryLimit reads ?limit=, defaulting to def and capped at max.
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, max)
}

// writeChallengeError maps engine and store errors to responses. Anything
// unrecognised is logged and reported as a 500 mentioning action.
func writeChallengeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, action string) {
	var verr *challenge.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr.Fields)
	case errors.Is(err, challenge.ErrNoOccurrenceScheduled):
		writeError(w, http.StatusConflict, "no check-in is scheduled for today")
	case errors.Is(err, challenge.ErrAlreadyCheckedIn):
		writeError(w, http.StatusConflict, "already checked in today")
	case errors.Is(err, challenge.ErrChallengeNotActive):
		writeError(w, http.StatusConflict, "challenge is no longer active")
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, "challenge was changed by another request, reload and retry")
	default:
		logger.Error(action, "request_id", middleware.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
