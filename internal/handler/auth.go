package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/motiveme/internal/auth"
	"github.com/dukerupert/motiveme/internal/middleware"
	"github.com/dukerupert/motiveme/internal/store"
	"github.com/dukerupert/motiveme/internal/validate"
)

type AuthHandler struct {
	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	sessionTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, sessionTTL time.Duration, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:     us,
		sessionStore:  ss,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	fields := validate.Struct(req)
	if req.Password != "" {
		if err := auth.ValidatePassword(req.Password); err != nil {
			fields = append(fields, validate.FieldError{Field: "password", Message: strings.TrimPrefix(err.Error(), "password ")})
		}
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("signup lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	user, err := h.userStore.Create(req.Email, req.Name, hash)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if !h.startSession(w, user.ID) {
		return
	}
	h.logger.Info("user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if fields := validate.Struct(req); len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	id, hash, err := h.userStore.GetPasswordHash(req.Email)
	if err != nil {
		h.logger.Error("signin lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	// Same answer for unknown email and wrong password.
	if id == 0 || !auth.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	user, err := h.userStore.GetByID(id)
	if err != nil || user == nil {
		h.logger.Error("signin load user", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if !h.startSession(w, user.ID) {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if sid := auth.SessionID(r.Context()); sid != 0 {
		if err := h.sessionStore.Delete(sid); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount removes the signed-in user. Challenges, check-ins, badges and
// notifications go with the user row.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if err := h.sessionStore.DeleteByUserID(userID); err != nil {
		h.logger.Error("delete sessions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	if err := h.userStore.Delete(userID); err != nil {
		h.logger.Error("delete user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	h.logger.Info("account deleted", "user_id", userID)
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// startSession creates a session and sets its cookie. On failure it writes
// the error response and returns false.
func (h *AuthHandler) startSession(w http.ResponseWriter, userID int64) bool {
	sess, err := h.sessionStore.Create(userID, h.sessionTTL)
	if err != nil {
		h.logger.Error("create session", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}
