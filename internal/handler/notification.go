package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/motiveme/internal/auth"
	"github.com/dukerupert/motiveme/internal/model"
	"github.com/dukerupert/motiveme/internal/store"
)

type NotificationHandler struct {
	notificationStore *store.NotificationStore
	logger            *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notificationStore: ns, logger: logger}
}

type notificationList struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.notificationStore.ListByUser(userID, unreadOnly, queryLimit(r, 50, 200))
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	unread, err := h.notificationStore.CountUnread(userID)
	if err != nil {
		h.logger.Error("count unread notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationList{Notifications: list, Unread: unread})
}

type updateNotificationRequest struct {
	Read *bool `json:"read"`
}

// Update marks one notification read or unread.
func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req updateNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Read == nil {
		writeError(w, http.StatusBadRequest, "read is required")
		return
	}

	userID := auth.UserID(r.Context())
	found, err := h.notificationStore.SetRead(userID, id, *req.Read)
	if err != nil {
		h.logger.Error("update notification", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	unread, err := h.notificationStore.CountUnread(userID)
	if err != nil {
		h.logger.Error("count unread notifications", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "read": *req.Read, "unread": unread})
}
