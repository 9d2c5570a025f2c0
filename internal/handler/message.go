package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xyntoro/xyntoro/internal/model"
	"github.com/xyntoro/xyntoro/internal/store"
)

const messageNotFound = "Message not found"

// MessageHandler serves /api/messages: public contact form submission and
// the admin inbox.
type MessageHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(s *store.Store, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{store: s, logger: logger}
}

// List returns all messages, newest first.
// GET /api/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.store.ListMessages(r.Context())
	if err != nil {
		writeStoreError(w, r, h.logger, err, messageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// UnreadCount returns the number of unread messages.
// GET /api/messages/unread-count
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CountUnreadMessages(r.Context())
	if err != nil {
		writeStoreError(w, r, h.logger, err, messageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// Create stores a contact form submission.
// POST /api/messages
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var msg model.ContactMessage
	if err := readJSON(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.CreateMessage(r.Context(), &msg); err != nil {
		writeStoreError(w, r, h.logger, err, messageNotFound)
		return
	}

	h.logger.Info("contact message received", "id", msg.ID, "heard_from", msg.HeardFrom)
	writeJSON(w, http.StatusCreated, model.StatusResponse{
		Success: true,
		Message: "Message sent successfully!",
	})
}

// MarkRead flags a message as read and returns it.
// PUT /api/messages/{id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	msg, err := h.store.MarkMessageRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, h.logger, err, messageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Delete removes a message.
// DELETE /api/messages/{id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMessage(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, h.logger, err, messageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: "Message deleted"})
}
