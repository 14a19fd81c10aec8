package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mentor-chat/internal/conversation"
	"mentor-chat/internal/models"
	"mentor-chat/internal/render"
)

// SessionCloser drops push subscriptions of a deleted session.
type SessionCloser interface {
	CloseSession(id uuid.UUID)
}

type SessionHandler struct {
	store  *conversation.Store
	closer SessionCloser
}

// NewSessionHandler creates the session API. closer may be nil.
func NewSessionHandler(store *conversation.Store, closer SessionCloser) *SessionHandler {
	return &SessionHandler{store: store, closer: closer}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	c := h.store.Create()
	writeJSON(w, http.StatusCreated, render.Session(c.Snapshot()))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, render.Session(c.Snapshot()))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}
	if err := h.store.Delete(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}
	if h.closer != nil {
		h.closer.CloseSession(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SetDraft(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	writeJSON(w, http.StatusOK, render.Session(c.SetDraft(req.Text)))
}

// Submit posts a user turn. An absent text submits the stored draft.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	// An issued relay call runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	var (
		snap conversation.Snapshot
		err  error
	)
	if req.Text == "" {
		snap, err = c.SubmitDraft(ctx)
	} else {
		snap, err = c.Submit(ctx, req.Text)
	}
	h.writeSubmitResult(w, r, snap, err)
}

// SelectOption handles a topic-chip click.
func (h *SessionHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	c, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.OptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	snap, err := c.SelectOption(context.WithoutCancel(r.Context()), req.Label)
	h.writeSubmitResult(w, r, snap, err)
}

func (h *SessionHandler) writeSubmitResult(w http.ResponseWriter, r *http.Request, snap conversation.Snapshot, err error) {
	switch {
	case errors.Is(err, conversation.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
	case errors.Is(err, conversation.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResp("BUSY", "A message is already being sent", r))
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	default:
		writeJSON(w, http.StatusOK, render.Session(snap))
	}
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*conversation.Controller, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return nil, false
	}

	c, err := h.store.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}
	return c, true
}
