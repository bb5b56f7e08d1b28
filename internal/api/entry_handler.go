package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/domain"
	"github.com/subwatch/backend/internal/store"
	"github.com/subwatch/backend/pkg/response"
)

// EntryHandler serves the legacy generic-entry collection.
type EntryHandler struct {
	entries store.Collection[domain.Entry]
	logger  *zap.Logger
}

func NewEntryHandler(entries store.Collection[domain.Entry], logger *zap.Logger) *EntryHandler {
	return &EntryHandler{
		entries: entries,
		logger:  logger,
	}
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list entries", zap.Error(err))
		response.InternalError(w, "failed to fetch entries")
		return
	}
	response.OK(w, entries)
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	entry := domain.Entry{
		ID:        uuid.NewString(),
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.entries.Append(r.Context(), entry); err != nil {
		h.logger.Error("failed to store entry", zap.Error(err))
		response.InternalError(w, "failed to store entry")
		return
	}
	response.Created(w, entry)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := h.entries.Remove(r.Context(), func(e domain.Entry) bool { return e.ID == id })
	if err != nil {
		h.logger.Error("failed to delete entry", zap.String("id", id), zap.Error(err))
		response.InternalError(w, "failed to delete entry")
		return
	}
	if !removed {
		response.NotFound(w, "entry not found")
		return
	}
	response.OK(w, map[string]string{"status": "deleted", "id": id})
}
