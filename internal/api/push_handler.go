package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/domain"
	"github.com/subwatch/backend/pkg/response"
)

type PushHandler struct {
	service *domain.NotificationService
	logger  *zap.Logger
}

func NewPushHandler(service *domain.NotificationService, logger *zap.Logger) *PushHandler {
	return &PushHandler{
		service: service,
		logger:  logger,
	}
}

// Receive accepts a webhook delivery. It always stores something (decoding is
// defensive) and must answer 2xx so the sender stops retrying.
func (h *PushHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.BadRequest(w, "failed to read request body")
		return
	}

	n, err := h.service.IngestPush(r.Context(), body)
	if err != nil {
		h.logger.Error("failed to ingest push notification", zap.Error(err))
		response.InternalError(w, "failed to store notification")
		return
	}

	response.OK(w, n)
}

func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.ListPush(r.Context())
	if err != nil {
		h.logger.Error("failed to list push notifications", zap.Error(err))
		response.InternalError(w, "failed to fetch notifications")
		return
	}
	response.OK(w, notifications)
}

func (h *PushHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.service.GetPush(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "notification not found")
			return
		}
		h.logger.Error("failed to get push notification", zap.String("id", id), zap.Error(err))
		response.InternalError(w, "failed to fetch notification")
		return
	}
	response.OK(w, n)
}

func (h *PushHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeletePush(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "notification not found")
			return
		}
		h.logger.Error("failed to delete push notification", zap.String("id", id), zap.Error(err))
		response.InternalError(w, "failed to delete notification")
		return
	}
	response.OK(w, map[string]string{"status": "deleted", "id": id})
}
