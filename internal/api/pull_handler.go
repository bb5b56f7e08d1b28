package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/domain"
	"github.com/subwatch/backend/pkg/response"
)

type PullHandler struct {
	service *domain.NotificationService
	logger  *zap.Logger
}

func NewPullHandler(service *domain.NotificationService, logger *zap.Logger) *PullHandler {
	return &PullHandler{
		service: service,
		logger:  logger,
	}
}

// Drain synchronously pulls up to maxMessages (capped at 10) from the broker.
func (h *PullHandler) Drain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxMessages int64 `json:"maxMessages"`
	}
	// Body is optional; a missing or malformed body means the default batch.
	_ = json.NewDecoder(r.Body).Decode(&req)

	notifications, err := h.service.PullOnce(r.Context(), req.MaxMessages)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			response.BadRequest(w, "pub/sub project or subscription not configured")
			return
		}
		h.logger.Error("pull failed", zap.Error(err))
		response.InternalError(w, "failed to pull messages")
		return
	}

	response.OK(w, map[string]interface{}{
		"received":      len(notifications),
		"notifications": notifications,
	})
}

// Start launches the streaming listener; starting twice is a no-op.
func (h *PullHandler) Start(w http.ResponseWriter, r *http.Request) {
	started, err := h.service.StartListening()
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			response.BadRequest(w, "pub/sub project or subscription not configured")
			return
		}
		h.logger.Error("failed to start listener", zap.Error(err))
		response.InternalError(w, "failed to start listener")
		return
	}

	status := "started"
	if !started {
		status = "already_running"
	}
	response.OK(w, map[string]string{"status": status})
}

// Stop cancels the streaming listener; stopping when idle is a no-op.
func (h *PullHandler) Stop(w http.ResponseWriter, r *http.Request) {
	status := "stopped"
	if !h.service.StopListening() {
		status = "not_running"
	}
	response.OK(w, map[string]string{"status": status})
}

func (h *PullHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.ListPull(r.Context())
	if err != nil {
		h.logger.Error("failed to list pull notifications", zap.Error(err))
		response.InternalError(w, "failed to fetch notifications")
		return
	}
	response.OK(w, notifications)
}

func (h *PullHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.service.GetPull(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "notification not found")
			return
		}
		h.logger.Error("failed to get pull notification", zap.String("id", id), zap.Error(err))
		response.InternalError(w, "failed to fetch notification")
		return
	}
	response.OK(w, n)
}

func (h *PullHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeletePull(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "notification not found")
			return
		}
		h.logger.Error("failed to delete pull notification", zap.String("id", id), zap.Error(err))
		response.InternalError(w, "failed to delete notification")
		return
	}
	response.OK(w, map[string]string{"status": "deleted", "id": id})
}
