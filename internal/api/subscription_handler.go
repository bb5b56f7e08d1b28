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

type SubscriptionHandler struct {
	service *domain.EnrichmentService
	logger  *zap.Logger
}

func NewSubscriptionHandler(service *domain.EnrichmentService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		logger:  logger,
	}
}

// Fetch runs batch enrichment over the stored pull notifications.
func (h *SubscriptionHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.FetchAll(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			response.BadRequest(w, "play developer api not configured")
			return
		}
		h.logger.Error("batch enrichment failed", zap.Error(err))
		response.InternalError(w, "failed to enrich subscriptions")
		return
	}
	response.OK(w, result)
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subscriptions, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list subscriptions", zap.Error(err))
		response.InternalError(w, "failed to fetch subscriptions")
		return
	}
	response.OK(w, subscriptions)
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "subscription not found")
			return
		}
		h.logger.Error("failed to get subscription", zap.String("id", id), zap.Error(err))
		response.InternalError(w, "failed to fetch subscription")
		return
	}
	response.OK(w, sub)
}

// Lookup runs an ad-hoc version-fallback lookup for one explicit triple.
// Nothing is persisted; both versions failing yields 404.
func (h *SubscriptionHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PackageName    string `json:"packageName"`
		SubscriptionID string `json:"subscriptionId"`
		PurchaseToken  string `json:"purchaseToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.PackageName == "" || req.PurchaseToken == "" {
		response.BadRequest(w, "packageName and purchaseToken are required")
		return
	}

	sub, err := h.service.Lookup(r.Context(), req.PackageName, req.SubscriptionID, req.PurchaseToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			response.BadRequest(w, "play developer api not configured")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "subscription not found in either api version")
			return
		}
		h.logger.Error("lookup failed", zap.Error(err))
		response.InternalError(w, "failed to look up subscription")
		return
	}
	response.OK(w, sub)
}

func (h *SubscriptionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Clear(r.Context())
	if err != nil {
		h.logger.Error("failed to clear subscriptions", zap.Error(err))
		response.InternalError(w, "failed to clear subscriptions")
		return
	}
	response.OK(w, map[string]interface{}{"status": "cleared", "removed": removed})
}
