package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/config"
	"github.com/subwatch/backend/internal/domain"
	"github.com/subwatch/backend/internal/store"
	"github.com/subwatch/backend/pkg/response"
)

type StatusHandler struct {
	notifications *domain.NotificationService
	enrichments   *domain.EnrichmentService
	entries       store.Collection[domain.Entry]
	cfg           *config.Config
	logger        *zap.Logger
}

func NewStatusHandler(
	notifications *domain.NotificationService,
	enrichments *domain.EnrichmentService,
	entries store.Collection[domain.Entry],
	cfg *config.Config,
	logger *zap.Logger,
) *StatusHandler {
	return &StatusHandler{
		notifications: notifications,
		enrichments:   enrichments,
		entries:       entries,
		cfg:           cfg,
		logger:        logger,
	}
}

// Status reports collection counts, listener state and the redacted config.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	pushCount, pullCount, err := h.notifications.Counts(r.Context())
	if err != nil {
		h.logger.Error("failed to count notifications", zap.Error(err))
		response.InternalError(w, "failed to read status")
		return
	}
	subCount, err := h.enrichments.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count subscriptions", zap.Error(err))
		response.InternalError(w, "failed to read status")
		return
	}
	entryCount, err := h.entries.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count entries", zap.Error(err))
		response.InternalError(w, "failed to read status")
		return
	}

	response.OK(w, map[string]interface{}{
		"counts": map[string]int{
			"push":          pushCount,
			"pull":          pullCount,
			"subscriptions": subCount,
			"entries":       entryCount,
		},
		"listener": map[string]bool{
			"running": h.notifications.Listening(),
		},
		"config": h.cfg.Redacted(),
	})
}
