package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	androidpublisher "google.golang.org/api/androidpublisher/v3"

	"github.com/subwatch/backend/internal/metrics"
	"github.com/subwatch/backend/internal/store"
)

const localTimeLayout = "2006-01-02 15:04:05 MST"

// EnrichmentService joins stored pull notifications with upstream
// subscription state, once per messageId.
type EnrichmentService struct {
	pulls   store.Collection[Notification]
	subs    store.Collection[EnrichedSubscription]
	api     SubscriptionAPI
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *zap.Logger

	// mu serializes batch runs: the per-message find-then-append must not
	// interleave across concurrent handlers or a messageId gets stored twice.
	mu sync.Mutex
}

func NewEnrichmentService(
	pulls store.Collection[Notification],
	subs store.Collection[EnrichedSubscription],
	api SubscriptionAPI,
	loc *time.Location,
	m *metrics.Metrics,
	logger *zap.Logger,
) *EnrichmentService {
	if loc == nil {
		loc = time.Local
	}
	return &EnrichmentService{
		pulls:   pulls,
		subs:    subs,
		api:     api,
		loc:     loc,
		metrics: m,
		logger:  logger,
	}
}

// subscriptionState is the outcome of the two-step version fallback: exactly
// one of v2/v1 is set, or the lookup exhausted both versions and returned nil.
type subscriptionState struct {
	version string
	v2      *androidpublisher.SubscriptionPurchaseV2
	v1      *androidpublisher.SubscriptionPurchase
}

// FetchAll enriches every qualifying pull notification that has not been
// processed before. Notifications without a subscriptionNotification payload
// are skipped silently; upstream failures leave an unenriched record rather
// than aborting the batch.
func (s *EnrichmentService) FetchAll(ctx context.Context) (*BatchResult, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notifications, err := s.pulls.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull notifications: %w", err)
	}

	result := &BatchResult{Results: []EnrichmentResult{}}
	for _, n := range notifications {
		dn, ok := n.SubscriptionPayload()
		if !ok || n.MessageID == "" {
			continue
		}

		messageID := n.MessageID
		existing, found, err := s.subs.Find(ctx, func(e EnrichedSubscription) bool {
			return e.MessageID == messageID
		})
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
		if found {
			s.metrics.EnrichmentOutcome(StatusAlreadyProcessed)
			result.Results = append(result.Results, EnrichmentResult{
				MessageID:    messageID,
				Status:       StatusAlreadyProcessed,
				Subscription: &existing,
			})
			result.AlreadyProcessed++
			continue
		}

		record := s.buildRecord(ctx, n, dn)
		if err := s.subs.Append(ctx, record); err != nil {
			return result, fmt.Errorf("failed to store enriched subscription: %w", err)
		}
		s.metrics.EnrichmentOutcome(StatusProcessed)
		result.Results = append(result.Results, EnrichmentResult{
			MessageID:    messageID,
			Status:       StatusProcessed,
			Subscription: &record,
		})
		result.Processed++
	}
	return result, nil
}

// Lookup runs the version fallback for one explicit triple. Unlike the batch
// path it reports ErrNotFound when both versions fail, and persists nothing.
func (s *EnrichmentService) Lookup(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*EnrichedSubscription, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	state := s.fetchState(ctx, packageName, subscriptionID, purchaseToken)
	if state == nil {
		return nil, ErrNotFound
	}

	record := EnrichedSubscription{
		ID:             uuid.NewString(),
		PackageName:    packageName,
		SubscriptionID: subscriptionID,
		PurchaseToken:  purchaseToken,
		ProcessedAt:    time.Now().UTC(),
	}
	s.apply(&record, state)
	return &record, nil
}

func (s *EnrichmentService) List(ctx context.Context) ([]EnrichedSubscription, error) {
	return s.subs.List(ctx)
}

func (s *EnrichmentService) Get(ctx context.Context, id string) (EnrichedSubscription, error) {
	rec, ok, err := s.subs.Find(ctx, func(e EnrichedSubscription) bool { return e.ID == id })
	if err != nil {
		return EnrichedSubscription{}, err
	}
	if !ok {
		return EnrichedSubscription{}, ErrNotFound
	}
	return rec, nil
}

func (s *EnrichmentService) Clear(ctx context.Context) (int, error) {
	return s.subs.Clear(ctx)
}

func (s *EnrichmentService) Count(ctx context.Context) (int, error) {
	return s.subs.Count(ctx)
}

// buildRecord assembles the enriched record for one notification. Upstream
// failure on both versions leaves the enrichment fields empty.
func (s *EnrichmentService) buildRecord(ctx context.Context, n Notification, dn *DeveloperNotification) EnrichedSubscription {
	sn := dn.SubscriptionNotification
	record := EnrichedSubscription{
		ID:                   uuid.NewString(),
		MessageID:            n.MessageID,
		NotificationID:       n.ID,
		PackageName:          dn.PackageName,
		SubscriptionID:       sn.SubscriptionID,
		PurchaseToken:        sn.PurchaseToken,
		NotificationType:     sn.NotificationType,
		NotificationTypeName: LifecycleName(sn.NotificationType),
		EventTimeMillis:      int64(dn.EventTimeMillis),
		ProcessedAt:          time.Now().UTC(),
	}

	if state := s.fetchState(ctx, record.PackageName, record.SubscriptionID, record.PurchaseToken); state != nil {
		s.apply(&record, state)
	} else {
		s.logger.Warn("subscription state unavailable from both API versions",
			zap.String("message_id", n.MessageID),
			zap.String("purchase_token", sn.PurchaseToken))
	}
	return record
}

// fetchState tries the v2 lookup first and falls back to v1. Any failure is
// treated uniformly as "no data" for that version. Returns nil when both
// versions are exhausted.
func (s *EnrichmentService) fetchState(ctx context.Context, packageName, subscriptionID, purchaseToken string) *subscriptionState {
	v2, err := s.api.GetV2(ctx, packageName, purchaseToken)
	if err == nil && v2 != nil {
		s.metrics.PlayAPICall(APIVersionV2, "ok")
		return &subscriptionState{version: APIVersionV2, v2: v2}
	}
	s.metrics.PlayAPICall(APIVersionV2, "error")
	s.logger.Debug("v2 lookup failed, falling back to v1", zap.Error(err))

	v1, err := s.api.GetV1(ctx, packageName, subscriptionID, purchaseToken)
	if err == nil && v1 != nil {
		s.metrics.PlayAPICall(APIVersionV1, "ok")
		return &subscriptionState{version: APIVersionV1, v1: v1}
	}
	s.metrics.PlayAPICall(APIVersionV1, "error")
	s.logger.Debug("v1 lookup failed", zap.Error(err))
	return nil
}

// apply copies the version-specific fields onto the record. v2 nests user
// identifiers under externalAccountIdentifiers and uses RFC 3339 timestamps;
// v1 carries top-level identifiers and millisecond epochs, with no explicit
// state field.
func (s *EnrichmentService) apply(record *EnrichedSubscription, state *subscriptionState) {
	record.APIVersion = state.version

	switch state.version {
	case APIVersionV2:
		v2 := state.v2
		if ids := v2.ExternalAccountIdentifiers; ids != nil {
			record.ObfuscatedAccountID = ids.ObfuscatedExternalAccountId
			record.ObfuscatedProfileID = ids.ObfuscatedExternalProfileId
		}
		record.State = v2.SubscriptionState
		record.StartTime = v2.StartTime
		record.StartTimeLocal = s.localizeRFC3339(v2.StartTime)
		if len(v2.LineItems) > 0 {
			record.ExpiryTime = v2.LineItems[0].ExpiryTime
			record.ExpiryTimeLocal = s.localizeRFC3339(v2.LineItems[0].ExpiryTime)
		}
		if raw, err := json.Marshal(v2); err == nil {
			record.Response = raw
		}

	case APIVersionV1:
		v1 := state.v1
		record.ObfuscatedAccountID = v1.ObfuscatedExternalAccountId
		record.ObfuscatedProfileID = v1.ObfuscatedExternalProfileId
		record.StartTime = strconv.FormatInt(v1.StartTimeMillis, 10)
		record.StartTimeLocal = s.localizeMillis(v1.StartTimeMillis)
		record.ExpiryTime = strconv.FormatInt(v1.ExpiryTimeMillis, 10)
		record.ExpiryTimeLocal = s.localizeMillis(v1.ExpiryTimeMillis)
		if raw, err := json.Marshal(v1); err == nil {
			record.Response = raw
		}
	}
}

// localizeRFC3339 renders an upstream timestamp in the display timezone. The
// raw value is stored untouched; this is display-only.
func (s *EnrichmentService) localizeRFC3339(value string) string {
	if value == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return ""
	}
	return t.In(s.loc).Format(localTimeLayout)
}

func (s *EnrichmentService) localizeMillis(millis int64) string {
	if millis <= 0 {
		return ""
	}
	return time.UnixMilli(millis).In(s.loc).Format(localTimeLayout)
}
