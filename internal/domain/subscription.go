package domain

import (
	"context"
	"encoding/json"
	"time"

	androidpublisher "google.golang.org/api/androidpublisher/v3"
)

// Enrichment statuses reported by the batch operation.
const (
	StatusProcessed        = "processed"
	StatusAlreadyProcessed = "already_processed"
)

// API versions recorded as authoritative on an enriched record.
const (
	APIVersionV2 = "v2"
	APIVersionV1 = "v1"
)

// SubscriptionAPI is the upstream subscription-status collaborator: two
// read-only lookups, v2 keyed by package name + purchase token, v1 keyed by
// package name + subscription id + purchase token.
type SubscriptionAPI interface {
	GetV2(ctx context.Context, packageName, purchaseToken string) (*androidpublisher.SubscriptionPurchaseV2, error)
	GetV1(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*androidpublisher.SubscriptionPurchase, error)
}

// EnrichedSubscription joins a lifecycle notification with the full
// subscription state fetched upstream. At most one record exists per
// MessageID and records are never mutated once written.
type EnrichedSubscription struct {
	ID             string `json:"id"`
	MessageID      string `json:"messageId,omitempty"`
	NotificationID string `json:"notificationId,omitempty"`

	PackageName          string `json:"packageName"`
	SubscriptionID       string `json:"subscriptionId,omitempty"`
	PurchaseToken        string `json:"purchaseToken"`
	NotificationType     int64  `json:"notificationType,omitempty"`
	NotificationTypeName string `json:"notificationTypeName,omitempty"`
	EventTimeMillis      int64  `json:"eventTimeMillis,omitempty"`

	ObfuscatedAccountID string `json:"obfuscatedExternalAccountId,omitempty"`
	ObfuscatedProfileID string `json:"obfuscatedExternalProfileId,omitempty"`
	State               string `json:"subscriptionState,omitempty"`
	StartTime           string `json:"startTime,omitempty"`
	StartTimeLocal      string `json:"startTimeLocal,omitempty"`
	ExpiryTime          string `json:"expiryTime,omitempty"`
	ExpiryTimeLocal     string `json:"expiryTimeLocal,omitempty"`

	// APIVersion names the version that served the state; empty when both
	// lookups failed and the record was stored unenriched.
	APIVersion string          `json:"apiVersion,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`

	ProcessedAt time.Time `json:"processedAt"`
}

// EnrichmentResult is one batch-entry outcome. Notifications that do not
// carry a subscriptionNotification are omitted entirely.
type EnrichmentResult struct {
	MessageID    string                `json:"messageId"`
	Status       string                `json:"status"`
	Subscription *EnrichedSubscription `json:"subscription,omitempty"`
}

// BatchResult aggregates a batch-enrich run. Processed plus AlreadyProcessed
// always equals len(Results).
type BatchResult struct {
	Results          []EnrichmentResult `json:"results"`
	Processed        int                `json:"processed"`
	AlreadyProcessed int                `json:"alreadyProcessed"`
}
