package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a record lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrNotConfigured is returned when an operation needs an external
	// collaborator that was not configured (missing project id, credentials).
	ErrNotConfigured = errors.New("collaborator not configured")
)

// NotificationSource identifies which transport delivered a notification.
type NotificationSource string

const (
	SourcePush       NotificationSource = "push"
	SourcePull       NotificationSource = "pull"
	SourcePullStream NotificationSource = "pull-stream"
)

// Notification is the canonical record every inbound message is normalized
// into. It is created once at receipt and never mutated.
type Notification struct {
	ID          string             `json:"id"`
	Source      NotificationSource `json:"type"`
	MessageID   string             `json:"messageId,omitempty"`
	Data        interface{}        `json:"data"`
	Raw         string             `json:"raw,omitempty"`
	Attributes  map[string]string  `json:"attributes,omitempty"`
	PublishTime string             `json:"publishTime,omitempty"`
	ReceivedAt  time.Time          `json:"receivedAt"`
}

// Millis is a millisecond epoch that accepts both quoted and bare JSON
// numbers; Play delivers eventTimeMillis as a string.
type Millis int64

func (m *Millis) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Unparseable values degrade to zero; decoding stays total.
		*m = 0
		return nil
	}
	*m = Millis(v)
	return nil
}

// DeveloperNotification is the Play developer-notification shape nested in
// Notification.Data for subscription lifecycle events.
type DeveloperNotification struct {
	Version                  string                    `json:"version,omitempty"`
	PackageName              string                    `json:"packageName"`
	EventTimeMillis          Millis                    `json:"eventTimeMillis,omitempty"`
	SubscriptionNotification *SubscriptionNotification `json:"subscriptionNotification,omitempty"`
}

// SubscriptionNotification carries the lifecycle event details.
type SubscriptionNotification struct {
	Version          string `json:"version,omitempty"`
	NotificationType int64  `json:"notificationType"`
	PurchaseToken    string `json:"purchaseToken"`
	SubscriptionID   string `json:"subscriptionId"`
}

// SubscriptionPayload extracts the developer notification from the decoded
// data, reporting false when the record is not a subscription event.
func (n Notification) SubscriptionPayload() (*DeveloperNotification, bool) {
	raw, err := json.Marshal(n.Data)
	if err != nil {
		return nil, false
	}
	var dn DeveloperNotification
	if err := json.Unmarshal(raw, &dn); err != nil {
		return nil, false
	}
	if dn.SubscriptionNotification == nil {
		return nil, false
	}
	return &dn, true
}

// Play subscription lifecycle notification type codes.
const (
	TypeRecovered               int64 = 1
	TypeRenewed                 int64 = 2
	TypeCanceled                int64 = 3
	TypePurchased               int64 = 4
	TypeOnHold                  int64 = 5
	TypeInGracePeriod           int64 = 6
	TypeRestarted               int64 = 7
	TypePriceChangeConfirmed    int64 = 8
	TypeDeferred                int64 = 9
	TypePaused                  int64 = 10
	TypePauseScheduleChanged    int64 = 11
	TypeRevoked                 int64 = 12
	TypeExpired                 int64 = 13
	TypePendingPurchaseCanceled int64 = 20
)

var lifecycleNames = map[int64]string{
	TypeRecovered:               "SUBSCRIPTION_RECOVERED",
	TypeRenewed:                 "SUBSCRIPTION_RENEWED",
	TypeCanceled:                "SUBSCRIPTION_CANCELED",
	TypePurchased:               "SUBSCRIPTION_PURCHASED",
	TypeOnHold:                  "SUBSCRIPTION_ON_HOLD",
	TypeInGracePeriod:           "SUBSCRIPTION_IN_GRACE_PERIOD",
	TypeRestarted:               "SUBSCRIPTION_RESTARTED",
	TypePriceChangeConfirmed:    "SUBSCRIPTION_PRICE_CHANGE_CONFIRMED",
	TypeDeferred:                "SUBSCRIPTION_DEFERRED",
	TypePaused:                  "SUBSCRIPTION_PAUSED",
	TypePauseScheduleChanged:    "SUBSCRIPTION_PAUSE_SCHEDULE_CHANGED",
	TypeRevoked:                 "SUBSCRIPTION_REVOKED",
	TypeExpired:                 "SUBSCRIPTION_EXPIRED",
	TypePendingPurchaseCanceled: "SUBSCRIPTION_PENDING_PURCHASE_CANCELED",
}

// LifecycleName maps a notification type code to its name. Unknown codes map
// to SUBSCRIPTION_UNKNOWN rather than failing.
func LifecycleName(code int64) string {
	if name, ok := lifecycleNames[code]; ok {
		return name
	}
	return "SUBSCRIPTION_UNKNOWN"
}

// Entry is a legacy free-form record kept for compatibility with older
// deployments that stored generic payloads next to the notification data.
type Entry struct {
	ID        string                 `json:"id"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"createdAt"`
}
