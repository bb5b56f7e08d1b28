package domain

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// pushEnvelope is the wrapped Pub/Sub push delivery: the payload arrives
// base64-encoded under message.data.
type pushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		MessageID   string            `json:"messageId"`
		Attributes  map[string]string `json:"attributes"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodePush converts a webhook request body into a Notification. Decoding is
// total: a malformed envelope or payload degrades to the raw representation,
// it never fails.
func DecodePush(body []byte) Notification {
	n := Notification{
		ID:         newNotificationID(""),
		Source:     SourcePush,
		Raw:        string(body),
		ReceivedAt: time.Now().UTC(),
	}

	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message.Data != "" {
		n.Attributes = env.Message.Attributes
		n.PublishTime = env.Message.PublishTime

		if decoded, err := base64.StdEncoding.DecodeString(env.Message.Data); err == nil {
			var payload interface{}
			if json.Unmarshal(decoded, &payload) == nil {
				n.Data = payload
				return n
			}
		}
	}

	// Inner payload absent or malformed: the envelope itself becomes the data.
	var generic interface{}
	if err := json.Unmarshal(body, &generic); err == nil {
		n.Data = generic
	} else {
		n.Data = string(body)
	}
	return n
}

// DecodePull converts a pulled or streamed message into a Notification.
// Non-JSON payloads are stored as their UTF-8 string rather than failing.
func DecodePull(msg PulledMessage, source NotificationSource) Notification {
	n := Notification{
		ID:          newNotificationID(msg.ID),
		Source:      source,
		MessageID:   msg.ID,
		Attributes:  msg.Attributes,
		PublishTime: msg.PublishTime,
		ReceivedAt:  time.Now().UTC(),
	}

	var payload interface{}
	if err := json.Unmarshal(msg.Data, &payload); err == nil {
		n.Data = payload
	} else {
		n.Data = string(msg.Data)
	}
	return n
}

// newNotificationID builds a receipt-ordered identifier: the local timestamp
// plus the broker message id when one exists, a random suffix otherwise.
func newNotificationID(messageID string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if messageID != "" {
		return ts + "-" + messageID
	}
	return ts + "-" + uuid.NewString()[:8]
}
