package domain

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestDecodePush(t *testing.T) {
	inner := `{"packageName":"com.x","subscriptionNotification":{"notificationType":4,"purchaseToken":"tok1","subscriptionId":"sub1"}}`
	encoded := base64.StdEncoding.EncodeToString([]byte(inner))

	tests := []struct {
		name string
		body string
		// wantParsed is true when data must equal the parsed inner payload
		wantParsed bool
		// wantEnvelope is true when data must equal the envelope itself
		wantEnvelope bool
		// wantString is true when data must be the raw body string
		wantString bool
	}{
		{
			name:       "valid base64 json payload",
			body:       `{"message":{"data":"` + encoded + `","messageId":"m1","publishTime":"2026-01-02T03:04:05Z"}}`,
			wantParsed: true,
		},
		{
			name:         "invalid base64 falls back to envelope",
			body:         `{"message":{"data":"%%%not-base64%%%"}}`,
			wantEnvelope: true,
		},
		{
			name:         "base64 of non-json falls back to envelope",
			body:         `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte("not json")) + `"}}`,
			wantEnvelope: true,
		},
		{
			name:         "no nested data field uses envelope",
			body:         `{"event":"something-else"}`,
			wantEnvelope: true,
		},
		{
			name:       "non-json body degrades to string",
			body:       "plain text, not json",
			wantString: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := DecodePush([]byte(tt.body))

			if n.ID == "" {
				t.Error("DecodePush() assigned no id")
			}
			if n.Source != SourcePush {
				t.Errorf("DecodePush() source = %q, want %q", n.Source, SourcePush)
			}
			if n.MessageID != "" {
				t.Errorf("DecodePush() messageId = %q, want empty for push", n.MessageID)
			}
			if n.Raw != tt.body {
				t.Errorf("DecodePush() raw = %q, want original body", n.Raw)
			}

			switch {
			case tt.wantParsed:
				data, ok := n.Data.(map[string]interface{})
				if !ok {
					t.Fatalf("DecodePush() data = %T, want object", n.Data)
				}
				if data["packageName"] != "com.x" {
					t.Errorf("DecodePush() packageName = %v, want com.x", data["packageName"])
				}
			case tt.wantEnvelope:
				var envelope interface{}
				if err := json.Unmarshal([]byte(tt.body), &envelope); err != nil {
					t.Fatalf("test body is not json: %v", err)
				}
				got, _ := json.Marshal(n.Data)
				want, _ := json.Marshal(envelope)
				if string(got) != string(want) {
					t.Errorf("DecodePush() data = %s, want envelope %s", got, want)
				}
			case tt.wantString:
				if n.Data != tt.body {
					t.Errorf("DecodePush() data = %v, want raw string", n.Data)
				}
			}
		})
	}
}

func TestDecodePush_EnvelopeMetadata(t *testing.T) {
	inner := base64.StdEncoding.EncodeToString([]byte(`{"ok":true}`))
	body := `{"message":{"data":"` + inner + `","attributes":{"key":"value"},"publishTime":"2026-01-02T03:04:05Z"}}`

	n := DecodePush([]byte(body))

	if n.PublishTime != "2026-01-02T03:04:05Z" {
		t.Errorf("publishTime = %q, want envelope publish time", n.PublishTime)
	}
	if n.Attributes["key"] != "value" {
		t.Errorf("attributes = %v, want key=value", n.Attributes)
	}
}

func TestDecodePull(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantJSON bool
	}{
		{
			name:     "json payload is parsed",
			data:     `{"packageName":"com.x","eventTimeMillis":"1503349566168"}`,
			wantJSON: true,
		},
		{
			name:     "non-json payload stays a string",
			data:     "hello, not json",
			wantJSON: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := PulledMessage{
				ID:          "broker-42",
				Data:        []byte(tt.data),
				Attributes:  map[string]string{"origin": "test"},
				PublishTime: "2026-01-02T03:04:05Z",
			}

			n := DecodePull(msg, SourcePull)

			if n.Source != SourcePull {
				t.Errorf("source = %q, want %q", n.Source, SourcePull)
			}
			if n.MessageID != "broker-42" {
				t.Errorf("messageId = %q, want broker-42", n.MessageID)
			}
			if n.ID == "" {
				t.Error("no id assigned")
			}

			if tt.wantJSON {
				if _, ok := n.Data.(map[string]interface{}); !ok {
					t.Errorf("data = %T, want parsed object", n.Data)
				}
			} else {
				if n.Data != tt.data {
					t.Errorf("data = %v, want original string", n.Data)
				}
			}
		})
	}
}

func TestSubscriptionPayload(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
		want bool
	}{
		{
			name: "subscription notification qualifies",
			data: map[string]interface{}{
				"packageName":     "com.x",
				"eventTimeMillis": "1503349566168",
				"subscriptionNotification": map[string]interface{}{
					"notificationType": 4,
					"purchaseToken":    "tok1",
					"subscriptionId":   "sub1",
				},
			},
			want: true,
		},
		{
			name: "other payload does not qualify",
			data: map[string]interface{}{"testNotification": map[string]interface{}{"version": "1.0"}},
			want: false,
		},
		{
			name: "string data does not qualify",
			data: "degraded payload",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Notification{Data: tt.data}
			dn, ok := n.SubscriptionPayload()
			if ok != tt.want {
				t.Fatalf("SubscriptionPayload() ok = %v, want %v", ok, tt.want)
			}
			if !ok {
				return
			}
			if dn.PackageName != "com.x" {
				t.Errorf("packageName = %q, want com.x", dn.PackageName)
			}
			if dn.SubscriptionNotification.NotificationType != 4 {
				t.Errorf("notificationType = %d, want 4", dn.SubscriptionNotification.NotificationType)
			}
			if dn.EventTimeMillis != 1503349566168 {
				t.Errorf("eventTimeMillis = %d, want 1503349566168", dn.EventTimeMillis)
			}
		})
	}
}

func TestMillis_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Millis
	}{
		{"quoted number", `"1503349566168"`, 1503349566168},
		{"bare number", `1503349566168`, 1503349566168},
		{"null", `null`, 0},
		{"junk degrades to zero", `"not-a-number"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Millis
			if err := json.Unmarshal([]byte(tt.input), &m); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if m != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, m, tt.want)
			}
		})
	}
}
