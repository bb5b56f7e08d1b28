package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/domain"
	"github.com/subwatch/backend/internal/store"
)

func newPushTestServer(t *testing.T) (*httptest.Server, *domain.NotificationService) {
	t.Helper()
	dir := t.TempDir()

	push, err := store.NewFileCollection[domain.Notification](filepath.Join(dir, "push.json"))
	if err != nil {
		t.Fatalf("push collection: %v", err)
	}
	pull, err := store.NewFileCollection[domain.Notification](filepath.Join(dir, "pull.json"))
	if err != nil {
		t.Fatalf("pull collection: %v", err)
	}

	svc := domain.NewNotificationService(push, pull, nil, nil, nil, zap.NewNop())
	h := NewPushHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/push", h.Receive)
	r.Get("/push", h.List)
	r.Get("/push/{id}", h.Get)
	r.Delete("/push/{id}", h.Delete)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var envelope map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return envelope
}

func TestPushReceive_EndToEnd(t *testing.T) {
	srv, _ := newPushTestServer(t)

	inner := `{"packageName":"com.example.app","eventTimeMillis":"1503349566168","subscriptionNotification":{"notificationType":4,"purchaseToken":"tok1","subscriptionId":"sub1"}}`
	body := `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte(inner)) + `","messageId":"m1"}}`

	resp, err := http.Post(srv.URL+"/push", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /push: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /push status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["success"] != true {
		t.Errorf("success = %v, want true", envelope["success"])
	}
	data, _ := envelope["data"].(map[string]interface{})
	if data["id"] == "" || data["id"] == nil {
		t.Error("stored notification has no id")
	}

	// The stored record must carry the decoded lifecycle payload.
	resp, err = http.Get(srv.URL + "/push")
	if err != nil {
		t.Fatalf("GET /push: %v", err)
	}
	envelope = decodeEnvelope(t, resp)
	list, ok := envelope["data"].([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("GET /push data = %v, want exactly one record", envelope["data"])
	}
	record := list[0].(map[string]interface{})
	payload, ok := record["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("record data = %T, want decoded object", record["data"])
	}
	sn, ok := payload["subscriptionNotification"].(map[string]interface{})
	if !ok {
		t.Fatalf("subscriptionNotification missing from %v", payload)
	}
	if sn["notificationType"] != float64(4) {
		t.Errorf("notificationType = %v, want 4", sn["notificationType"])
	}
}

func TestPushReceive_MalformedBodyStillStored(t *testing.T) {
	srv, svc := newPushTestServer(t)

	resp, err := http.Post(srv.URL+"/push", "text/plain", strings.NewReader("definitely not json"))
	if err != nil {
		t.Fatalf("POST /push: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /push status = %d, want 200 even for junk", resp.StatusCode)
	}

	notifications, err := svc.ListPush(context.Background())
	if err != nil {
		t.Fatalf("ListPush: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("stored = %d, want 1", len(notifications))
	}
	if notifications[0].Data != "definitely not json" {
		t.Errorf("data = %v, want raw string fallback", notifications[0].Data)
	}
}

func TestPushGet_NotFound(t *testing.T) {
	srv, _ := newPushTestServer(t)

	resp, err := http.Get(srv.URL + "/push/does-not-exist")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPushDelete(t *testing.T) {
	srv, svc := newPushTestServer(t)

	n, err := svc.IngestPush(context.Background(), []byte(`{"message":{"data":""}}`))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/push/"+n.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", resp.StatusCode)
	}

	notifications, _ := svc.ListPush(context.Background())
	if len(notifications) != 0 {
		t.Errorf("remaining = %d, want 0", len(notifications))
	}
}
