package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookNotifierPostsEvent(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	event := Event{
		OrganizationID: "org1",
		WorkOrderID:    "wo-1",
		TaskID:         "t1",
		Priority:       "high",
		Message:        "Overdue maintenance converted to work order",
	}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if received != event {
		t.Fatalf("expected %+v, got %+v", event, received)
	}
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), Event{WorkOrderID: "wo-1"}); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestWebhookNotifierCachesClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if n.Client == nil {
		t.Fatalf("expected constructor to set the client")
	}
	client := n.Client

	n2 := &WebhookNotifier{URL: srv.URL}
	if err := n2.Notify(context.Background(), Event{WorkOrderID: "wo-1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n2.Client == nil {
		t.Fatalf("expected lazily built client to be kept")
	}
	if err := n.Notify(context.Background(), Event{WorkOrderID: "wo-2"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.Client != client {
		t.Fatalf("expected client to be reused across calls")
	}
}
