package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookUpdateRoundTrip(t *testing.T) {
	w := NewWebhook()
	srv := httptest.NewServer(w.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(w.Close)

	body, _ := json.Marshal(Update{ChatID: 7, UserID: 7, Text: "/help"})
	resp, err := http.Post(srv.URL+"/update", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post update: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	select {
	case u := <-w.Updates():
		if u.ChatID != 7 || u.Text != "/help" {
			t.Fatalf("unexpected update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatalf("update not delivered")
	}
}

func TestWebhookOutboxDrain(t *testing.T) {
	w := NewWebhook()
	srv := httptest.NewServer(w.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(w.Close)

	if err := w.Send(context.Background(), 7, "first"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := w.SendDocument(context.Background(), 7, Document{Name: "a.log", Data: []byte("x")}); err != nil {
		t.Fatalf("send doc: %v", err)
	}

	resp, err := http.Get(srv.URL + "/outbox?chat_id=7")
	if err != nil {
		t.Fatalf("get outbox: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out []Outgoing
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 replies, got %+v", out)
	}
	if out[0].Text != "first" || out[1].Document == nil || out[1].Document.Name != "a.log" {
		t.Fatalf("unexpected outbox: %+v", out)
	}

	// The drain is destructive.
	resp2, err := http.Get(srv.URL + "/outbox?chat_id=7")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var out2 []Outgoing
	if err := json.NewDecoder(resp2.Body).Decode(&out2); err != nil {
		t.Fatalf("decode2: %v", err)
	}
	if len(out2) != 0 {
		t.Fatalf("outbox should be empty after drain, got %+v", out2)
	}
}

func TestWebhookBadRequests(t *testing.T) {
	w := NewWebhook()
	srv := httptest.NewServer(w.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(w.Close)

	resp, err := http.Post(srv.URL+"/update", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/outbox")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing chat_id status = %d", resp.StatusCode)
	}
}

func TestWebhookClosedRejectsUpdates(t *testing.T) {
	w := NewWebhook()
	srv := httptest.NewServer(w.Handler())
	t.Cleanup(srv.Close)

	w.Close()
	body, _ := json.Marshal(Update{ChatID: 1, Text: "x"})
	resp, err := http.Post(srv.URL+"/update", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("closed status = %d, want 503", resp.StatusCode)
	}
}
