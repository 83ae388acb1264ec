package processor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateIntent(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody CreateIntentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/intents" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Intent{ID: "pi_123", Status: StatusPending, AmountCents: gotBody.AmountCents, Currency: gotBody.Currency})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", 5*time.Second)
	intent, err := client.CreateIntent(context.Background(), &CreateIntentRequest{
		AmountCents:    45000,
		Currency:       "USD",
		CustomerRef:    "cus_9",
		ApplicationFee: 5400,
	}, "idem-abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if intent.ID != "pi_123" || intent.Status != StatusPending {
		t.Errorf("unexpected intent: %+v", intent)
	}
	if gotKey != "idem-abc-123" {
		t.Errorf("expected idempotency key header, got %q", gotKey)
	}
	if gotAuth != "Bearer sk_test" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody.AmountCents != 45000 || gotBody.ApplicationFee != 5400 {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
}

func TestGetIntent_UnknownMapsToPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"code": "not_found", "message": "no such intent"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", 5*time.Second)
	intent, err := client.GetIntent(context.Background(), "pi_missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Status != StatusPending {
		t.Errorf("expected pending for unknown intent, got %s", intent.Status)
	}
	if intent.ID != "pi_missing" {
		t.Errorf("expected intent id echoed back, got %s", intent.ID)
	}
}

func TestGetIntent_EmptyStatusMapsToPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "pi_42"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", 5*time.Second)
	intent, err := client.GetIntent(context.Background(), "pi_42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Status != StatusPending {
		t.Errorf("expected pending for absent status, got %s", intent.Status)
	}
}

func TestGetIntent_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":"internal","message":"boom"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", 5*time.Second)
	_, err := client.GetIntent(context.Background(), "pi_1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	errResp, ok := err.(*ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %T", err)
	}
	if errResp.StatusCode != http.StatusInternalServerError || errResp.Code != "internal" {
		t.Errorf("unexpected error response: %+v", errResp)
	}
}

func TestRefundIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/intents/pi_7/refund" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(Intent{ID: "pi_7", Status: StatusRefunded})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", 5*time.Second)
	intent, err := client.RefundIntent(context.Background(), "pi_7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Status != StatusRefunded {
		t.Errorf("expected refunded, got %s", intent.Status)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", 50*time.Millisecond)
	if _, err := client.GetIntent(context.Background(), "pi_slow"); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}
