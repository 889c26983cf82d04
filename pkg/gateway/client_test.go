package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

func TestMapStatusFoldsGatewayVocabulary(t *testing.T) {
	cases := []struct {
		raw  string
		want enums.IntentStatus
	}{
		{"PENDING", enums.IntentStatusPending},
		{"active", enums.IntentStatusPending},
		{"PAID", enums.IntentStatusSucceeded},
		{"Settled", enums.IntentStatusSucceeded},
		{"COMPLETED", enums.IntentStatusSucceeded},
		{" EXPIRED ", enums.IntentStatusExpired},
		{"FAILED", enums.IntentStatusFailed},
		{"VOIDED", enums.IntentStatusFailed},
	}
	for _, tc := range cases {
		got, err := mapStatus(tc.raw)
		if err != nil {
			t.Errorf("mapStatus(%q): %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("mapStatus(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}

	if _, err := mapStatus("TELEPORTED"); err == nil {
		t.Fatalf("unknown status must error")
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.GatewayConfig{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		InvoiceExpiry: 24 * time.Hour,
	}, logger.New(logger.Options{ServiceName: "gateway-test"}))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	return client
}

func TestCreateInvoiceSendsAuthAndMapsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/invoices" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["external_id"] != "order-1" {
			t.Errorf("unexpected external id %v", body["external_id"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "inv-1",
			"invoice_url": "https://pay.example/inv-1",
			"status":      "PENDING",
		})
	}))
	defer server.Close()

	invoice, err := newTestClient(t, server.URL).CreateInvoice(context.Background(), CreateInvoiceParams{
		OrderID:     "order-1",
		AmountCents: 5000000,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if invoice.ID != "inv-1" || invoice.Status != enums.IntentStatusPending {
		t.Fatalf("unexpected invoice %+v", invoice)
	}
	if invoice.PayURL != "https://pay.example/inv-1" {
		t.Fatalf("unexpected pay url %q", invoice.PayURL)
	}
}

func TestGatewayRejectionBecomesTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).GetInvoice(context.Background(), "inv-1")
	if !pkgerrors.Is(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestCreateInvoiceValidatesInput(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	if _, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{AmountCents: 100}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing order id, got %v", err)
	}
	if _, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{OrderID: "order-1"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}
