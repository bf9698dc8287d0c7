package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"land_course_bot/internal/models"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.PaymentStatus
	}{
		{
			name:     "pending",
			input:    "pending",
			expected: models.PaymentStatusPending,
		},
		{
			name:     "waiting for capture",
			input:    "waiting_for_capture",
			expected: models.PaymentStatusWaitingForCapture,
		},
		{
			name:     "succeeded",
			input:    "succeeded",
			expected: models.PaymentStatusSucceeded,
		},
		{
			name:     "canceled",
			input:    "canceled",
			expected: models.PaymentStatusCanceled,
		},
		{
			name:     "refunded",
			input:    "refunded",
			expected: models.PaymentStatusRefunded,
		},
		{
			name:     "unrecognized status maps to unknown",
			input:    "half_succeeded",
			expected: models.PaymentStatusUnknown,
		},
		{
			name:     "empty status maps to unknown",
			input:    "",
			expected: models.PaymentStatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapStatus(tt.input); got != tt.expected {
				t.Errorf("MapStatus(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatAmountMinor(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		expected string
	}{
		{name: "course price", minor: 990000, expected: "9900.00"},
		{name: "round ruble", minor: 100, expected: "1.00"},
		{name: "kopecks only", minor: 5, expected: "0.05"},
		{name: "zero", minor: 0, expected: "0.00"},
		{name: "tens of kopecks", minor: 1050, expected: "10.50"},
		{name: "negative", minor: -990000, expected: "-9900.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAmountMinor(tt.minor); got != tt.expected {
				t.Errorf("FormatAmountMinor(%d) = %q; want %q", tt.minor, got, tt.expected)
			}
		})
	}
}

func TestParseAmountMajor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		wantErr  bool
	}{
		{name: "course price", input: "9900.00", expected: 990000},
		{name: "no decimal point", input: "9900", expected: 990000},
		{name: "one decimal place", input: "10.5", expected: 1050},
		{name: "kopecks only", input: "0.05", expected: 5},
		{name: "three decimal places", input: "10.505", wantErr: true},
		{name: "not a number", input: "many", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountMajor(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmountMajor(%q) = %d; want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmountMajor(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseAmountMajor(%q) = %d; want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAmountRoundTrip(t *testing.T) {
	for _, minor := range []int64{0, 1, 99, 100, 990000, 1234567} {
		got, err := ParseAmountMajor(FormatAmountMinor(minor))
		if err != nil {
			t.Fatalf("round trip of %d: %v", minor, err)
		}
		if got != minor {
			t.Errorf("round trip of %d = %d", minor, got)
		}
	}
}

func TestGatewayPaymentUserID(t *testing.T) {
	p := &GatewayPayment{Metadata: map[string]string{"user_id": "123456789"}}
	if got := p.UserID(); got != 123456789 {
		t.Errorf("UserID() = %d; want 123456789", got)
	}

	empty := &GatewayPayment{}
	if got := empty.UserID(); got != 0 {
		t.Errorf("UserID() without metadata = %d; want 0", got)
	}
}

func newTestYooKassa(baseURL string) *YooKassaService {
	return &YooKassaService{
		baseURL:   baseURL,
		shopID:    "shop-1",
		secretKey: "secret-1",
		returnURL: "https://t.me/course_bot",
		client:    http.DefaultClient,
	}
}

func TestCreatePaymentRequestShape(t *testing.T) {
	var gotIdempotencyKey string
	var gotBody createPaymentRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "shop-1" || pass != "secret-1" {
			t.Errorf("basic auth = %q/%q ok=%v; want shop credentials", user, pass, ok)
		}
		gotIdempotencyKey = r.Header.Get("Idempotence-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		json.NewEncoder(w).Encode(GatewayPayment{
			ID:     "2e8b2f1a-000f-5000-9000-1b68e7b15f3f",
			Status: "pending",
			Amount: Amount{Value: "9900.00", Currency: "RUB"},
			Confirmation: &Confirmation{
				Type:            "redirect",
				ConfirmationURL: "https://yoomoney.ru/checkout/payments/v2?orderId=abc",
			},
		})
	}))
	defer server.Close()

	svc := newTestYooKassa(server.URL)
	payment, err := svc.CreatePayment(context.Background(), 123456789, "a@b.co", 990000, "Доступ к курсу")
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	if gotIdempotencyKey == "" {
		t.Error("create request carried no Idempotence-Key")
	}
	if !gotBody.Capture {
		t.Error("create request must ask for immediate capture")
	}
	if gotBody.Amount.Value != "9900.00" || gotBody.Amount.Currency != "RUB" {
		t.Errorf("amount = %+v; want 9900.00 RUB", gotBody.Amount)
	}
	if gotBody.Confirmation.Type != "redirect" {
		t.Errorf("confirmation type = %q; want redirect", gotBody.Confirmation.Type)
	}
	if gotBody.Metadata["user_id"] != "123456789" {
		t.Errorf("metadata user_id = %q; want 123456789", gotBody.Metadata["user_id"])
	}
	if gotBody.Metadata["email"] != "a@b.co" {
		t.Errorf("metadata email = %q; want a@b.co", gotBody.Metadata["email"])
	}

	if payment.Confirmation == nil || payment.Confirmation.ConfirmationURL == "" {
		t.Error("response confirmation URL was not decoded")
	}
}

func TestQueryPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pay-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if key := r.Header.Get("Idempotence-Key"); key != "" {
			t.Errorf("query carried Idempotence-Key %q; reads need none", key)
		}
		json.NewEncoder(w).Encode(GatewayPayment{
			ID:            "pay-42",
			Status:        "succeeded",
			PaymentMethod: &PaymentMethod{Type: "bank_card"},
		})
	}))
	defer server.Close()

	svc := newTestYooKassa(server.URL)
	payment, err := svc.QueryPayment(context.Background(), "pay-42")
	if err != nil {
		t.Fatalf("QueryPayment: %v", err)
	}
	if payment.Status != "succeeded" {
		t.Errorf("status = %q; want succeeded", payment.Status)
	}
	if payment.PaymentMethod == nil || payment.PaymentMethod.Type != "bank_card" {
		t.Errorf("payment method = %+v; want bank_card", payment.PaymentMethod)
	}
}

func TestQueryPaymentGatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","code":"internal_server_error"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestYooKassa(server.URL)
	_, err := svc.QueryPayment(context.Background(), "pay-42")
	if err == nil {
		t.Fatal("QueryPayment on 500 = nil error")
	}
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Errorf("error %v is not a GatewayError", err)
	}
}
