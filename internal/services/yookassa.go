package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"land_course_bot/internal/models"
)

// YooKassaService talks to the YooKassa payments API. Every create call
// carries a fresh Idempotence-Key so transient HTTP retries cannot
// duplicate charges.
type YooKassaService struct {
	baseURL   string
	shopID    string
	secretKey string
	returnURL string
	client    *http.Client
}

func NewYooKassaService() *YooKassaService {
	baseURL := os.Getenv("YOOKASSA_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.yookassa.ru/v3"
	}
	return &YooKassaService{
		baseURL:   baseURL,
		shopID:    os.Getenv("YOOKASSA_SHOP_ID"),
		secretKey: os.Getenv("YOOKASSA_SECRET_KEY"),
		returnURL: os.Getenv("YOOKASSA_RETURN_URL"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Amount is the gateway's money representation: a major-unit decimal string
// plus an ISO currency code.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type PaymentMethod struct {
	Type string `json:"type"`
}

// GatewayPayment is the payment object as the gateway reports it, both in
// API responses and inside webhook notifications.
type GatewayPayment struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Amount        Amount            `json:"amount"`
	Description   string            `json:"description,omitempty"`
	PaymentMethod *PaymentMethod    `json:"payment_method,omitempty"`
	Confirmation  *Confirmation     `json:"confirmation,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// UserID extracts the user id the payment was created with. Zero when the
// metadata is missing or malformed.
func (p *GatewayPayment) UserID() int64 {
	id, err := strconv.ParseInt(p.Metadata["user_id"], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

type createPaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation Confirmation      `json:"confirmation"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata"`
}

func (s *YooKassaService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, idempotencyKey string, dest interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", s.baseURL, endpoint), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.shopID, s.secretKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotence-Key", idempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CreatePayment creates a redirect-confirmed payment for the given user.
// amountMinor is in minor units (kopecks).
func (s *YooKassaService) CreatePayment(ctx context.Context, telegramID int64, email string, amountMinor int64, description string) (*GatewayPayment, error) {
	req := createPaymentRequest{
		Amount: Amount{
			Value:    FormatAmountMinor(amountMinor),
			Currency: "RUB",
		},
		Capture: true,
		Confirmation: Confirmation{
			Type:      "redirect",
			ReturnURL: s.returnURL,
		},
		Description: description,
		Metadata: map[string]string{
			"user_id": strconv.FormatInt(telegramID, 10),
			"email":   email,
		},
	}

	var payment GatewayPayment
	if err := s.makeRequest(ctx, http.MethodPost, "/payments", req, uuid.NewString(), &payment); err != nil {
		return nil, &GatewayError{Op: "create payment", Err: err}
	}
	return &payment, nil
}

// QueryPayment fetches the current state of a payment. Transport failure
// means "unknown, retry later", which the GatewayError conveys.
func (s *YooKassaService) QueryPayment(ctx context.Context, gatewayPaymentID string) (*GatewayPayment, error) {
	var payment GatewayPayment
	if err := s.makeRequest(ctx, http.MethodGet, "/payments/"+gatewayPaymentID, nil, "", &payment); err != nil {
		return nil, &GatewayError{Op: "query payment", Err: err}
	}
	return &payment, nil
}

// MapStatus maps the gateway status vocabulary onto the internal enum.
// Unrecognized statuses map to the unknown sentinel and are logged, never
// dropped.
func MapStatus(gatewayStatus string) models.PaymentStatus {
	switch gatewayStatus {
	case "pending":
		return models.PaymentStatusPending
	case "waiting_for_capture":
		return models.PaymentStatusWaitingForCapture
	case "succeeded":
		return models.PaymentStatusSucceeded
	case "canceled":
		return models.PaymentStatusCanceled
	case "refunded":
		return models.PaymentStatusRefunded
	default:
		log.Printf("Unrecognized gateway payment status %q", gatewayStatus)
		return models.PaymentStatusUnknown
	}
}

// FormatAmountMinor renders minor units as the gateway's major-unit decimal
// string: 990000 -> "9900.00".
func FormatAmountMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseAmountMajor parses the gateway's decimal string back into minor
// units: "9900.00" -> 990000.
func ParseAmountMajor(value string) (int64, error) {
	whole, frac, found := strings.Cut(value, ".")
	if !found {
		frac = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", value)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}

	if major < 0 || strings.HasPrefix(whole, "-") {
		return major*100 - cents, nil
	}
	return major*100 + cents, nil
}
