package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"land_course_bot/internal/models"
	"land_course_bot/internal/services"
)

// webhookDedupTTL bounds how long a delivered notification suppresses its
// retries. Processing is idempotent anyway; this only saves work.
const webhookDedupTTL = time.Hour

type webhookEvent struct {
	Event  string `json:"event"`
	Object struct {
		services.GatewayPayment
		// Refund notifications carry the refund object; the payment it
		// belongs to is in payment_id.
		PaymentID string `json:"payment_id"`
	} `json:"object"`
}

// paymentID is the payment row the notification is about.
func (e *webhookEvent) paymentID() string {
	if e.Object.PaymentID != "" {
		return e.Object.PaymentID
	}
	return e.Object.ID
}

type WebhookHandler struct {
	db       *gorm.DB
	cache    *services.RedisCache
	payments *services.PaymentService
}

func NewWebhookHandler(db *gorm.DB, cache *services.RedisCache, payments *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{db: db, cache: cache, payments: payments}
}

// HandleNotification receives gateway webhook notifications. Every
// notification is recorded first, then folded into the payment row. The
// response is 200 for anything parseable so the gateway stops retrying;
// resolution failures are retried by the reconciliation worker instead.
func (h *WebhookHandler) HandleNotification(c echo.Context) error {
	var event webhookEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed notification")
	}
	if event.Object.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "notification without payment id")
	}

	h.record(c, event)

	if h.cache != nil {
		key := "webhook:" + event.Event + ":" + event.Object.ID + ":" + event.Object.Status
		first, err := h.cache.SetNX(c.Request().Context(), key, 1, webhookDedupTTL)
		if err == nil && !first {
			return c.NoContent(http.StatusOK)
		}
	}

	status := services.MapStatus(event.Object.Status)
	// Refund notifications carry the refund object's own status; the
	// payment itself moves to refunded.
	if event.Event == "refund.succeeded" {
		status = models.PaymentStatusRefunded
	}

	method := ""
	if event.Object.PaymentMethod != nil {
		method = event.Object.PaymentMethod.Type
	}

	if err := h.payments.Resolve(c.Request().Context(), event.paymentID(), status, method); err != nil {
		c.Logger().Errorf("Failed to resolve payment %s from webhook: %v", event.paymentID(), err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *WebhookHandler) record(c echo.Context, event webhookEvent) {
	metadata, err := json.Marshal(event.Object)
	if err != nil {
		metadata = nil
	}
	history := models.PaymentCallbackHistory{
		Event:            event.Event,
		GatewayPaymentID: event.paymentID(),
		Metadata:         metadata,
	}
	if err := h.db.Create(&history).Error; err != nil {
		c.Logger().Errorf("Failed to record webhook notification: %v", err)
	}
}
