package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"land_course_bot/internal/models"
)

// PaymentGateway is what the reconciliation logic needs from the processor.
// Implemented by YooKassaService.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, telegramID int64, email string, amountMinor int64, description string) (*GatewayPayment, error)
	QueryPayment(ctx context.Context, gatewayPaymentID string) (*GatewayPayment, error)
}

// GrantIssuer mints the channel invite for a succeeded payment.
// Implemented by InviteService.
type GrantIssuer interface {
	IssueGrant(ctx context.Context, userID uint, paymentID uint) (*models.InviteGrant, error)
}

// Notifier delivers outbound messages to a Telegram user.
type Notifier interface {
	SendText(telegramID int64, text string) error
}

// PaymentService owns payment creation and the idempotent reconciliation
// both the poll path and the webhook path converge on.
type PaymentService struct {
	store       PaymentStore
	gateway     PaymentGateway
	grants      GrantIssuer
	notify      Notifier
	amountMinor int64
	courseTitle string
}

func NewPaymentService(store PaymentStore, gateway PaymentGateway, grants GrantIssuer, notify Notifier, amountMinor int64, courseTitle string) *PaymentService {
	return &PaymentService{
		store:       store,
		gateway:     gateway,
		grants:      grants,
		notify:      notify,
		amountMinor: amountMinor,
		courseTitle: courseTitle,
	}
}

// StartPayment creates a payment with the gateway and persists the local
// row. Returns the row and the redirect URL the user pays at.
func (s *PaymentService) StartPayment(ctx context.Context, user *models.User) (*models.Payment, string, error) {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	gp, err := s.gateway.CreatePayment(ctx, user.TelegramID, email, s.amountMinor, fmt.Sprintf("Доступ к курсу «%s»", s.courseTitle))
	if err != nil {
		return nil, "", err
	}

	payment := &models.Payment{
		UserID:           user.ID,
		GatewayPaymentID: gp.ID,
		AmountMinor:      s.amountMinor,
		Currency:         gp.Amount.Currency,
		Status:           MapStatus(gp.Status),
	}
	if err := s.store.Create(payment); err != nil {
		return nil, "", fmt.Errorf("failed to persist payment %s: %w", gp.ID, err)
	}

	redirectURL := ""
	if gp.Confirmation != nil {
		redirectURL = gp.Confirmation.ConfirmationURL
	}
	return payment, redirectURL, nil
}

// Poll queries the gateway for the payment's current status and resolves it.
// This is the user-initiated reconciliation trigger.
func (s *PaymentService) Poll(ctx context.Context, gatewayPaymentID string) (models.PaymentStatus, error) {
	gp, err := s.gateway.QueryPayment(ctx, gatewayPaymentID)
	if err != nil {
		// Unreachable gateway means "unknown, retry later", not "failed".
		return models.PaymentStatusUnknown, err
	}

	status := MapStatus(gp.Status)
	method := ""
	if gp.PaymentMethod != nil {
		method = gp.PaymentMethod.Type
	}
	if err := s.Resolve(ctx, gatewayPaymentID, status, method); err != nil {
		return status, err
	}
	return status, nil
}

// Resolve drives a payment toward its observed status. Safe to call any
// number of times with the same observation: the persisted row's status is
// the single source of truth, and a second "succeeded" for an already
// succeeded row is a silent no-op. Grant issuance and the access-granted
// notification happen at most once per payment.
func (s *PaymentService) Resolve(ctx context.Context, gatewayPaymentID string, status models.PaymentStatus, method string) error {
	payment, err := s.store.FindByGatewayID(gatewayPaymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			log.Printf("Reconciliation for unknown payment %s ignored", gatewayPaymentID)
			return nil
		}
		return err
	}

	switch status {
	case models.PaymentStatusSucceeded:
		return s.resolveSucceeded(ctx, payment, method)
	case models.PaymentStatusUnknown:
		// Logged at mapping time; surfaced to the user as "processing" by
		// the caller. Nothing to persist.
		return nil
	default:
		changed, err := s.store.UpdateStatus(gatewayPaymentID, status, method)
		if err != nil {
			return err
		}
		if changed {
			s.sendStatusNotice(payment.User.TelegramID, status)
		}
		return nil
	}
}

func (s *PaymentService) resolveSucceeded(ctx context.Context, payment *models.Payment, method string) error {
	won, err := s.store.MarkSucceeded(payment.GatewayPaymentID, method)
	if err != nil {
		return err
	}
	if !won {
		// Another trigger already resolved this payment.
		return nil
	}

	grant, err := s.grants.IssueGrant(ctx, payment.UserID, payment.ID)
	if err != nil {
		// The user has paid; never leave them without recourse.
		s.send(payment.User.TelegramID,
			"✅ Платёж подтверждён, но не удалось выдать ссылку на канал.\n"+
				"Напишите в поддержку — мы всё решим.")
		return &GrantError{Op: "issue after payment", Err: err}
	}

	s.send(payment.User.TelegramID, fmt.Sprintf(
		"✅ Платёж подтверждён! Ваша ссылка на канал (действует 24 часа, одно использование):\n%s",
		grant.InviteLink))
	return nil
}

func (s *PaymentService) sendStatusNotice(telegramID int64, status models.PaymentStatus) {
	var text string
	switch status {
	case models.PaymentStatusCanceled:
		text = "❌ Платёж отменён. Вы можете начать покупку заново."
	case models.PaymentStatusRefunded:
		text = "↩️ Платёж возвращён. Если это ошибка, напишите в поддержку."
	case models.PaymentStatusWaitingForCapture:
		text = "⏳ Платёж ожидает подтверждения. Мы сообщим, когда всё будет готово."
	case models.PaymentStatusPending:
		text = "⏳ Платёж обрабатывается. Мы сообщим, когда всё будет готово."
	default:
		return
	}
	s.send(telegramID, text)
}

func (s *PaymentService) send(telegramID int64, text string) {
	if s.notify == nil || telegramID == 0 {
		return
	}
	if err := s.notify.SendText(telegramID, text); err != nil {
		log.Printf("Failed to notify user %d: %v", telegramID, err)
	}
}
