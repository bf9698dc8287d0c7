package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"land_course_bot/internal/models"
)

// PaymentStore is the persistence boundary reconciliation runs against. The
// persisted status is the single source of truth for "have we already
// granted": MarkSucceeded is an atomic claim and only its winner may issue
// a grant or send the success notification.
type PaymentStore interface {
	Create(p *models.Payment) error
	// FindByGatewayID returns the payment with its User loaded, or
	// ErrPaymentNotFound.
	FindByGatewayID(gatewayPaymentID string) (*models.Payment, error)
	// MarkSucceeded flips the row to succeeded only if it is not succeeded
	// yet. Returns true when this call won the transition.
	MarkSucceeded(gatewayPaymentID, method string) (bool, error)
	// UpdateStatus records a non-succeeded status without ever regressing a
	// terminal one (a late "pending" cannot undo "canceled"; only a refund
	// may follow "succeeded"). Returns true when the row changed.
	UpdateStatus(gatewayPaymentID string, status models.PaymentStatus, method string) (bool, error)
	// NonTerminalOlderThan lists payments still awaiting resolution, for
	// the worker sweep.
	NonTerminalOlderThan(cutoff time.Time) ([]models.Payment, error)
}

// GormPaymentStore is the postgres-backed PaymentStore.
type GormPaymentStore struct {
	db *gorm.DB
}

func NewGormPaymentStore(db *gorm.DB) *GormPaymentStore {
	return &GormPaymentStore{db: db}
}

func (s *GormPaymentStore) Create(p *models.Payment) error {
	return s.db.Create(p).Error
}

func (s *GormPaymentStore) FindByGatewayID(gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Preload("User").Where("gateway_payment_id = ?", gatewayPaymentID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (s *GormPaymentStore) MarkSucceeded(gatewayPaymentID, method string) (bool, error) {
	updates := map[string]interface{}{
		"status": models.PaymentStatusSucceeded,
	}
	if method != "" {
		updates["method"] = method
	}
	tx := s.db.Model(&models.Payment{}).
		Where("gateway_payment_id = ? AND status <> ?", gatewayPaymentID, models.PaymentStatusSucceeded).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *GormPaymentStore) UpdateStatus(gatewayPaymentID string, status models.PaymentStatus, method string) (bool, error) {
	query := s.db.Model(&models.Payment{}).
		Where("gateway_payment_id = ? AND status <> ?", gatewayPaymentID, status)

	switch status {
	case models.PaymentStatusRefunded:
		// A refund may follow a succeeded payment.
	case models.PaymentStatusCanceled:
		query = query.Where("status NOT IN ?", []models.PaymentStatus{
			models.PaymentStatusSucceeded, models.PaymentStatusRefunded,
		})
	default:
		query = query.Where("status NOT IN ?", []models.PaymentStatus{
			models.PaymentStatusSucceeded, models.PaymentStatusCanceled, models.PaymentStatusRefunded,
		})
	}

	updates := map[string]interface{}{"status": status}
	if method != "" {
		updates["method"] = method
	}
	tx := query.Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *GormPaymentStore) NonTerminalOlderThan(cutoff time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("status IN ? AND created_at < ?", []models.PaymentStatus{
		models.PaymentStatusPending, models.PaymentStatusWaitingForCapture,
	}, cutoff).Find(&payments).Error
	return payments, err
}
