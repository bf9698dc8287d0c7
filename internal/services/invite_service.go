package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"land_course_bot/internal/models"
)

// grantTTL is the validity window of a minted invite link.
const grantTTL = 24 * time.Hour

// InviteService mints single-use, time-limited invite links to the course
// channel and records them. Single-use enforcement is Telegram's (member
// limit 1 on the link).
type InviteService struct {
	db        *gorm.DB
	bot       *tgbotapi.BotAPI
	channelID int64
}

func NewInviteService(db *gorm.DB, bot *tgbotapi.BotAPI, channelID int64) *InviteService {
	return &InviteService{db: db, bot: bot, channelID: channelID}
}

// GetExistingGrant returns the user's non-expired grant, or nil. Re-issuing
// against an existing grant would only churn invite links.
func (s *InviteService) GetExistingGrant(userID uint) (*models.InviteGrant, error) {
	var grant models.InviteGrant
	err := s.db.Where("user_id = ? AND expires_at > ?", userID, time.Now()).
		Order("created_at desc").First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

// IssueGrant mints a grant against a succeeded payment row. The payment row
// id is required proof: the issuer verifies it belongs to the user and has
// actually succeeded before touching Telegram. A user with a live grant
// gets that grant back instead of a fresh link.
func (s *InviteService) IssueGrant(ctx context.Context, userID uint, paymentID uint) (*models.InviteGrant, error) {
	existing, err := s.GetExistingGrant(userID)
	if err != nil {
		return nil, &GrantError{Op: "lookup existing grant", Err: err}
	}
	if existing != nil {
		return existing, nil
	}

	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		return nil, &GrantError{Op: "verify payment proof", Err: ErrPaymentProofMismatch}
	}
	if payment.UserID != userID || payment.Status != models.PaymentStatusSucceeded {
		return nil, &GrantError{Op: "verify payment proof", Err: ErrPaymentProofMismatch}
	}

	expiresAt := time.Now().Add(grantTTL)
	link, err := s.createInviteLink(ctx, expiresAt)
	if err != nil {
		return nil, &GrantError{Op: "create invite link", Err: err}
	}

	// A new grant replaces any prior (expired) one.
	if err := s.db.Where("user_id = ?", userID).Delete(&models.InviteGrant{}).Error; err != nil {
		return nil, &GrantError{Op: "replace prior grant", Err: err}
	}

	grant := models.InviteGrant{
		UserID:     userID,
		PaymentID:  paymentID,
		InviteLink: link,
		ExpiresAt:  expiresAt,
	}
	if err := s.db.Create(&grant).Error; err != nil {
		return nil, &GrantError{Op: "persist grant", Err: err}
	}
	return &grant, nil
}

func (s *InviteService) createInviteLink(ctx context.Context, expiresAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: s.channelID},
		ExpireDate:  int(expiresAt.Unix()),
		MemberLimit: 1,
	}
	resp, err := s.bot.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("createChatInviteLink: %w", err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("failed to decode invite link: %w", err)
	}
	return link.InviteLink, nil
}

// ExpireGrants removes grants whose window has passed. Called by the worker.
func (s *InviteService) ExpireGrants() (int64, error) {
	tx := s.db.Where("expires_at < ?", time.Now()).Delete(&models.InviteGrant{})
	return tx.RowsAffected, tx.Error
}
