package bot

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"land_course_bot/internal/models"
)

// Sender is the slice of the Telegram API the handlers use. Satisfied by
// *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// UserDirectory maintains user rows keyed by Telegram id.
type UserDirectory interface {
	EnsureUser(telegramID int64, name, username string) (*models.User, error)
	SetEmail(userID uint, email string) error
}

// ConsentLedger persists accepted consents.
type ConsentLedger interface {
	RecordConsent(userID uint, dataConsent, offerConsent bool) error
	GetConsent(userID uint) (bool, bool, error)
}

// PaymentFlow creates payments and runs the user-initiated reconciliation
// poll.
type PaymentFlow interface {
	StartPayment(ctx context.Context, user *models.User) (*models.Payment, string, error)
	Poll(ctx context.Context, gatewayPaymentID string) (models.PaymentStatus, error)
}

// MessageSource resolves the admin-editable reply texts.
type MessageSource interface {
	GetByTitle(ctx context.Context, title, fallback string) string
}

// ReviewGallery is the screenshot review store.
type ReviewGallery interface {
	Add(photoFileID string) (bool, error)
	All() ([]models.Review, error)
	Find(id uint) (*models.Review, error)
	Delete(id uint) (bool, error)
}

// MessageEditor is the slice of the message service the admin edit flow
// needs on top of MessageSource.
type MessageEditor interface {
	List() ([]models.BotMessage, error)
	Find(id uint) (*models.BotMessage, error)
	UpdateText(ctx context.Context, id uint, text string) error
}

type callbackFunc func(cq *tgbotapi.CallbackQuery)

type prefixRoute struct {
	prefix  string
	handler callbackFunc
}

// Handlers routes inbound updates for the sales bot. Callback routing is a
// single table keyed by exact tag, with prefix routes tried afterwards, so
// dispatch never depends on registration order.
type Handlers struct {
	api        Sender
	sessions   *SessionStore
	users      UserDirectory
	consents   ConsentLedger
	payments   PaymentFlow
	messages   MessageSource
	editor     MessageEditor
	reviews    ReviewGallery
	admins     *AdminSession
	adminIDs   map[int64]bool
	supportURL string

	exact    map[string]callbackFunc
	prefixes []prefixRoute

	// editing maps an admin to the bot message id they are rewriting.
	editMu  sync.Mutex
	editing map[int64]uint
}

type Config struct {
	API        Sender
	Sessions   *SessionStore
	Users      UserDirectory
	Consents   ConsentLedger
	Payments   PaymentFlow
	Messages   MessageSource
	Editor     MessageEditor
	Reviews    ReviewGallery
	AdminIDs   []int64
	SupportURL string
}

func NewHandlers(cfg Config) *Handlers {
	h := &Handlers{
		api:        cfg.API,
		sessions:   cfg.Sessions,
		users:      cfg.Users,
		consents:   cfg.Consents,
		payments:   cfg.Payments,
		messages:   cfg.Messages,
		editor:     cfg.Editor,
		reviews:    cfg.Reviews,
		admins:     NewAdminSession(),
		adminIDs:   make(map[int64]bool, len(cfg.AdminIDs)),
		supportURL: cfg.SupportURL,
		editing:    make(map[int64]uint),
	}
	for _, id := range cfg.AdminIDs {
		h.adminIDs[id] = true
	}

	h.exact = map[string]callbackFunc{
		cbBuy:          h.handleBuy,
		cbContinue:     h.handleContinue,
		cbConsentData:  h.handleConsentToggle(consentFlagData),
		cbConsentOffer: h.handleConsentToggle(consentFlagOffer),
		cbProceed:      h.handleProceed,
		cbCheckPayment: h.handleCheckPayment,
		cbPreview:      h.handlePreview,
		cbReviews:      h.handleReviews,
		cbBackMenu:     h.handleBackMenu,
		cbCancel:       h.handleCancel,

		cbAdminAddReview:    h.adminOnly(h.handleAdminAddReview),
		cbAdminListReviews:  h.adminOnly(h.handleAdminListReviews),
		cbAdminDeleteMenu:   h.adminOnly(h.handleAdminDeleteMenu),
		cbAdminEditMessages: h.adminOnly(h.handleAdminEditMessages),
		cbAdminCancelEdit:   h.adminOnly(h.handleAdminCancelEdit),
	}
	h.prefixes = []prefixRoute{
		{prefixDeleteReview, h.adminOnly(h.handleAdminDeleteReview)},
		{prefixEditMessage, h.adminOnly(h.handleAdminPickMessage)},
	}
	return h
}

// HandleUpdate is the entry point for one inbound update. Each update is an
// independent unit of work; per-user ordering is enforced by the session
// store, not by the caller.
func (h *Handlers) HandleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in update handler: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		h.dispatchCallback(update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(update.Message)
	}
}

func (h *Handlers) dispatchCallback(cq *tgbotapi.CallbackQuery) {
	if fn, ok := h.exact[cq.Data]; ok {
		fn(cq)
		return
	}
	for _, route := range h.prefixes {
		if strings.HasPrefix(cq.Data, route.prefix) {
			route.handler(cq)
			return
		}
	}
	log.Printf("Unroutable callback %q from user %d", cq.Data, cq.From.ID)
	h.answer(cq, "")
}

func (h *Handlers) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if len(msg.Photo) > 0 {
		h.handleAdminPhoto(msg)
		return
	}

	if msg.IsCommand() {
		h.handleCommand(msg)
		return
	}

	if msg.Text == "" {
		return
	}

	if h.isAdmin(msg.From.ID) && h.consumeAdminEdit(msg) {
		return
	}

	// Free text is only meaningful while we are waiting for an email.
	if h.sessions.Get(msg.From.ID).State == StateAwaitingEmail {
		h.handleEmailInput(msg)
	}
}

func (h *Handlers) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.sendStartMenu(msg.Chat.ID)
	case "admin":
		h.handleAdminLogin(msg)
	case "cancel":
		h.handleAdminCancel(msg)
	default:
		// Any other command resolves against the message table by title.
		text := h.messages.GetByTitle(context.Background(), msg.Command(),
			"Сообщение для команды /"+msg.Command()+" не найдено.")
		h.send(tgbotapi.NewMessage(msg.Chat.ID, text))
	}
}

func (h *Handlers) sendStartMenu(chatID int64) {
	text := h.messages.GetByTitle(context.Background(), msgTitleStart, DefaultMessages[msgTitleStart])
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = startKeyboard(h.supportURL)
	h.send(m)
}

func (h *Handlers) isAdmin(userID int64) bool {
	return h.adminIDs[userID]
}

func (h *Handlers) adminOnly(fn callbackFunc) callbackFunc {
	return func(cq *tgbotapi.CallbackQuery) {
		if !h.isAdmin(cq.From.ID) {
			h.alert(cq, "⛔ Доступно только администраторам")
			return
		}
		fn(cq)
	}
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

// answer acks a callback query with an optional toast.
func (h *Handlers) answer(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

// alert acks a callback query with a blocking alert popup.
func (h *Handlers) alert(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallbackWithAlert(cq.ID, text)); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

func parseIDSuffix(data, prefix string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
