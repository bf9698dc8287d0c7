package bot

import (
	"context"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"land_course_bot/internal/models"
)

// gatewayCallTimeout bounds payment creation and poll calls.
const gatewayCallTimeout = 30 * time.Second

type consentFlag int

const (
	consentFlagData consentFlag = iota
	consentFlagOffer
)

func displayName(u *tgbotapi.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

func (h *Handlers) ensureUser(from *tgbotapi.User) (*models.User, error) {
	return h.users.EnsureUser(from.ID, displayName(from), from.UserName)
}

// handleBuy enters the purchase flow. Users with both consents already on
// file skip straight toward payment creation.
func (h *Handlers) handleBuy(cq *tgbotapi.CallbackQuery) {
	user, err := h.ensureUser(cq.From)
	if err != nil {
		log.Printf("Failed to ensure user %d: %v", cq.From.ID, err)
		h.alert(cq, "Что-то пошло не так. Попробуйте ещё раз.")
		return
	}
	h.answer(cq, "")

	dataConsent, offerConsent, err := h.consents.GetConsent(user.ID)
	if err != nil {
		log.Printf("Failed to read consent for user %d: %v", user.ID, err)
	}
	if dataConsent && offerConsent {
		h.beginPayment(cq.Message.Chat.ID, user)
		return
	}

	h.sessions.Put(user.TelegramID, PurchaseSession{State: StateAwaitingContinue})
	text := h.messages.GetByTitle(context.Background(), msgTitleContinue, DefaultMessages[msgTitleContinue])
	m := tgbotapi.NewMessage(cq.Message.Chat.ID, text)
	m.ReplyMarkup = continueKeyboard()
	h.send(m)
}

func (h *Handlers) handleContinue(cq *tgbotapi.CallbackQuery) {
	_, err := h.sessions.Mutate(cq.From.ID, StateAwaitingContinue, func(s *PurchaseSession) {
		s.State = StateAwaitingConsent
		s.DataConsent = false
		s.OfferConsent = false
	})
	if err != nil {
		h.alert(cq, textSessionExpired)
		return
	}
	h.answer(cq, "")

	m := tgbotapi.NewMessage(cq.Message.Chat.ID, textConsentDocs)
	m.ReplyMarkup = consentKeyboard(false, false)
	h.send(m)
}

// handleConsentToggle flips one transient flag and re-renders the keyboard.
// Nothing is persisted until the proceed transition.
func (h *Handlers) handleConsentToggle(flag consentFlag) callbackFunc {
	return func(cq *tgbotapi.CallbackQuery) {
		sess, err := h.sessions.Mutate(cq.From.ID, StateAwaitingConsent, func(s *PurchaseSession) {
			switch flag {
			case consentFlagData:
				s.DataConsent = true
			case consentFlagOffer:
				s.OfferConsent = true
			}
		})
		if err != nil {
			h.alert(cq, textSessionExpired)
			return
		}

		switch flag {
		case consentFlagData:
			h.answer(cq, "Согласие на обработку персональных данных подтверждено!")
		case consentFlagOffer:
			h.answer(cq, "Оферта акцептована!")
		}

		edit := tgbotapi.NewEditMessageReplyMarkup(
			cq.Message.Chat.ID, cq.Message.MessageID,
			consentKeyboard(sess.DataConsent, sess.OfferConsent))
		if _, err := h.api.Request(edit); err != nil {
			log.Printf("Failed to re-render consent keyboard: %v", err)
		}
	}
}

// handleProceed leaves AwaitingConsent. The ledger is persisted here, with
// exactly the flags the session held at this transition.
func (h *Handlers) handleProceed(cq *tgbotapi.CallbackQuery) {
	claimed := false
	sess, err := h.sessions.Mutate(cq.From.ID, StateAwaitingConsent, func(s *PurchaseSession) {
		if s.DataConsent && s.OfferConsent {
			claimed = true
			// Provisional next step; beginPayment advances it further when
			// an email is already on file.
			s.State = StateAwaitingEmail
		}
	})
	if err != nil {
		h.alert(cq, textSessionExpired)
		return
	}
	if !claimed {
		h.alert(cq, textBothConsents)
		return
	}

	user, err := h.ensureUser(cq.From)
	if err != nil {
		log.Printf("Failed to ensure user %d: %v", cq.From.ID, err)
		h.alert(cq, "Что-то пошло не так. Попробуйте ещё раз.")
		return
	}
	if err := h.consents.RecordConsent(user.ID, sess.DataConsent, sess.OfferConsent); err != nil {
		log.Printf("Failed to persist consent for user %d: %v", user.ID, err)
	}
	h.answer(cq, "")

	// Drop the consent keyboard from the old message.
	clear := tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := h.api.Request(clear); err != nil {
		log.Printf("Failed to clear consent keyboard: %v", err)
	}

	h.beginPayment(cq.Message.Chat.ID, user)
}

// beginPayment captures an email first when none is on file, otherwise
// creates the payment right away.
func (h *Handlers) beginPayment(chatID int64, user *models.User) {
	if user.Email == nil || *user.Email == "" {
		h.sessions.Put(user.TelegramID, PurchaseSession{State: StateAwaitingEmail})
		h.send(tgbotapi.NewMessage(chatID, textAskEmail))
		return
	}
	h.createPayment(chatID, user)
}

func (h *Handlers) handleEmailInput(msg *tgbotapi.Message) {
	email := strings.TrimSpace(msg.Text)
	if !ValidateEmail(email) {
		h.send(tgbotapi.NewMessage(msg.Chat.ID, textBadEmail))
		return
	}

	user, err := h.ensureUser(msg.From)
	if err != nil {
		log.Printf("Failed to ensure user %d: %v", msg.From.ID, err)
		h.send(tgbotapi.NewMessage(msg.Chat.ID, textGatewayTrouble))
		return
	}
	if err := h.users.SetEmail(user.ID, email); err != nil {
		log.Printf("Failed to save email for user %d: %v", user.ID, err)
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "Не удалось сохранить email. Отправьте его ещё раз:"))
		return
	}
	user.Email = &email

	h.createPayment(msg.Chat.ID, user)
}

func (h *Handlers) createPayment(chatID int64, user *models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	payment, redirectURL, err := h.payments.StartPayment(ctx, user)
	if err != nil {
		log.Printf("Failed to create payment for user %d: %v", user.ID, err)
		h.sessions.Clear(user.TelegramID)
		m := tgbotapi.NewMessage(chatID, textGatewayTrouble)
		m.ReplyMarkup = buyBackKeyboard()
		h.send(m)
		return
	}

	h.sessions.Put(user.TelegramID, PurchaseSession{
		State:            StatePaymentCreated,
		GatewayPaymentID: payment.GatewayPaymentID,
		RedirectURL:      redirectURL,
	})

	text := h.messages.GetByTitle(ctx, msgTitlePayment, DefaultMessages[msgTitlePayment])
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = paymentKeyboard(redirectURL, h.supportURL)
	h.send(m)
}

// handleCheckPayment is the user-initiated reconciliation poll.
func (h *Handlers) handleCheckPayment(cq *tgbotapi.CallbackQuery) {
	sess := h.sessions.Get(cq.From.ID)
	if sess.State != StatePaymentCreated || sess.GatewayPaymentID == "" {
		h.alert(cq, textPaymentGone)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	status, err := h.payments.Poll(ctx, sess.GatewayPaymentID)
	if err != nil {
		// The grant failure path has already pointed the user at support;
		// a gateway failure just means "unknown, try later".
		log.Printf("Poll for payment %s failed: %v", sess.GatewayPaymentID, err)
	}

	switch status {
	case models.PaymentStatusSucceeded:
		h.sessions.Clear(cq.From.ID)
		h.answer(cq, "Оплата подтверждена!")
	case models.PaymentStatusCanceled, models.PaymentStatusRefunded:
		h.sessions.Clear(cq.From.ID)
		h.answer(cq, "Платёж не прошёл. Начните покупку заново.")
	default:
		h.answer(cq, textProcessing)
	}
}

func (h *Handlers) handlePreview(cq *tgbotapi.CallbackQuery) {
	h.answer(cq, "")
	text := h.messages.GetByTitle(context.Background(), msgTitlePreview, DefaultMessages[msgTitlePreview])
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		cq.Message.Chat.ID, cq.Message.MessageID, text, buyBackKeyboard())
	if _, err := h.api.Request(edit); err != nil {
		log.Printf("Failed to show preview: %v", err)
	}
}

func (h *Handlers) handleReviews(cq *tgbotapi.CallbackQuery) {
	h.answer(cq, "")

	reviews, err := h.reviews.All()
	if err != nil {
		log.Printf("Failed to load reviews: %v", err)
	}
	if len(reviews) == 0 {
		m := tgbotapi.NewMessage(cq.Message.Chat.ID, "📭 Пока нет отзывов")
		m.ReplyMarkup = backKeyboard()
		h.send(m)
		return
	}

	if len(reviews) > 10 {
		reviews = reviews[:10]
	}
	media := make([]interface{}, 0, len(reviews))
	for _, r := range reviews {
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(r.PhotoFileID)))
	}
	if _, err := h.api.SendMediaGroup(tgbotapi.NewMediaGroup(cq.Message.Chat.ID, media)); err != nil {
		log.Printf("Failed to send review album: %v", err)
		m := tgbotapi.NewMessage(cq.Message.Chat.ID, "⚠️ Не удалось загрузить отзывы")
		m.ReplyMarkup = backKeyboard()
		h.send(m)
		return
	}

	text := h.messages.GetByTitle(context.Background(), msgTitleReviews, DefaultMessages[msgTitleReviews])
	m := tgbotapi.NewMessage(cq.Message.Chat.ID, text)
	m.ReplyMarkup = buyBackKeyboard()
	h.send(m)
}

func (h *Handlers) handleBackMenu(cq *tgbotapi.CallbackQuery) {
	h.answer(cq, "")
	text := h.messages.GetByTitle(context.Background(), msgTitleStart, DefaultMessages[msgTitleStart])
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		cq.Message.Chat.ID, cq.Message.MessageID, text, startKeyboard(h.supportURL))
	if _, err := h.api.Request(edit); err != nil {
		log.Printf("Failed to return to menu: %v", err)
	}
}

// handleCancel clears the transient session. An in-flight payment-creation
// call is not canceled; its result is simply no longer tracked.
func (h *Handlers) handleCancel(cq *tgbotapi.CallbackQuery) {
	h.sessions.Clear(cq.From.ID)
	h.answer(cq, "")
	m := tgbotapi.NewMessage(cq.Message.Chat.ID, textCanceledFlow)
	m.ReplyMarkup = startKeyboard(h.supportURL)
	h.send(m)
}
