package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"land_course_bot/internal/models"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	return nil, nil
}

// lastAlert returns the text of the last callback answer, alert or toast.
func (s *fakeSender) lastAlert() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if cb, ok := s.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb.Text
		}
	}
	return ""
}

func (s *fakeSender) sentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var texts []string
	for _, c := range s.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

type fakeUsers struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	emails map[uint]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*models.User), emails: make(map[uint]string)}
}

func (f *fakeUsers) EnsureUser(telegramID int64, name, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[telegramID]; ok {
		cp := *u
		return &cp, nil
	}
	u := &models.User{ID: uint(len(f.users) + 1), TelegramID: telegramID, Name: name, Username: username}
	f.users[telegramID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetEmail(userID uint, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails[userID] = email
	for _, u := range f.users {
		if u.ID == userID {
			e := email
			u.Email = &e
		}
	}
	return nil
}

type fakeConsents struct {
	mu       sync.Mutex
	recorded map[uint][2]bool
}

func newFakeConsents() *fakeConsents {
	return &fakeConsents{recorded: make(map[uint][2]bool)}
}

func (f *fakeConsents) RecordConsent(userID uint, dataConsent, offerConsent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded[userID] = [2]bool{dataConsent, offerConsent}
	return nil
}

func (f *fakeConsents) GetConsent(userID uint) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.recorded[userID]
	return c[0], c[1], nil
}

type fakePayments struct {
	mu         sync.Mutex
	started    int
	pollStatus models.PaymentStatus
}

func (f *fakePayments) StartPayment(ctx context.Context, user *models.User) (*models.Payment, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return &models.Payment{
		ID:               1,
		UserID:           user.ID,
		GatewayPaymentID: "pay-1",
		Status:           models.PaymentStatusPending,
	}, "https://yoomoney.ru/checkout/pay-1", nil
}

func (f *fakePayments) Poll(ctx context.Context, gatewayPaymentID string) (models.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollStatus, nil
}

func (f *fakePayments) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

type staticMessages struct{}

func (staticMessages) GetByTitle(ctx context.Context, title, fallback string) string { return fallback }

type emptyGallery struct{}

func (emptyGallery) Add(photoFileID string) (bool, error) { return true, nil }
func (emptyGallery) All() ([]models.Review, error)        { return nil, nil }
func (emptyGallery) Find(id uint) (*models.Review, error) { return nil, nil }
func (emptyGallery) Delete(id uint) (bool, error)         { return false, nil }

type noopEditor struct{}

func (noopEditor) List() ([]models.BotMessage, error)                     { return nil, nil }
func (noopEditor) Find(id uint) (*models.BotMessage, error)               { return nil, nil }
func (noopEditor) UpdateText(ctx context.Context, id uint, s string) error { return nil }

type flowFixture struct {
	h        *Handlers
	api      *fakeSender
	payments *fakePayments
	consents *fakeConsents
	users    *fakeUsers
}

func newFlowFixture() *flowFixture {
	api := &fakeSender{}
	payments := &fakePayments{pollStatus: models.PaymentStatusPending}
	consents := newFakeConsents()
	users := newFakeUsers()
	h := NewHandlers(Config{
		API:        api,
		Sessions:   NewSessionStore(),
		Users:      users,
		Consents:   consents,
		Payments:   payments,
		Messages:   staticMessages{},
		Editor:     noopEditor{},
		Reviews:    emptyGallery{},
		AdminIDs:   []int64{999},
		SupportURL: "https://t.me/support",
	})
	return &flowFixture{h: h, api: api, payments: payments, consents: consents, users: users}
}

func callback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID, FirstName: "Иван"},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
	}
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: userID, FirstName: "Иван"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
}

func TestProceedWithoutSessionIsRejected(t *testing.T) {
	fx := newFlowFixture()

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbProceed)})

	if got := fx.payments.startedCount(); got != 0 {
		t.Errorf("payments started on stale proceed = %d; want 0", got)
	}
	if alert := fx.api.lastAlert(); alert != textSessionExpired {
		t.Errorf("alert = %q; want session-expired notice", alert)
	}
}

func TestProceedRequiresBothConsents(t *testing.T) {
	fx := newFlowFixture()
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbBuy)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbContinue)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbConsentData)})

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbProceed)})

	if got := fx.payments.startedCount(); got != 0 {
		t.Errorf("payments started with one consent = %d; want 0", got)
	}
	if alert := fx.api.lastAlert(); alert != textBothConsents {
		t.Errorf("alert = %q; want both-consents notice", alert)
	}
	// Nothing may reach the ledger before the transition.
	data, offer, _ := fx.consents.GetConsent(1)
	if data || offer {
		t.Errorf("ledger = (%v, %v) before transition; want (false, false)", data, offer)
	}
}

func TestFullPurchaseFlowAsksEmailThenStartsPayment(t *testing.T) {
	fx := newFlowFixture()

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbBuy)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbContinue)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbConsentData)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbConsentOffer)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbProceed)})

	// Consent is persisted exactly at the proceed transition.
	data, offer, _ := fx.consents.GetConsent(1)
	if !data || !offer {
		t.Errorf("ledger after proceed = (%v, %v); want (true, true)", data, offer)
	}
	if got := fx.payments.startedCount(); got != 0 {
		t.Fatalf("payment started before email capture: %d", got)
	}

	// Bad email re-prompts without advancing.
	fx.h.HandleUpdate(tgbotapi.Update{Message: textMessage(10, "a@b")})
	if got := fx.payments.startedCount(); got != 0 {
		t.Fatalf("payment started on invalid email: %d", got)
	}

	fx.h.HandleUpdate(tgbotapi.Update{Message: textMessage(10, "a@b.co")})
	if got := fx.payments.startedCount(); got != 1 {
		t.Fatalf("payments started = %d; want 1", got)
	}
	if fx.users.emails[1] != "a@b.co" {
		t.Errorf("stored email = %q; want a@b.co", fx.users.emails[1])
	}

	sess := fx.h.sessions.Get(10)
	if sess.State != StatePaymentCreated || sess.GatewayPaymentID != "pay-1" {
		t.Errorf("session after payment creation = %+v; want payment_created with pay-1", sess)
	}
}

func TestBuySkipsConsentWhenAlreadyOnFile(t *testing.T) {
	fx := newFlowFixture()
	// Returning customer: consents and email already persisted.
	user, _ := fx.users.EnsureUser(10, "Иван", "ivan")
	fx.consents.RecordConsent(user.ID, true, true)
	fx.users.SetEmail(user.ID, "a@b.co")

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbBuy)})

	if got := fx.payments.startedCount(); got != 1 {
		t.Errorf("payments started = %d; want 1 straight from buy", got)
	}
}

func TestDoubleProceedStartsOnePayment(t *testing.T) {
	fx := newFlowFixture()
	user, _ := fx.users.EnsureUser(10, "Иван", "ivan")
	fx.users.SetEmail(user.ID, "a@b.co")

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbBuy)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbContinue)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbConsentData)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbConsentOffer)})

	// A double press of the same button: the second is stale.
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbProceed)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbProceed)})

	if got := fx.payments.startedCount(); got != 1 {
		t.Errorf("payments started after double proceed = %d; want 1", got)
	}
}

func TestCheckPaymentClearsSessionOnTerminalStatus(t *testing.T) {
	fx := newFlowFixture()
	fx.payments.pollStatus = models.PaymentStatusSucceeded
	fx.h.sessions.Put(10, PurchaseSession{State: StatePaymentCreated, GatewayPaymentID: "pay-1"})

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbCheckPayment)})

	if got := fx.h.sessions.Get(10).State; got != StateIdle {
		t.Errorf("session after confirmed payment = %v; want idle", got)
	}
}

func TestCheckPaymentKeepsSessionWhilePending(t *testing.T) {
	fx := newFlowFixture()
	fx.payments.pollStatus = models.PaymentStatusPending
	fx.h.sessions.Put(10, PurchaseSession{State: StatePaymentCreated, GatewayPaymentID: "pay-1"})

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbCheckPayment)})

	sess := fx.h.sessions.Get(10)
	if sess.State != StatePaymentCreated {
		t.Errorf("session while pending = %v; want payment_created", sess.State)
	}
	if alert := fx.api.lastAlert(); alert != textProcessing {
		t.Errorf("alert = %q; want processing notice", alert)
	}
}

func TestCheckPaymentWithoutActivePayment(t *testing.T) {
	fx := newFlowFixture()

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbCheckPayment)})

	if alert := fx.api.lastAlert(); alert != textPaymentGone {
		t.Errorf("alert = %q; want payment-gone notice", alert)
	}
}

func TestCancelClearsSession(t *testing.T) {
	fx := newFlowFixture()
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbBuy)})
	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbCancel)})

	if got := fx.h.sessions.Get(10).State; got != StateIdle {
		t.Errorf("session after cancel = %v; want idle", got)
	}
}

func TestFreeTextOutsideEmailStateIsIgnored(t *testing.T) {
	fx := newFlowFixture()

	fx.h.HandleUpdate(tgbotapi.Update{Message: textMessage(10, "a@b.co")})

	if got := fx.payments.startedCount(); got != 0 {
		t.Errorf("payments started from stray text = %d; want 0", got)
	}
	if texts := fx.api.sentTexts(); len(texts) != 0 {
		t.Errorf("stray text produced replies: %q", texts)
	}
}

func TestAdminCallbacksRejectNonAdmins(t *testing.T) {
	fx := newFlowFixture()

	fx.h.HandleUpdate(tgbotapi.Update{CallbackQuery: callback(10, cbAdminDeleteMenu)})

	if alert := fx.api.lastAlert(); !strings.Contains(alert, "администратор") {
		t.Errorf("alert = %q; want admin-only notice", alert)
	}
}
