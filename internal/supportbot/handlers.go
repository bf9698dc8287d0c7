package supportbot

import (
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"land_course_bot/internal/models"
)

const (
	userStartMessage  = "Здравствуйте! Задайте вопрос, и мы ответим в ближайшее время."
	adminStartMessage = "👮 Вы в режиме администратора. Новые вопросы будут приходить сюда. /tickets — открытые вопросы пользователей."

	prefixReply = "reply_"
	prefixClose = "close_"
)

// Handlers routes updates for the support bot: users file tickets, admins
// answer them. One pending-reply slot per admin; picking another ticket
// replaces it.
type Handlers struct {
	api      *tgbotapi.BotAPI
	db       *gorm.DB
	adminIDs map[int64]bool

	replyMu  sync.Mutex
	replying map[int64]uint // admin id -> ticket id a reply is pending for
}

func NewHandlers(api *tgbotapi.BotAPI, db *gorm.DB, adminIDs []int64) *Handlers {
	h := &Handlers{
		api:      api,
		db:       db,
		adminIDs: make(map[int64]bool, len(adminIDs)),
		replying: make(map[int64]uint),
	}
	for _, id := range adminIDs {
		h.adminIDs[id] = true
	}
	return h
}

func (h *Handlers) HandleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in support update handler: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(update.Message)
	}
}

func (h *Handlers) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.handleStart(msg)
		case "tickets":
			if h.isAdmin(msg.From.ID) {
				h.showOpenTickets(msg.Chat.ID)
			}
		}
		return
	}

	if h.isAdmin(msg.From.ID) {
		h.handleAdminText(msg)
		return
	}
	h.handleUserQuestion(msg)
}

func (h *Handlers) handleStart(msg *tgbotapi.Message) {
	h.clearReply(msg.From.ID)
	text := userStartMessage
	if h.isAdmin(msg.From.ID) {
		text = adminStartMessage
	}
	h.send(tgbotapi.NewMessage(msg.Chat.ID, text))
}

// handleUserQuestion files a ticket and relays it to every admin.
func (h *Handlers) handleUserQuestion(msg *tgbotapi.Message) {
	fullName := msg.From.FirstName
	if msg.From.LastName != "" {
		fullName += " " + msg.From.LastName
	}

	ticket := models.SupportTicket{
		TelegramID: msg.From.ID,
		Username:   msg.From.UserName,
		FullName:   fullName,
		Question:   msg.Text,
		Status:     models.SupportTicketStatusOpen,
	}
	if err := h.db.Create(&ticket).Error; err != nil {
		log.Printf("Failed to create support ticket: %v", err)
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "⚠️ Не удалось отправить вопрос. Попробуйте позже."))
		return
	}
	h.trimUserTickets(msg.From.ID)

	name := fullName
	if name == "" {
		name = "Без имени"
	}
	text := fmt.Sprintf("🆕 Тикет #%d\n👤 %s\n📩 Вопрос:\n%s", ticket.ID, name, msg.Text)
	for adminID := range h.adminIDs {
		m := tgbotapi.NewMessage(adminID, text)
		m.ReplyMarkup = ticketKeyboard(ticket.ID)
		if _, err := h.api.Send(m); err != nil {
			log.Printf("Failed to relay ticket %d to admin %d: %v", ticket.ID, adminID, err)
		}
	}

	h.send(tgbotapi.NewMessage(msg.Chat.ID, "✅ Спасибо за ваше обращение! Ожидайте ответа."))
}

// maxOpenTicketsPerUser caps how many open tickets one user may pile up.
const maxOpenTicketsPerUser = 5

// trimUserTickets closes the oldest open tickets of a user above the cap.
func (h *Handlers) trimUserTickets(telegramID int64) {
	var open []models.SupportTicket
	err := h.db.Where("telegram_id = ? AND status = ?", telegramID, models.SupportTicketStatusOpen).
		Order("id desc").Find(&open).Error
	if err != nil || len(open) <= maxOpenTicketsPerUser {
		return
	}
	for _, t := range open[maxOpenTicketsPerUser:] {
		err := h.db.Model(&t).Update("status", models.SupportTicketStatusClosed).Error
		if err != nil {
			log.Printf("Failed to close stale ticket %d: %v", t.ID, err)
		}
	}
}

// handleAdminText delivers a pending reply; without one it is ignored.
func (h *Handlers) handleAdminText(msg *tgbotapi.Message) {
	h.replyMu.Lock()
	ticketID, ok := h.replying[msg.From.ID]
	if ok {
		delete(h.replying, msg.From.ID)
	}
	h.replyMu.Unlock()
	if !ok {
		// Possibly a "#12 Имя" pick from the /tickets reply keyboard.
		h.tryTicketPick(msg)
		return
	}

	var ticket models.SupportTicket
	if err := h.db.First(&ticket, ticketID).Error; err != nil {
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "Ошибка: тикет не найден"))
		return
	}

	reply := tgbotapi.NewMessage(ticket.TelegramID, "📨 Ответ поддержки:\n\n"+msg.Text)
	if _, err := h.api.Send(reply); err != nil {
		log.Printf("Failed to deliver reply for ticket %d: %v", ticket.ID, err)
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Не удалось доставить ответ пользователю"))
		return
	}

	err := h.db.Model(&ticket).Update("status", models.SupportTicketStatusAnswered).Error
	if err != nil {
		log.Printf("Failed to mark ticket %d answered: %v", ticket.ID, err)
	}
	h.send(tgbotapi.NewMessage(msg.Chat.ID, "✅ Ответ отправлен!"))
	h.showOpenTickets(msg.Chat.ID)
}

// tryTicketPick parses "#12 ..." messages produced by the /tickets keyboard.
func (h *Handlers) tryTicketPick(msg *tgbotapi.Message) {
	if !strings.HasPrefix(msg.Text, "#") {
		return
	}
	fields := strings.Fields(msg.Text)
	var ticketID uint
	if _, err := fmt.Sscanf(fields[0], "#%d", &ticketID); err != nil {
		return
	}

	var ticket models.SupportTicket
	err := h.db.Where("status = ?", models.SupportTicketStatusOpen).First(&ticket, ticketID).Error
	if err != nil {
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "Тикет не найден!"))
		return
	}

	h.setReply(msg.From.ID, ticket.ID)
	text := fmt.Sprintf("👤 %s (@%s)\n❓ Вопрос:\n\n%s\n\nВведите ответ:",
		ticket.FullName, ticket.Username, ticket.Question)
	h.send(tgbotapi.NewMessage(msg.Chat.ID, text))
}

func (h *Handlers) handleCallback(cq *tgbotapi.CallbackQuery) {
	if !h.isAdmin(cq.From.ID) {
		h.answer(cq, "")
		return
	}

	switch {
	case strings.HasPrefix(cq.Data, prefixReply):
		h.handleReplyCallback(cq)
	case strings.HasPrefix(cq.Data, prefixClose):
		h.handleCloseCallback(cq)
	default:
		h.answer(cq, "")
	}
}

func (h *Handlers) handleReplyCallback(cq *tgbotapi.CallbackQuery) {
	ticketID, ok := parseIDSuffix(cq.Data, prefixReply)
	if !ok {
		h.answer(cq, "")
		return
	}

	var ticket models.SupportTicket
	if err := h.db.First(&ticket, ticketID).Error; err != nil {
		h.alert(cq, "Тикет не найден!")
		return
	}

	h.setReply(cq.From.ID, ticket.ID)

	// Drop the buttons from the relayed ticket so only one admin answers.
	clear := tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := h.api.Request(clear); err != nil {
		log.Printf("Failed to clear ticket keyboard: %v", err)
	}

	h.answer(cq, "")
	h.send(tgbotapi.NewMessage(cq.Message.Chat.ID, fmt.Sprintf("Введите ответ на тикет #%d:", ticket.ID)))
}

func (h *Handlers) handleCloseCallback(cq *tgbotapi.CallbackQuery) {
	ticketID, ok := parseIDSuffix(cq.Data, prefixClose)
	if !ok {
		h.answer(cq, "")
		return
	}

	var ticket models.SupportTicket
	if err := h.db.First(&ticket, ticketID).Error; err != nil {
		h.alert(cq, "Тикет не найден!")
		return
	}
	err := h.db.Model(&ticket).Update("status", models.SupportTicketStatusClosed).Error
	if err != nil {
		log.Printf("Failed to close ticket %d: %v", ticket.ID, err)
		h.alert(cq, "Не удалось закрыть тикет")
		return
	}

	edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID,
		"🚫 ЗАКРЫТО\n"+cq.Message.Text)
	if _, err := h.api.Request(edit); err != nil {
		log.Printf("Failed to rewrite closed ticket message: %v", err)
	}
	h.alert(cq, "Тикет закрыт")
}

func (h *Handlers) showOpenTickets(chatID int64) {
	var tickets []models.SupportTicket
	err := h.db.Where("status = ?", models.SupportTicketStatusOpen).
		Order("id asc").Find(&tickets).Error
	if err != nil {
		log.Printf("Failed to list open tickets: %v", err)
		return
	}

	if len(tickets) == 0 {
		m := tgbotapi.NewMessage(chatID, "Нет активных тикетов.")
		m.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		h.send(m)
		return
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(fmt.Sprintf("#%d %s", t.ID, t.FullName))))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true

	m := tgbotapi.NewMessage(chatID, "📂 Открытые тикеты:")
	m.ReplyMarkup = keyboard
	h.send(m)
}

func ticketKeyboard(ticketID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Ответить", fmt.Sprintf("%s%d", prefixReply, ticketID)),
			tgbotapi.NewInlineKeyboardButtonData("Закрыть", fmt.Sprintf("%s%d", prefixClose, ticketID)),
		),
	)
}

func (h *Handlers) isAdmin(userID int64) bool {
	return h.adminIDs[userID]
}

func (h *Handlers) setReply(adminID int64, ticketID uint) {
	h.replyMu.Lock()
	h.replying[adminID] = ticketID
	h.replyMu.Unlock()
}

func (h *Handlers) clearReply(adminID int64) {
	h.replyMu.Lock()
	delete(h.replying, adminID)
	h.replyMu.Unlock()
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		log.Printf("Failed to send support message: %v", err)
	}
}

func (h *Handlers) answer(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

func (h *Handlers) alert(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallbackWithAlert(cq.ID, text)); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

func parseIDSuffix(data, prefix string) (uint, bool) {
	var id uint
	if _, err := fmt.Sscanf(strings.TrimPrefix(data, prefix), "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}
