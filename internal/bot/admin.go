package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminSession tracks which admins currently have the admin panel open.
// Photo uploads are only treated as review submissions while the panel is
// active, so admins can still use the bot as regular users.
type AdminSession struct {
	mu     sync.Mutex
	active map[int64]bool
}

func NewAdminSession() *AdminSession {
	return &AdminSession{active: make(map[int64]bool)}
}

func (s *AdminSession) Login(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[userID] = true
}

func (s *AdminSession) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, userID)
}

func (s *AdminSession) IsActive(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[userID]
}

func (h *Handlers) handleAdminLogin(msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From.ID) {
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "⛔ Доступно только администраторам"))
		return
	}
	h.admins.Login(msg.From.ID)

	m := tgbotapi.NewMessage(msg.Chat.ID, "🔧 Панель администратора")
	m.ReplyMarkup = adminKeyboard()
	h.send(m)
}

func (h *Handlers) handleAdminCancel(msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From.ID) {
		return
	}
	h.admins.Logout(msg.From.ID)
	h.clearEdit(msg.From.ID)
	h.send(tgbotapi.NewMessage(msg.Chat.ID, "Панель администратора закрыта."))
}

// handleAdminPhoto stores the largest size of an uploaded photo as a review
// screenshot. Non-admin photos and photos outside an admin session are
// ignored.
func (h *Handlers) handleAdminPhoto(msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From.ID) || !h.admins.IsActive(msg.From.ID) {
		return
	}

	fileID := msg.Photo[len(msg.Photo)-1].FileID
	added, err := h.reviews.Add(fileID)
	if err != nil {
		log.Printf("Failed to store review photo: %v", err)
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "⚠️ Не удалось сохранить отзыв"))
		return
	}
	if !added {
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "Этот скриншот уже есть в галерее."))
		return
	}
	h.send(tgbotapi.NewMessage(msg.Chat.ID, "✅ Отзыв добавлен в галерею"))
}

func (h *Handlers) handleAdminAddReview(cq *tgbotapi.CallbackQuery) {
	h.admins.Login(cq.From.ID)
	h.answer(cq, "")
	h.send(tgbotapi.NewMessage(cq.Message.Chat.ID,
		"Отправьте скриншот отзыва одним фото. /cancel — выйти из панели."))
}

func (h *Handlers) handleAdminListReviews(cq *tgbotapi.CallbackQuery) {
	h.answer(cq, "")

	reviews, err := h.reviews.All()
	if err != nil {
		log.Printf("Failed to load reviews: %v", err)
		return
	}
	if len(reviews) == 0 {
		h.send(tgbotapi.NewMessage(cq.Message.Chat.ID, "📭 Галерея пуста"))
		return
	}

	// Media groups are capped at 10 items per Telegram call.
	for start := 0; start < len(reviews); start += 10 {
		end := start + 10
		if end > len(reviews) {
			end = len(reviews)
		}
		media := make([]interface{}, 0, end-start)
		for _, r := range reviews[start:end] {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(r.PhotoFileID)))
		}
		if len(media) == 1 {
			h.send(tgbotapi.NewPhoto(cq.Message.Chat.ID, tgbotapi.FileID(reviews[start].PhotoFileID)))
			continue
		}
		if _, err := h.api.SendMediaGroup(tgbotapi.NewMediaGroup(cq.Message.Chat.ID, media)); err != nil {
			log.Printf("Failed to send review album: %v", err)
		}
	}
}

func (h *Handlers) handleAdminDeleteMenu(cq *tgbotapi.CallbackQuery) {
	h.answer(cq, "")

	reviews, err := h.reviews.All()
	if err != nil {
		log.Printf("Failed to load reviews: %v", err)
		return
	}
	if len(reviews) == 0 {
		h.send(tgbotapi.NewMessage(cq.Message.Chat.ID, "📭 Галерея пуста"))
		return
	}

	ids := make([]uint, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ID)
	}
	m := tgbotapi.NewMessage(cq.Message.Chat.ID, "Выберите отзыв для удаления:")
	m.ReplyMarkup = deleteReviewKeyboard(ids)
	h.send(m)
}

func (h *Handlers) handleAdminDeleteReview(cq *tgbotapi.CallbackQuery) {
	id, ok := parseIDSuffix(cq.Data, prefixDeleteReview)
	if !ok {
		h.answer(cq, "")
		return
	}

	deleted, err := h.reviews.Delete(id)
	if err != nil {
		log.Printf("Failed to delete review %d: %v", id, err)
		h.alert(cq, "⚠️ Не удалось удалить отзыв")
		return
	}
	if !deleted {
		h.alert(cq, "Отзыв уже удалён")
		return
	}
	h.answer(cq, "🗑 Отзыв удалён")
}

func (h *Handlers) handleAdminEditMessages(cq *tgbotapi.CallbackQuery) {
	h.answer(cq, "")

	messages, err := h.editor.List()
	if err != nil {
		log.Printf("Failed to list bot messages: %v", err)
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(messages)+1)
	for _, bm := range messages {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(bm.Title,
				fmt.Sprintf("%s%d", prefixEditMessage, bm.ID))))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Отмена", cbAdminCancelEdit)))

	m := tgbotapi.NewMessage(cq.Message.Chat.ID, "Выберите текст для редактирования:")
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.send(m)
}

func (h *Handlers) handleAdminPickMessage(cq *tgbotapi.CallbackQuery) {
	id, ok := parseIDSuffix(cq.Data, prefixEditMessage)
	if !ok {
		h.answer(cq, "")
		return
	}

	bm, err := h.editor.Find(id)
	if err != nil {
		log.Printf("Failed to load bot message %d: %v", id, err)
		h.alert(cq, "⚠️ Сообщение не найдено")
		return
	}

	h.editMu.Lock()
	h.editing[cq.From.ID] = id
	h.editMu.Unlock()

	h.answer(cq, "")
	h.send(tgbotapi.NewMessage(cq.Message.Chat.ID,
		fmt.Sprintf("Текущий текст «%s»:\n\n%s\n\nОтправьте новый текст одним сообщением.", bm.Title, bm.Text)))
}

func (h *Handlers) handleAdminCancelEdit(cq *tgbotapi.CallbackQuery) {
	h.clearEdit(cq.From.ID)
	h.answer(cq, "Редактирование отменено")
}

// consumeAdminEdit applies a pending text edit. Returns false when the admin
// has no edit in progress so the message falls through to the normal flow.
func (h *Handlers) consumeAdminEdit(msg *tgbotapi.Message) bool {
	h.editMu.Lock()
	id, ok := h.editing[msg.From.ID]
	if ok {
		delete(h.editing, msg.From.ID)
	}
	h.editMu.Unlock()
	if !ok {
		return false
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "Пустой текст не сохранён."))
		return true
	}
	if err := h.editor.UpdateText(context.Background(), id, text); err != nil {
		log.Printf("Failed to update bot message %d: %v", id, err)
		h.send(tgbotapi.NewMessage(msg.Chat.ID, "⚠️ Не удалось сохранить текст"))
		return true
	}
	h.send(tgbotapi.NewMessage(msg.Chat.ID, "✅ Текст обновлён"))
	return true
}

func (h *Handlers) clearEdit(userID int64) {
	h.editMu.Lock()
	delete(h.editing, userID)
	h.editMu.Unlock()
}
