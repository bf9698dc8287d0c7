package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback tags. Routing is a single dispatch table keyed by these, so a
// tag can never be claimed by two handlers.
const (
	cbBuy          = "buy"
	cbContinue     = "continue_to_consent"
	cbConsentData  = "consent_data"
	cbConsentOffer = "consent_offer"
	cbProceed      = "proceed_to_payment"
	cbCheckPayment = "check_payment"
	cbPreview      = "preview"
	cbReviews      = "reviews"
	cbBackMenu     = "back_to_menu"
	cbCancel       = "cancel_purchase"

	cbAdminAddReview    = "admin_add_review"
	cbAdminListReviews  = "admin_list_reviews"
	cbAdminDeleteMenu   = "admin_delete_menu"
	cbAdminEditMessages = "admin_edit_messages"
	cbAdminCancelEdit   = "cancel_edit"

	prefixDeleteReview = "del_review_"
	prefixEditMessage  = "edit_msg_"
)

func startKeyboard(supportURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Купить", cbBuy)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Посмотреть, что внутри", cbPreview)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Отзывы", cbReviews)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Поддержка", supportURL)),
	)
}

func continueKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Продолжить", cbContinue)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Отмена", cbCancel)),
	)
}

// consentKeyboard re-renders the toggle buttons with check marks for the
// flags already set in the transient session.
func consentKeyboard(dataConsent, offerConsent bool) tgbotapi.InlineKeyboardMarkup {
	dataText := "Согласен с обработкой данных"
	if dataConsent {
		dataText += " ✓"
	}
	offerText := "Акцептую оферту"
	if offerConsent {
		offerText += " ✓"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(dataText, cbConsentData),
			tgbotapi.NewInlineKeyboardButtonData(offerText, cbConsentOffer),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Продолжить", cbProceed)),
	)
}

func paymentKeyboard(redirectURL, supportURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Перейти к оплате", redirectURL)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Проверить оплату", cbCheckPayment)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Не получается оплатить", supportURL)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("В меню", cbBackMenu)),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", cbBackMenu)),
	)
}

func buyBackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Купить", cbBuy)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", cbBackMenu)),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Добавить отзыв", cbAdminAddReview)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🖼 Все отзывы", cbAdminListReviews)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить отзыв", cbAdminDeleteMenu)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Тексты бота", cbAdminEditMessages)),
	)
}

func deleteReviewKeyboard(ids []uint) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Отзыв #%d", id),
				fmt.Sprintf("%s%d", prefixDeleteReview, id)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
