package services

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers plain text messages through the bot API.
// Satisfies Notifier.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (n *TelegramNotifier) SendText(telegramID int64, text string) error {
	_, err := n.bot.Send(tgbotapi.NewMessage(telegramID, text))
	return err
}
