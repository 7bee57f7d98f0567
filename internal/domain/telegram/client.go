package telegram

import "gopkg.in/telebot.v3"

// Client sends household notifications (allowance paid, chore due) to a
// member's Telegram chat. The processing service depends on this interface
// rather than on the bot library.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
