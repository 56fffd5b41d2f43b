// Package notify delivers user-facing auction messages over Telegram.
// Delivery is best-effort: a blocked bot or network hiccup is logged and
// dropped, never propagated back into the engines.
package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/auction"
)

type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

var _ auction.Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram notifier connected",
		slog.String("bot", bot.Self.UserName))
	return &TelegramNotifier{bot: bot}, nil
}

func (n *TelegramNotifier) NotifyWin(userID int64, giftNumber int, auctionName string) {
	n.send(userID, fmt.Sprintf(
		"🎉 You won! %s Gift #%d is yours.", auctionName, giftNumber))
}

func (n *TelegramNotifier) NotifyRefund(userID int64, amount decimal.Decimal, auctionName string) {
	n.send(userID, fmt.Sprintf(
		"💰 %s has ended. Your bid of %s ⭐ was returned to your balance.", auctionName, amount))
}

func (n *TelegramNotifier) NotifyTransferred(userID int64, fromRound, toRound int, auctionID int64, auctionName string) {
	n.send(userID, fmt.Sprintf(
		"➡️ Round %d of %s is over. Your bid moved to round %d — you are still in the running.",
		fromRound, auctionName, toRound))
}

func (n *TelegramNotifier) NotifyOutbid(userID int64, amount decimal.Decimal, itemsCount int, auctionID int64, auctionName string) {
	n.send(userID, fmt.Sprintf(
		"⚠️ You dropped out of the top %d in %s. The bar is now %s ⭐ — raise your bid to get back in.",
		itemsCount, auctionName, amount))
}

func (n *TelegramNotifier) send(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := n.bot.Send(msg); err != nil {
		slog.Warn("Failed to send telegram notification",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}
