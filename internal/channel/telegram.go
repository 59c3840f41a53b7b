package channel

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/dealwatch/internal/alerts"
	"github.com/albapepper/dealwatch/internal/subscriber"
)

// TelegramSink delivers events as Telegram messages. It implements
// alerts.Sink. The bot client is constructed once at startup.
type TelegramSink struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramSink(botToken string) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot}, nil
}

func (s *TelegramSink) Send(ctx context.Context, sub subscriber.Subscriber, ev alerts.Event) error {
	if sub.TelegramChatID == 0 {
		return fmt.Errorf("%w: subscriber %s has no telegram chat", ErrInvalidAddress, sub.ID)
	}
	msg := tgbotapi.NewMessage(sub.TelegramChatID, PlainBody(ev))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}
