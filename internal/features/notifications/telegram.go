package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// TelegramAlerter шлёт короткие алерты админам в личку.
type TelegramAlerter struct {
	bot      *telego.Bot
	adminIDs []int64
}

// NewTelegramAlerter создаёт бота только для отправки (без polling).
func NewTelegramAlerter(token string, adminIDs []int64) (*TelegramAlerter, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}
	return &TelegramAlerter{bot: bot, adminIDs: adminIDs}, nil
}

// Alert отправляет текст каждому админу. Ошибки по отдельным чатам собираются вместе.
func (a *TelegramAlerter) Alert(ctx context.Context, text string) error {
	var errs []error
	for _, id := range a.adminIDs {
		if _, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(id), text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
