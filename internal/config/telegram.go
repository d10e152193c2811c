package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/tuskagent/pkg/log"
)

type TelegramConfig struct {
	Token string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	// AllowedChats restricts the bot to these chat ids when set.
	AllowedChats []int64 `env:"TELEGRAM_ALLOWED_CHATS" envSeparator:","`
	// SessionIsolated scopes memory per chat instead of per participant.
	SessionIsolated bool `env:"TELEGRAM_SESSION_ISOLATED" envDefault:"true"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	c := &TelegramConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Telegram config")
	}
	return c
}

func (c TelegramConfig) Allows(chatID int64) bool {
	if len(c.AllowedChats) == 0 {
		return true
	}
	for _, id := range c.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}
