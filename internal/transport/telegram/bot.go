package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/tuskagent/internal/config"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/agent"
	"github.com/sandevgo/tuskagent/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const (
	baseContextKey = "base_context"
	// failureReply is sent when the agent produced nothing to deliver.
	failureReply = "حصلت مشكلة مؤقتة، ممكن تبعت رسالتك تاني؟"
)

type Handler interface {
	Handle(ctx context.Context, in agent.Inbound) (agent.Reply, error)
	Tenant() core.TenantProfile
}

type Bot struct {
	bot     *tele.Bot
	cfg     *config.TelegramConfig
	handler Handler
	sender  *sender
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	handler Handler,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		cfg:     cfg,
		handler: handler,
		sender:  newSender(b),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Chat() == nil || !cfg.Allows(c.Chat().ID) {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().
		Str("tenant_id", b.handler.Tenant().TenantID).
		Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)

	in := inbound(b.handler.Tenant().TenantID, b.cfg.SessionIsolated, c.Chat().ID, c.Sender(), c.Text())

	_ = c.Notify(tele.Typing)

	reply, err := b.handler.Handle(ctx, in)
	if err != nil {
		logger.Error().Err(err).Str("key", in.Key.String()).Msg("agent run failed")
	}
	if reply.Duplicate && reply.Text == "" {
		return nil
	}

	text := reply.Text
	if text == "" {
		text = failureReply
	}
	return b.sender.sendMarkdown(ctx, c.Chat(), text, replyTarget(c))
}

// inbound maps a Telegram update onto the agent's key layout: the chat is
// the conversation and the sender is the participant.
func inbound(tenantID string, isolated bool, chatID int64, user *tele.User, text string) agent.Inbound {
	conversation := ""
	if isolated {
		conversation = strconv.FormatInt(chatID, 10)
	}

	var (
		participant string
		customer    core.CustomerProfile
	)
	if user != nil {
		participant = strconv.FormatInt(user.ID, 10)
		customer.Name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	} else {
		participant = strconv.FormatInt(chatID, 10)
	}

	return agent.Inbound{
		Key:      core.NewTenantKey(tenantID, conversation, participant),
		Text:     text,
		Customer: customer,
	}
}
