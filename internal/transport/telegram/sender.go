package telegram

import (
	"context"
	"strings"

	"github.com/sandevgo/tuskagent/pkg/conv"
	"github.com/sandevgo/tuskagent/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

type sender struct {
	bot *tele.Bot
}

func newSender(bot *tele.Bot) *sender {
	return &sender{bot: bot}
}

// sendMarkdown converts Markdown to Telegram HTML and sends it in chunks.
// In group chats the first chunk replies to the customer's message so the
// answer stays attached to it. A chunk Telegram refuses as HTML is resent
// as plain text.
func (s *sender) sendMarkdown(ctx context.Context, to tele.Recipient, md string, replyTo *tele.Message) error {
	logger := log.FromCtx(ctx)
	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(md)))

	for i, chunk := range splitHTML(html, maxTelegramMsgLen) {
		opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
		if i == 0 {
			opts.ReplyTo = replyTo
		}

		if _, err := s.bot.Send(to, chunk, opts); err != nil {
			logger.Warn().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("html send rejected, retrying as plain text")

			opts.ParseMode = tele.ModeDefault
			if _, err := s.bot.Send(to, conv.HTMLToText(chunk), opts); err != nil {
				logger.Error().Err(err).Int("chunk", i).Msg("failed to send telegram chunk")
				return err
			}
		}
	}
	return nil
}

// replyTarget returns the message to thread a reply under, or nil in
// private chats where threading adds nothing.
func replyTarget(c tele.Context) *tele.Message {
	if c.Chat() == nil || c.Chat().Type == tele.ChatPrivate {
		return nil
	}
	return c.Message()
}

// splitHTML splits text into chunks of at most maxLen bytes, preferring
// newlines and never cutting inside a UTF-8 sequence.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		} else {
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
