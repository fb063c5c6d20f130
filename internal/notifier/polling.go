package notifier

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// CommandHandler is called with the command name (without "/") and its arguments.
type CommandHandler func(ctx context.Context, command, args string) string

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) error {
	if t.bot == nil {
		return errors.New("polling needs an authorized bot")
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.bot.GetUpdatesChan(cfg)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update, handler)
		}
	}
}

// handleUpdate answers commands from the configured chat and ignores everything else.
func (t *TelegramNotifier) handleUpdate(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat.ID != t.ChatID {
		log.Warn().Int64("chat_id", msg.Chat.ID).Msg("ignoring command from unknown chat")
		return
	}

	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	log.Info().Str("command", command).Str("args", args).Msg("received command")

	reply := handler(ctx, command, args)
	if reply == "" {
		return
	}
	if err := t.sendTo(msg.Chat.ID, reply); err != nil {
		log.Error().Err(err).Str("command", command).Msg("send reply")
	}
}
