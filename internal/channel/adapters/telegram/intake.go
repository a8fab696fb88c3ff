package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/teleput/internal/channel"
	"github.com/memohai/teleput/internal/config"
)

const (
	modePolling = "polling"
	modeWebhook = "webhook"

	pollTimeoutSeconds = 30
)

// IsChatAdmin implements AdminChecker with getChatMember.
func (a *TelegramAdapter) IsChatAdmin(_ context.Context, chatID, userID int64) (bool, error) {
	member, err := a.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, mapTelegramError(err)
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}

// Start begins receiving updates: it registers the webhook when one is
// configured and falls back to long polling otherwise.
func (a *TelegramAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil && a.conn.Running() {
		return nil
	}
	if a.cfg.WebhookEnabled() {
		conn, err := a.startWebhook()
		if err != nil {
			return err
		}
		a.conn = conn
		return nil
	}
	a.conn = a.startPolling(ctx)
	return nil
}

// Stop ends update intake; in webhook mode the webhook is deleted.
func (a *TelegramAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Stop(ctx)
}

// Mode reports the current intake mode, or empty when stopped.
func (a *TelegramAdapter) Mode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil || !a.conn.Running() {
		return ""
	}
	return a.conn.Mode()
}

func (a *TelegramAdapter) startWebhook() (channel.Connection, error) {
	wh, err := tgbotapi.NewWebhook(a.cfg.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("parse webhook url: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := a.bot.Request(wh); err != nil {
		a.logger.Error("set webhook failed", slog.Any("error", err))
		return nil, fmt.Errorf("set telegram webhook: %w", err)
	}
	a.logger.Info("start", slog.String("mode", modeWebhook), slog.String("url", a.cfg.WebhookURL))
	if a.cfg.WebhookPathGuessable() {
		a.logger.Warn("webhook served on default path; set telegram.webhook_path to an unguessable value",
			slog.String("path", config.DefaultWebhookPath))
	}
	stop := func(_ context.Context) error {
		a.logger.Info("stop", slog.String("mode", modeWebhook))
		if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return fmt.Errorf("delete telegram webhook: %w", err)
		}
		return nil
	}
	return channel.NewConnection(modeWebhook, stop), nil
}

func (a *TelegramAdapter) startPolling(ctx context.Context) channel.Connection {
	a.logger.Info("start", slog.String("mode", modePolling))
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeoutSeconds
	updates := a.bot.GetUpdatesChan(updateConfig)
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-connCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					a.logger.Info("updates channel closed")
					return
				}
				a.handleUpdate(connCtx, update)
			}
		}
	}()

	stop := func(ctx context.Context) error {
		a.logger.Info("stop", slog.String("mode", modePolling))
		a.bot.StopReceivingUpdates()
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
		// Drain so the library's polling goroutine can finish its in-flight
		// getUpdates call and exit.
		go func() {
			for range updates {
			}
		}()
		return nil
	}
	return channel.NewConnection(modePolling, stop)
}

// HandleWebhook decodes one update pushed by Telegram and processes it.
func (a *TelegramAdapter) HandleWebhook(r *http.Request) error {
	update, err := a.bot.HandleUpdate(r)
	if err != nil {
		return fmt.Errorf("decode telegram update: %w", err)
	}
	a.handleUpdate(r.Context(), *update)
	return nil
}

func (a *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil || a.commands == nil {
		return
	}
	cmd := Command{
		ChatID:   msg.Chat.ID,
		ChatType: msg.Chat.Type,
		Name:     msg.Command(),
	}
	if msg.From != nil {
		cmd.UserID = msg.From.ID
	}
	a.logger.Debug("inbound received",
		slog.Int64("chat_id", cmd.ChatID),
		slog.String("chat_type", cmd.ChatType),
		slog.String("command", cmd.Name),
	)
	reply := a.commands.Handle(ctx, cmd)
	if reply == "" {
		return
	}
	if err := a.SendText(ctx, cmd.ChatID, reply); err != nil {
		a.logger.Error("send reply failed", slog.Int64("chat_id", cmd.ChatID), slog.Any("error", err))
	}
}
