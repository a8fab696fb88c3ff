package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/teleput/internal/channel"
	"github.com/memohai/teleput/internal/config"
	"github.com/memohai/teleput/internal/media"
)

const (
	telegramMaxMessageLength = 4096
	telegramMaxCaptionLength = 1024
)

// botClient is the subset of *tgbotapi.BotAPI used by the adapter.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// TelegramAdapter implements channel.Sender for Telegram and serves the key
// management commands.
type TelegramAdapter struct {
	logger   *slog.Logger
	cfg      config.TelegramConfig
	bot      botClient
	commands *Commands

	mu   sync.Mutex
	conn channel.Connection
}

// NewTelegramAdapter authenticates the bot token and returns a ready adapter.
func NewTelegramAdapter(log *slog.Logger, cfg config.TelegramConfig) (*TelegramAdapter, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if log == nil {
		log = slog.Default()
	}
	logger := log.With(slog.String("adapter", "telegram"))
	_ = tgbotapi.SetLogger(&slogBotLogger{log: logger})
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		logger.Error("create bot failed", slog.Any("error", err))
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	logger.Info("authorized", slog.String("username", bot.Self.UserName))
	return newTelegramAdapter(logger, cfg, bot), nil
}

func newTelegramAdapter(logger *slog.Logger, cfg config.TelegramConfig, bot botClient) *TelegramAdapter {
	if logger == nil {
		logger = slog.Default().With(slog.String("adapter", "telegram"))
	}
	return &TelegramAdapter{
		logger: logger,
		cfg:    cfg,
		bot:    bot,
	}
}

// SetCommands installs the command dispatcher used for inbound updates.
func (a *TelegramAdapter) SetCommands(commands *Commands) {
	a.commands = commands
}

// SendText sends a plain text message.
func (a *TelegramAdapter) SendText(ctx context.Context, chatID int64, text string) error {
	if err := checkTelegramText("text", text, telegramMaxMessageLength); err != nil {
		return err
	}
	return a.send(ctx, tgbotapi.NewMessage(chatID, text))
}

// SendFile streams an attachment using the Telegram method matching kind.
func (a *TelegramAdapter) SendFile(ctx context.Context, chatID int64, kind media.Kind, att channel.Attachment, caption string) error {
	if att.Reader == nil {
		return channel.NewDeliveryError(channel.ReasonUnavailable, fmt.Errorf("attachment reader is required"))
	}
	c, err := buildTelegramFile(chatID, kind, att, caption)
	if err != nil {
		return err
	}
	return a.send(ctx, c)
}

func (a *TelegramAdapter) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return channel.NewDeliveryError(channel.ReasonUnavailable, err)
	}
	if _, err := a.bot.Send(c); err != nil {
		return mapTelegramError(err)
	}
	return nil
}

func buildTelegramFile(chatID int64, kind media.Kind, att channel.Attachment, caption string) (tgbotapi.Chattable, error) {
	if err := checkTelegramText("caption", caption, telegramMaxCaptionLength); err != nil {
		return nil, err
	}
	file := tgbotapi.FileReader{Name: att.Name, Reader: att.Reader}
	switch kind {
	case media.KindDocument:
		document := tgbotapi.NewDocument(chatID, file)
		document.Caption = caption
		return document, nil
	case media.KindPhoto:
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = caption
		return photo, nil
	case media.KindVideo:
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = caption
		return video, nil
	case media.KindAudio:
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = caption
		return audio, nil
	case media.KindVoice:
		voice := tgbotapi.NewVoice(chatID, file)
		voice.Caption = caption
		return voice, nil
	case media.KindAnimation:
		animation := tgbotapi.NewAnimation(chatID, file)
		animation.Caption = caption
		return animation, nil
	default:
		return nil, channel.NewDeliveryError(channel.ReasonUnsupported, fmt.Errorf("unsupported attachment kind: %s", kind))
	}
}

// checkTelegramText rejects text Telegram would refuse or mangle. Limits
// count characters, not bytes; nothing is ever cut short.
func checkTelegramText(field, text string, limit int) error {
	if !utf8.ValidString(text) {
		return channel.NewDeliveryError(channel.ReasonInvalid, fmt.Errorf("%s is not valid UTF-8", field))
	}
	if n := utf8.RuneCountInString(text); n > limit {
		return channel.NewDeliveryError(channel.ReasonInvalid, fmt.Errorf("%s too long: %d characters, limit %d", field, n, limit))
	}
	return nil
}
