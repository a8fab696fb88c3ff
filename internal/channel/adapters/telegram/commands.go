package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	commandStart = "start"
	commandNew   = "new"
	commandStop  = "stop"

	replyUsage      = "Use /start to see your key or /new to generate a new one."
	replyFailure    = "Something went wrong, please try again later."
	replyAdminsOnly = "Only chat administrators can manage the key of this chat."
)

// KeyService issues and revokes relay keys for conversations.
type KeyService interface {
	UpsertForConversation(ctx context.Context, chatID int64, renew bool) (string, error)
	Remove(ctx context.Context, chatID int64) error
}

// Command is one inbound bot command.
type Command struct {
	ChatID   int64
	ChatType string
	UserID   int64
	// Name is the command without the leading slash and bot mention; empty for
	// plain messages.
	Name string
}

// IsGroup reports whether the command came from a group conversation.
func (c Command) IsGroup() bool {
	return c.ChatType == "group" || c.ChatType == "supergroup"
}

// CommandHandler produces the reply text for a command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, cmd Command) (string, error)

// CommandMiddleware wraps a CommandHandler.
type CommandMiddleware func(next CommandHandler) CommandHandler

// Commands dispatches /start, /new and /stop to the key service.
type Commands struct {
	logger  *slog.Logger
	keys    KeyService
	handler CommandHandler
}

// NewCommands builds a dispatcher; middlewares run in registration order.
func NewCommands(log *slog.Logger, keys KeyService, middlewares ...CommandMiddleware) *Commands {
	if log == nil {
		log = slog.Default()
	}
	c := &Commands{
		logger: log.With(slog.String("service", "telegram_commands")),
		keys:   keys,
	}
	handler := c.dispatch
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	c.handler = handler
	return c
}

// Handle runs the middleware chain and returns the reply for cmd. Failures
// are logged and answered with a generic message.
func (c *Commands) Handle(ctx context.Context, cmd Command) string {
	reply, err := c.handler(ctx, cmd)
	if err != nil {
		c.logger.Error("command failed",
			slog.String("command", cmd.Name),
			slog.Int64("chat_id", cmd.ChatID),
			slog.Any("error", err),
		)
		return replyFailure
	}
	return reply
}

func (c *Commands) dispatch(ctx context.Context, cmd Command) (string, error) {
	switch strings.ToLower(cmd.Name) {
	case commandStart:
		key, err := c.keys.UpsertForConversation(ctx, cmd.ChatID, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Your key is: %s", key), nil
	case commandNew:
		key, err := c.keys.UpsertForConversation(ctx, cmd.ChatID, true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Your new key is: %s\n\nNow update it in your tools and extensions.", key), nil
	case commandStop:
		if err := c.keys.Remove(ctx, cmd.ChatID); err != nil {
			return "", err
		}
		return "You have been deleted. Click /start to continue using the bot.", nil
	case "":
		// Plain group chatter is not addressed to the bot.
		if cmd.IsGroup() {
			return "", nil
		}
		return replyUsage, nil
	default:
		return replyUsage, nil
	}
}

// AdminChecker reports whether a user administers a chat.
type AdminChecker interface {
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// RequireGroupAdmin rejects key commands sent to groups by members who are
// not administrators. Private chats and channels pass through.
func RequireGroupAdmin(checker AdminChecker) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx context.Context, cmd Command) (string, error) {
			if !cmd.IsGroup() || !isKeyCommand(cmd.Name) {
				return next(ctx, cmd)
			}
			if cmd.UserID == 0 {
				return replyAdminsOnly, nil
			}
			ok, err := checker.IsChatAdmin(ctx, cmd.ChatID, cmd.UserID)
			if err != nil {
				return "", fmt.Errorf("check chat admin: %w", err)
			}
			if !ok {
				return replyAdminsOnly, nil
			}
			return next(ctx, cmd)
		}
	}
}

func isKeyCommand(name string) bool {
	switch strings.ToLower(name) {
	case commandStart, commandNew, commandStop:
		return true
	default:
		return false
	}
}
