package bindings

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound indicates no conversation is bound to the presented key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrBindingNotFound indicates the conversation has no binding.
	ErrBindingNotFound = errors.New("binding not found")
	// ErrTokenTaken indicates the token is already bound to another conversation.
	ErrTokenTaken = errors.New("token already bound")
	// ErrConversationConflict indicates a concurrent writer bound the same conversation.
	ErrConversationConflict = errors.New("conversation already bound")
	// ErrKeyExhausted indicates every insert attempt collided with an existing token.
	ErrKeyExhausted = errors.New("unable to allocate a unique key")
)

// MaxInsertAttempts bounds how many fresh tokens are tried per upsert.
const MaxInsertAttempts = 3

// Binding is the persisted (conversation, token) pair.
type Binding struct {
	ChatID    int64
	Token     string
	CreatedAt time.Time
}

// Repository persists bindings. Implementations translate storage unique
// violations to ErrTokenTaken and ErrConversationConflict, and missing rows
// to ErrBindingNotFound.
type Repository interface {
	GetByChat(ctx context.Context, chatID int64) (Binding, error)
	GetByToken(ctx context.Context, token string) (Binding, error)
	Insert(ctx context.Context, chatID int64, token string) (Binding, error)
	// Replace deletes any binding of chatID and inserts the new one in a single transaction.
	Replace(ctx context.Context, chatID int64, token string) (Binding, error)
	Delete(ctx context.Context, chatID int64) error
}

// KeyGenerator produces candidate tokens.
type KeyGenerator interface {
	Generate() (string, error)
}

// IssueObserver is notified whenever a new token is persisted.
type IssueObserver interface {
	KeyIssued(renew bool)
}
