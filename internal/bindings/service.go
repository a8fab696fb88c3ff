package bindings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service owns every conversation/token binding.
type Service struct {
	repo     Repository
	keys     KeyGenerator
	observer IssueObserver
	logger   *slog.Logger
}

// NewService creates a binding service.
func NewService(log *slog.Logger, repo Repository, keys KeyGenerator) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:   repo,
		keys:   keys,
		logger: log.With(slog.String("service", "bindings")),
	}
}

// SetObserver registers an observer for issued keys.
func (s *Service) SetObserver(o IssueObserver) {
	s.observer = o
}

// UpsertForConversation returns the key bound to chatID, creating one if
// needed. With renew set, any existing binding is replaced by a fresh key so
// the old key stops resolving as soon as the new one is valid.
func (s *Service) UpsertForConversation(ctx context.Context, chatID int64, renew bool) (string, error) {
	if !renew {
		existing, err := s.repo.GetByChat(ctx, chatID)
		if err == nil {
			return existing.Token, nil
		}
		if !errors.Is(err, ErrBindingNotFound) {
			return "", fmt.Errorf("lookup binding: %w", err)
		}
	}

	write := s.repo.Insert
	if renew {
		write = s.repo.Replace
	}
	for attempt := 1; attempt <= MaxInsertAttempts; attempt++ {
		token, err := s.keys.Generate()
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		binding, err := write(ctx, chatID, token)
		if err == nil {
			s.logger.Info("key issued", slog.Int64("chat_id", chatID), slog.Bool("renew", renew), slog.Int("attempt", attempt))
			if s.observer != nil {
				s.observer.KeyIssued(renew)
			}
			return binding.Token, nil
		}
		if !errors.Is(err, ErrTokenTaken) {
			return "", err
		}
		s.logger.Warn("generated key collided", slog.Int64("chat_id", chatID), slog.Int("attempt", attempt))
	}
	return "", fmt.Errorf("%w after %d attempts", ErrKeyExhausted, MaxInsertAttempts)
}

// Resolve returns the conversation bound to token.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrKeyNotFound
	}
	binding, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrBindingNotFound) {
			return 0, ErrKeyNotFound
		}
		return 0, fmt.Errorf("resolve key: %w", err)
	}
	return binding.ChatID, nil
}

// Get returns the binding of chatID.
func (s *Service) Get(ctx context.Context, chatID int64) (Binding, error) {
	return s.repo.GetByChat(ctx, chatID)
}

// Remove deletes the binding of chatID. Removing an absent binding is not an error.
func (s *Service) Remove(ctx context.Context, chatID int64) error {
	if err := s.repo.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("remove binding: %w", err)
	}
	s.logger.Info("binding removed", slog.Int64("chat_id", chatID))
	return nil
}
