package bindings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memohai/teleput/internal/db/sqlc"
)

const (
	pgUniqueViolation      = "23505"
	pgChatIDConstraintName = "bindings_chat_id_key"
	pgTokenConstraintName  = "bindings_token_key"
)

// TxBeginner starts a transaction. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores bindings in postgres through the generated queries.
type PostgresRepository struct {
	queries *sqlc.Queries
	txs     TxBeginner
}

// NewPostgresRepository creates a repository. txs is used for renewals; pass
// the same pool that backs queries.
func NewPostgresRepository(queries *sqlc.Queries, txs TxBeginner) *PostgresRepository {
	return &PostgresRepository{queries: queries, txs: txs}
}

func (r *PostgresRepository) GetByChat(ctx context.Context, chatID int64) (Binding, error) {
	row, err := r.queries.GetBindingByChat(ctx, chatID)
	if err != nil {
		return Binding{}, mapPostgresError(err)
	}
	return toBinding(row), nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (Binding, error) {
	row, err := r.queries.GetBindingByToken(ctx, token)
	if err != nil {
		return Binding{}, mapPostgresError(err)
	}
	return toBinding(row), nil
}

func (r *PostgresRepository) Insert(ctx context.Context, chatID int64, token string) (Binding, error) {
	row, err := r.queries.CreateBinding(ctx, sqlc.CreateBindingParams{ChatID: chatID, Token: token})
	if err != nil {
		return Binding{}, mapPostgresError(err)
	}
	return toBinding(row), nil
}

func (r *PostgresRepository) Replace(ctx context.Context, chatID int64, token string) (Binding, error) {
	if r.txs == nil {
		return Binding{}, fmt.Errorf("postgres transactions not configured")
	}
	tx, err := r.txs.Begin(ctx)
	if err != nil {
		return Binding{}, fmt.Errorf("begin renewal: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	q := r.queries.WithTx(tx)
	if _, err := q.DeleteBindingByChat(ctx, chatID); err != nil {
		return Binding{}, mapPostgresError(err)
	}
	row, err := q.CreateBinding(ctx, sqlc.CreateBindingParams{ChatID: chatID, Token: token})
	if err != nil {
		return Binding{}, mapPostgresError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Binding{}, mapPostgresError(err)
	}
	return toBinding(row), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, chatID int64) error {
	if _, err := r.queries.DeleteBindingByChat(ctx, chatID); err != nil {
		return mapPostgresError(err)
	}
	return nil
}

// Count returns the number of stored bindings.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountBindings(ctx)
}

func toBinding(row sqlc.Binding) Binding {
	b := Binding{ChatID: row.ChatID, Token: row.Token}
	if row.CreatedAt.Valid {
		b.CreatedAt = row.CreatedAt.Time
	}
	return b
}

func mapPostgresError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBindingNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case pgTokenConstraintName:
			return fmt.Errorf("%w: %s", ErrTokenTaken, pgErr.Message)
		case pgChatIDConstraintName:
			return fmt.Errorf("%w: %s", ErrConversationConflict, pgErr.Message)
		}
	}
	return err
}
