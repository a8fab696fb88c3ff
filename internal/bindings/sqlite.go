package bindings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository stores bindings in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) GetByChat(ctx context.Context, chatID int64) (Binding, error) {
	return scanSQLiteBinding(r.db.QueryRowContext(ctx,
		`SELECT chat_id, token, created_at FROM bindings WHERE chat_id = ?`, chatID))
}

func (r *SQLiteRepository) GetByToken(ctx context.Context, token string) (Binding, error) {
	return scanSQLiteBinding(r.db.QueryRowContext(ctx,
		`SELECT chat_id, token, created_at FROM bindings WHERE token = ?`, token))
}

func (r *SQLiteRepository) Insert(ctx context.Context, chatID int64, token string) (Binding, error) {
	return insertSQLite(ctx, r.db, chatID, token)
}

func (r *SQLiteRepository) Replace(ctx context.Context, chatID int64, token string) (Binding, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Binding{}, fmt.Errorf("begin renewal: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM bindings WHERE chat_id = ?`, chatID); err != nil {
		return Binding{}, err
	}
	binding, err := insertSQLite(ctx, tx, chatID, token)
	if err != nil {
		return Binding{}, err
	}
	if err := tx.Commit(); err != nil {
		return Binding{}, fmt.Errorf("commit renewal: %w", err)
	}
	return binding, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bindings WHERE chat_id = ?`, chatID)
	return err
}

// Count returns the number of stored bindings.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bindings`).Scan(&n)
	return n, err
}

func insertSQLite(ctx context.Context, q sqliteQuerier, chatID int64, token string) (Binding, error) {
	binding, err := scanSQLiteBinding(q.QueryRowContext(ctx,
		`INSERT INTO bindings (chat_id, token) VALUES (?, ?) RETURNING chat_id, token, created_at`, chatID, token))
	if err != nil {
		return Binding{}, mapSQLiteError(err)
	}
	return binding, nil
}

func scanSQLiteBinding(row *sql.Row) (Binding, error) {
	var (
		b       Binding
		created int64
	)
	if err := row.Scan(&b.ChatID, &b.Token, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Binding{}, ErrBindingNotFound
		}
		return Binding{}, err
	}
	b.CreatedAt = time.Unix(created, 0).UTC()
	return b, nil
}

func mapSQLiteError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	msg := sqliteErr.Error()
	if sqliteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE && !strings.Contains(msg, "UNIQUE") {
		return err
	}
	switch {
	case strings.Contains(msg, "bindings.token"):
		return fmt.Errorf("%w: %s", ErrTokenTaken, msg)
	case strings.Contains(msg, "bindings.chat_id"):
		return fmt.Errorf("%w: %s", ErrConversationConflict, msg)
	}
	return err
}
