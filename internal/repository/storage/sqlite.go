package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
)

type SQLiteStorage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &SQLiteStorage{Connection: conn}, nil
}

func (that *SQLiteStorage) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_one_id INTEGER NOT NULL REFERENCES users(id),
			user_two_id INTEGER REFERENCES users(id),
			status TEXT NOT NULL,
			type TEXT NOT NULL,
			user_one_piece_code TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS moves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id INTEGER NOT NULL REFERENCES games(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			position INTEGER NOT NULL CHECK (position BETWEEN 1 AND 9),
			created_at TIMESTAMP NOT NULL,
			UNIQUE (game_id, position)
		)`,
	}

	for _, query := range queries {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error. Lock contention with a concurrent writer surfaces as a
// conflict so that callers can tell the loser of two overlapping
// transactions to retry.
func (that *SQLiteStorage) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := that.Connection.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (after: %w)", rbErr, err)
		}
		return markLockContention(err)
	}

	if err = tx.Commit(); err != nil {
		return markLockContention(fmt.Errorf("can't commit transaction: %w", err))
	}

	return nil
}

// markLockContention wraps SQLITE_BUSY and SQLITE_LOCKED failures with the
// conflict sentinel. The transaction that loses the write lock to an
// overlapping one is aborted by sqlite itself rather than by the version
// guard, and its caller still needs a retryable error.
func markLockContention(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", apperror.ErrConflict, err)
	}

	return err
}

func (that *SQLiteStorage) Close() error {
	if err := that.Connection.Close(); err != nil {
		return fmt.Errorf("can't close database: %w", err)
	}

	return nil
}
