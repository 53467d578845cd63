package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

type MoveRepository interface {
	Create(ctx context.Context, move *entity.Move) error
	CreateTx(ctx context.Context, tx *sql.Tx, move *entity.Move) error
	FindAllByGame(ctx context.Context, gameID int64) ([]*entity.Move, error)
	FindAllByGameTx(ctx context.Context, tx *sql.Tx, gameID int64) ([]*entity.Move, error)
	CountByGameAndUser(ctx context.Context, gameID, userID int64) (int, error)
}

type moveRepository struct {
	conn *sql.DB
}

func NewMoveRepository(conn *sql.DB) MoveRepository {
	return &moveRepository{
		conn: conn,
	}
}

func (that *moveRepository) Create(ctx context.Context, move *entity.Move) error {
	return createMove(ctx, that.conn, move)
}

func (that *moveRepository) CreateTx(ctx context.Context, tx *sql.Tx, move *entity.Move) error {
	return createMove(ctx, tx, move)
}

func createMove(ctx context.Context, q querier, move *entity.Move) error {
	query := `INSERT INTO moves (game_id, user_id, position, created_at) VALUES (?, ?, ?, ?)`

	if move.CreatedAt.IsZero() {
		move.CreatedAt = time.Now().UTC()
	}

	result, err := q.ExecContext(ctx, query, move.GameID, move.UserID, move.Position, move.CreatedAt)
	if err != nil {
		// The UNIQUE (game_id, position) constraint backs up the validator.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && errors.Is(sqliteErr.ExtendedCode, sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("%w: position %d", apperror.ErrPositionTaken, move.Position)
		}
		return fmt.Errorf("can't create move: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("can't read move id: %w", err)
	}
	move.ID = id

	return nil
}

func (that *moveRepository) FindAllByGame(ctx context.Context, gameID int64) ([]*entity.Move, error) {
	return findMoves(ctx, that.conn, gameID)
}

func (that *moveRepository) FindAllByGameTx(ctx context.Context, tx *sql.Tx, gameID int64) ([]*entity.Move, error) {
	return findMoves(ctx, tx, gameID)
}

// findMoves returns the game's moves in play order; created_at is the
// ordering key, id breaks ties within one timestamp.
func findMoves(ctx context.Context, q querier, gameID int64) ([]*entity.Move, error) {
	query := `SELECT id, game_id, user_id, position, created_at FROM moves
		WHERE game_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("can't query moves: %w", err)
	}
	defer rows.Close()

	var moves []*entity.Move
	for rows.Next() {
		var move entity.Move
		if err = rows.Scan(&move.ID, &move.GameID, &move.UserID, &move.Position, &move.CreatedAt); err != nil {
			return nil, fmt.Errorf("can't scan move: %w", err)
		}
		moves = append(moves, &move)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read moves: %w", err)
	}

	return moves, nil
}

func (that *moveRepository) CountByGameAndUser(ctx context.Context, gameID, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM moves WHERE game_id = ? AND user_id = ?`

	var count int
	if err := that.conn.QueryRowContext(ctx, query, gameID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("can't count moves: %w", err)
	}

	return count, nil
}
