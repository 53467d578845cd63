package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id int64, withUsers bool) (*entity.Game, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id int64, withUsers bool) (*entity.Game, error)
	FindJoinable(ctx context.Context, userID int64) ([]*entity.Game, error)
	FindByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.Game, error)
	FindActiveByUser(ctx context.Context, userID int64) (*entity.Game, error)
	Save(ctx context.Context, game *entity.Game) error
	SaveTx(ctx context.Context, tx *sql.Tx, game *entity.Game) error
}

const gameColumns = `g.id, g.user_one_id, g.user_two_id, g.status, g.type,
	g.user_one_piece_code, g.created_at, g.ended_at, g.version`

const gameUserColumns = gameColumns + `, u1.username, COALESCE(u2.username, '')`

const gameJoins = ` FROM games g
	JOIN users u1 ON u1.id = g.user_one_id
	LEFT JOIN users u2 ON u2.id = g.user_two_id`

type gameRepository struct {
	conn *sql.DB
}

func NewGameRepository(conn *sql.DB) GameRepository {
	return &gameRepository{
		conn: conn,
	}
}

func (that *gameRepository) Create(ctx context.Context, game *entity.Game) error {
	query := `INSERT INTO games (user_one_id, user_two_id, status, type, user_one_piece_code, created_at, version)
		VALUES (?, NULL, ?, ?, ?, ?, 0)`

	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now().UTC()
	}

	result, err := that.conn.ExecContext(ctx, query,
		game.UserOne.ID, game.Status, game.Type, game.UserOnePieceCode, game.CreatedAt)
	if err != nil {
		return fmt.Errorf("can't create game: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("can't read game id: %w", err)
	}
	game.ID = id
	game.Version = 0

	return nil
}

func (that *gameRepository) GetByID(ctx context.Context, id int64, withUsers bool) (*entity.Game, error) {
	return getGame(ctx, that.conn, id, withUsers)
}

func (that *gameRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id int64, withUsers bool) (*entity.Game, error) {
	return getGame(ctx, tx, id, withUsers)
}

func getGame(ctx context.Context, q querier, id int64, withUsers bool) (*entity.Game, error) {
	query := `SELECT ` + gameUserColumns + gameJoins + ` WHERE g.id = ?`

	game, err := scanGame(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if !withUsers {
		trimUsers(game)
	}

	return game, nil
}

func (that *gameRepository) FindJoinable(ctx context.Context, userID int64) ([]*entity.Game, error) {
	query := `SELECT ` + gameUserColumns + gameJoins + `
		WHERE g.status = ? AND g.type = ? AND g.user_one_id != ?
		ORDER BY g.created_at DESC`

	return that.queryGames(ctx, query, entity.StatusWaitsForUser, entity.CompetitionType, userID)
}

func (that *gameRepository) FindByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.Game, error) {
	query := `SELECT ` + gameUserColumns + gameJoins + `
		WHERE g.user_one_id = ? OR g.user_two_id = ?
		ORDER BY g.created_at DESC`

	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	query += ` LIMIT ? OFFSET ?`

	return that.queryGames(ctx, query, userID, userID, limit, offset)
}

func (that *gameRepository) FindActiveByUser(ctx context.Context, userID int64) (*entity.Game, error) {
	query := `SELECT ` + gameUserColumns + gameJoins + `
		WHERE (g.user_one_id = ? OR g.user_two_id = ?) AND g.status IN (?, ?)
		ORDER BY g.created_at DESC LIMIT 1`

	row := that.conn.QueryRowContext(ctx, query, userID, userID,
		entity.StatusWaitsForUser, entity.StatusInProgress)

	return scanGame(row)
}

// Save persists mutable game fields with an optimistic version guard: a
// concurrent writer that got there first leaves zero matching rows.
func (that *gameRepository) Save(ctx context.Context, game *entity.Game) error {
	return saveGame(ctx, that.conn, game)
}

func (that *gameRepository) SaveTx(ctx context.Context, tx *sql.Tx, game *entity.Game) error {
	return saveGame(ctx, tx, game)
}

func saveGame(ctx context.Context, q querier, game *entity.Game) error {
	query := `UPDATE games SET user_two_id = ?, status = ?, ended_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	var userTwoID any
	if game.UserTwo != nil {
		userTwoID = game.UserTwo.ID
	}

	var endedAt any
	if game.EndedAt != nil {
		endedAt = *game.EndedAt
	}

	result, err := q.ExecContext(ctx, query, userTwoID, game.Status, endedAt, game.ID, game.Version)
	if err != nil {
		return fmt.Errorf("can't save game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: game %d", apperror.ErrConflict, game.ID)
	}

	game.Version++

	return nil
}

func (that *gameRepository) queryGames(ctx context.Context, query string, args ...any) ([]*entity.Game, error) {
	rows, err := that.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("can't query games: %w", err)
	}
	defer rows.Close()

	var games []*entity.Game
	for rows.Next() {
		game, err := scanGameRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read games: %w", err)
	}

	return games, nil
}

func scanGame(row *sql.Row) (*entity.Game, error) {
	game, err := scanGameRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: game", apperror.ErrNotFound)
	}

	return game, err
}

func scanGameRow(scan func(dest ...any) error) (*entity.Game, error) {
	var (
		game            entity.Game
		userOneID       int64
		userTwoID       sql.NullInt64
		endedAt         sql.NullTime
		userOneUsername string
		userTwoUsername string
	)

	err := scan(&game.ID, &userOneID, &userTwoID, &game.Status, &game.Type,
		&game.UserOnePieceCode, &game.CreatedAt, &endedAt, &game.Version,
		&userOneUsername, &userTwoUsername)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("can't scan game: %w", err)
	}

	game.UserOne = &entity.User{ID: userOneID, Username: userOneUsername}
	if userTwoID.Valid {
		game.UserTwo = &entity.User{ID: userTwoID.Int64, Username: userTwoUsername}
	}
	if endedAt.Valid {
		t := endedAt.Time
		game.EndedAt = &t
	}

	return &game, nil
}

func trimUsers(game *entity.Game) {
	if game.UserOne != nil {
		game.UserOne = &entity.User{ID: game.UserOne.ID}
	}
	if game.UserTwo != nil {
		game.UserTwo = &entity.User{ID: game.UserTwo.ID}
	}
}
