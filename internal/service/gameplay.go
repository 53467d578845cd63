package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/playgridhq/tictactoe-backend/internal/entity"
	"github.com/playgridhq/tictactoe-backend/internal/rules"
)

// GamePlayService handles move submission and the move-centric reads.
type GamePlayService interface {
	SubmitMove(ctx context.Context, userID, gameID int64, position int) (*entity.Move, error)
	ListMoves(ctx context.Context, gameID int64) ([]*entity.Move, error)
	IsUserTurn(ctx context.Context, gameID, userID int64) (bool, error)
}

type moveRepo interface {
	Create(ctx context.Context, move *entity.Move) error
	CreateTx(ctx context.Context, tx *sql.Tx, move *entity.Move) error
	FindAllByGame(ctx context.Context, gameID int64) ([]*entity.Move, error)
	FindAllByGameTx(ctx context.Context, tx *sql.Tx, gameID int64) ([]*entity.Move, error)
	CountByGameAndUser(ctx context.Context, gameID, userID int64) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type gamePlayService struct {
	logger *slog.Logger

	userService UserService
	gameRepo    gameRepo
	moveRepo    moveRepo
	txRunner    txRunner
}

func NewGamePlayService(logger *slog.Logger, userService UserService, gameRepo gameRepo, moveRepo moveRepo, txRunner txRunner) GamePlayService {
	return &gamePlayService{
		logger:      logger,
		userService: userService,
		gameRepo:    gameRepo,
		moveRepo:    moveRepo,
		txRunner:    txRunner,
	}
}

// SubmitMove validates and records a move, then recomputes the game status
// from the full history. Validation, the move insert and the status update
// share one transaction: a move is never observable without the status it
// produced. The version guard on the game row rejects the loser of two
// concurrent submissions with a conflict.
func (that *gamePlayService) SubmitMove(ctx context.Context, userID, gameID int64, position int) (*entity.Move, error) {
	log := that.logger.With("method", "SubmitMove", "gameID", gameID, "userID", userID)

	if _, err := that.userService.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	var move *entity.Move

	err := that.txRunner.WithTx(ctx, func(tx *sql.Tx) error {
		game, err := that.gameRepo.GetByIDTx(ctx, tx, gameID, true)
		if err != nil {
			return err
		}

		history, err := that.moveRepo.FindAllByGameTx(ctx, tx, gameID)
		if err != nil {
			return err
		}

		if err = rules.ValidateMove(game, history, userID, position); err != nil {
			return err
		}

		move = &entity.Move{
			GameID:    gameID,
			UserID:    userID,
			Position:  position,
			CreatedAt: time.Now().UTC(),
		}

		if err = that.moveRepo.CreateTx(ctx, tx, move); err != nil {
			return err
		}

		game.Status = rules.DeriveStatus(game, append(history, move))
		if game.IsTerminal() {
			endedAt := move.CreatedAt
			game.EndedAt = &endedAt
		}

		// Saved on every move, terminal or not: the version bump is what
		// serializes concurrent submissions against the same game.
		if err = that.gameRepo.SaveTx(ctx, tx, game); err != nil {
			return err
		}

		move.GameStatus = game.Status
		move.PieceCode = game.PieceOf(userID)

		return nil
	})
	if err != nil {
		return nil, err
	}

	if move.GameStatus != entity.StatusInProgress {
		log.Info("game reached terminal status", "status", move.GameStatus)
	}

	return move, nil
}

// ListMoves returns the game's moves in play order, each annotated with
// the piece code its author plays.
func (that *gamePlayService) ListMoves(ctx context.Context, gameID int64) ([]*entity.Move, error) {
	game, err := that.gameRepo.GetByID(ctx, gameID, true)
	if err != nil {
		return nil, err
	}

	moves, err := that.moveRepo.FindAllByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list moves: %w", err)
	}

	for _, move := range moves {
		move.PieceCode = game.PieceOf(move.UserID)
	}

	return moves, nil
}

func (that *gamePlayService) IsUserTurn(ctx context.Context, gameID, userID int64) (bool, error) {
	game, err := that.gameRepo.GetByID(ctx, gameID, true)
	if err != nil {
		return false, err
	}

	history, err := that.moveRepo.FindAllByGame(ctx, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to list moves: %w", err)
	}

	next, ok := rules.NextTurnUserID(game, history)

	return ok && next == userID, nil
}
