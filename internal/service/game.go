package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

// GameService orchestrates the game lifecycle: creation, joining, leaving
// and the game listings.
type GameService interface {
	CreateGame(ctx context.Context, userID int64, gameType, pieceCode string) (*entity.Game, error)
	JoinGame(ctx context.Context, userID, gameID int64) (*entity.Game, error)
	LeaveGame(ctx context.Context, userID int64) (*entity.Game, error)
	ListJoinableGames(ctx context.Context, userID int64) ([]*entity.Game, error)
	ListUserGames(ctx context.Context, userID int64, limit, offset int) ([]*entity.Game, error)
}

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id int64, withUsers bool) (*entity.Game, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id int64, withUsers bool) (*entity.Game, error)
	FindJoinable(ctx context.Context, userID int64) ([]*entity.Game, error)
	FindByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.Game, error)
	FindActiveByUser(ctx context.Context, userID int64) (*entity.Game, error)
	Save(ctx context.Context, game *entity.Game) error
	SaveTx(ctx context.Context, tx *sql.Tx, game *entity.Game) error
}

type gameService struct {
	userService UserService
	gameRepo    gameRepo
}

func NewGameService(userService UserService, gameRepo gameRepo) GameService {
	return &gameService{
		userService: userService,
		gameRepo:    gameRepo,
	}
}

func (that *gameService) CreateGame(ctx context.Context, userID int64, gameType, pieceCode string) (*entity.Game, error) {
	user, err := that.userService.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err = that.confirmNotInActiveGame(ctx, userID); err != nil {
		return nil, err
	}

	switch gameType {
	case "":
		gameType = entity.CompetitionType
	case entity.CompetitionType, entity.ComputerType:
	default:
		return nil, fmt.Errorf("%w: unknown game type %q", apperror.ErrInvalidState, gameType)
	}

	switch pieceCode {
	case "":
		pieceCode = entity.PieceX
	case entity.PieceX, entity.PieceO:
	default:
		return nil, fmt.Errorf("%w: unknown piece code %q", apperror.ErrInvalidState, pieceCode)
	}

	game := entity.NewGame(user, gameType, pieceCode)
	if err = that.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	return game, nil
}

func (that *gameService) JoinGame(ctx context.Context, userID, gameID int64) (*entity.Game, error) {
	user, err := that.userService.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Existence is checked before any state validation, so a missing game
	// is always reported as not found.
	game, err := that.gameRepo.GetByID(ctx, gameID, true)
	if err != nil {
		return nil, err
	}

	if game.UserOne.ID == userID {
		return nil, fmt.Errorf("%w: you can't join your own game", apperror.ErrInvalidState)
	}

	if game.UserTwo != nil && game.UserTwo.ID == userID {
		return nil, fmt.Errorf("%w: you already joined this game", apperror.ErrInvalidState)
	}

	if err = that.confirmNotInActiveGame(ctx, userID); err != nil {
		return nil, err
	}

	if game.IsInProgress() {
		return nil, fmt.Errorf("%w: game %d is already in progress", apperror.ErrInvalidState, gameID)
	}

	if !game.IsWaiting() {
		return nil, fmt.Errorf("%w: game is already finished", apperror.ErrInvalidState)
	}

	game.UserTwo = user
	game.Status = entity.StatusInProgress

	if err = that.gameRepo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	return game, nil
}

// LeaveGame aborts the caller's active game regardless of its prior
// non-terminal status and records the end time.
func (that *gameService) LeaveGame(ctx context.Context, userID int64) (*entity.Game, error) {
	if _, err := that.userService.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	game, err := that.gameRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	game.Status = entity.StatusAborted
	game.EndedAt = &now

	if err = that.gameRepo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	return game, nil
}

func (that *gameService) ListJoinableGames(ctx context.Context, userID int64) ([]*entity.Game, error) {
	if _, err := that.userService.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	games, err := that.gameRepo.FindJoinable(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joinable games: %w", err)
	}

	return games, nil
}

func (that *gameService) ListUserGames(ctx context.Context, userID int64, limit, offset int) ([]*entity.Game, error) {
	if _, err := that.userService.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	games, err := that.gameRepo.FindByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list user games: %w", err)
	}

	return games, nil
}

func (that *gameService) confirmNotInActiveGame(ctx context.Context, userID int64) error {
	_, err := that.gameRepo.FindActiveByUser(ctx, userID)
	if err == nil {
		return fmt.Errorf("%w: you are already in a game", apperror.ErrInvalidState)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("failed to look up active game: %w", err)
	}

	return nil
}
