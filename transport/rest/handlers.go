package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/board"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

type GameHandler interface {
	CreateGame(ctx echo.Context) error
	ListJoinable(ctx echo.Context) error
	ListUserGames(ctx echo.Context) error
	JoinGame(ctx echo.Context) error
	LeaveGame(ctx echo.Context) error
	SubmitMove(ctx echo.Context) error
	ListMoves(ctx echo.Context) error
	IsUserTurn(ctx echo.Context) error
}

type gameService interface {
	CreateGame(ctx context.Context, userID int64, gameType, pieceCode string) (*entity.Game, error)
	JoinGame(ctx context.Context, userID, gameID int64) (*entity.Game, error)
	LeaveGame(ctx context.Context, userID int64) (*entity.Game, error)
	ListJoinableGames(ctx context.Context, userID int64) ([]*entity.Game, error)
	ListUserGames(ctx context.Context, userID int64, limit, offset int) ([]*entity.Game, error)
}

type gamePlayService interface {
	SubmitMove(ctx context.Context, userID, gameID int64, position int) (*entity.Move, error)
	ListMoves(ctx context.Context, gameID int64) ([]*entity.Move, error)
	IsUserTurn(ctx context.Context, gameID, userID int64) (bool, error)
}

type gameHandler struct {
	logger *slog.Logger

	game     gameService
	gamePlay gamePlayService
}

func NewGameHandler(logger *slog.Logger, game gameService, gamePlay gamePlayService) GameHandler {
	return &gameHandler{
		logger:   logger.With("component", "game-handler"),
		game:     game,
		gamePlay: gamePlay,
	}
}

type createGameRequest struct {
	GameType  string `json:"game_type"`
	PieceCode string `json:"piece_code"`
}

type moveRequest struct {
	Position int `json:"position"`
	Row      int `json:"row"`
	Column   int `json:"column"`
}

func (that *gameHandler) CreateGame(ctx echo.Context) error {
	var req createGameRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	game, err := that.game.CreateGame(ctx.Request().Context(), currentUserID(ctx), req.GameType, req.PieceCode)
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, game)
}

func (that *gameHandler) ListJoinable(ctx echo.Context) error {
	games, err := that.game.ListJoinableGames(ctx.Request().Context(), currentUserID(ctx))
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, games)
}

func (that *gameHandler) ListUserGames(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	offset, _ := strconv.Atoi(ctx.QueryParam("offset"))

	games, err := that.game.ListUserGames(ctx.Request().Context(), currentUserID(ctx), limit, offset)
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, games)
}

func (that *gameHandler) JoinGame(ctx echo.Context) error {
	gameID, err := parseGameID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid game id"))
	}

	game, err := that.game.JoinGame(ctx.Request().Context(), currentUserID(ctx), gameID)
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, game)
}

func (that *gameHandler) LeaveGame(ctx echo.Context) error {
	game, err := that.game.LeaveGame(ctx.Request().Context(), currentUserID(ctx))
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, game)
}

func (that *gameHandler) SubmitMove(ctx echo.Context) error {
	gameID, err := parseGameID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid game id"))
	}

	var req moveRequest
	if err = ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	// The canonical encoding is the 1-9 position; a (row, column) pair is
	// converted here and never travels further.
	position := req.Position
	if position == 0 && (req.Row != 0 || req.Column != 0) {
		position, err = board.FromRowColumn(req.Row, req.Column)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, errorBody(err.Error()))
		}
	}

	move, err := that.gamePlay.SubmitMove(ctx.Request().Context(), currentUserID(ctx), gameID, position)
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, move)
}

func (that *gameHandler) ListMoves(ctx echo.Context) error {
	gameID, err := parseGameID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid game id"))
	}

	moves, err := that.gamePlay.ListMoves(ctx.Request().Context(), gameID)
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, moves)
}

func (that *gameHandler) IsUserTurn(ctx echo.Context) error {
	gameID, err := parseGameID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid game id"))
	}

	yourTurn, err := that.gamePlay.IsUserTurn(ctx.Request().Context(), gameID, currentUserID(ctx))
	if err != nil {
		return that.writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]bool{"your_turn": yourTurn})
}

func (that *gameHandler) writeError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return ctx.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperror.ErrConflict):
		return ctx.JSON(http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperror.ErrInvalidState),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrPositionTaken),
		errors.Is(err, board.ErrInvalidPosition):
		return ctx.JSON(http.StatusBadRequest, errorBody(err.Error()))
	default:
		that.logger.Error("request failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, errorBody("internal server error"))
	}
}

func parseGameID(ctx echo.Context) (int64, error) {
	return strconv.ParseInt(ctx.Param("id"), 10, 64)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
