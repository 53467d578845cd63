// Package rules implements the move validator and the game state machine.
// Both operate on a loaded game and its full ordered move history; neither
// performs any I/O.
package rules

import (
	"fmt"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/board"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

// ValidateMove decides whether userID may play position on the given game,
// judged against the full move history. Checks fail fast, each with its
// own error; nothing is mutated on rejection.
func ValidateMove(game *entity.Game, history []*entity.Move, userID int64, position int) error {
	if !game.HasBothUsers() {
		return fmt.Errorf("%w: game requires two players", apperror.ErrInvalidState)
	}

	if !game.IsInProgress() {
		switch game.Status {
		case entity.StatusWaitsForUser:
			return fmt.Errorf("%w: game has not started yet", apperror.ErrInvalidState)
		case entity.StatusAborted:
			return fmt.Errorf("%w: game has been aborted", apperror.ErrInvalidState)
		default:
			return fmt.Errorf("%w: game is already over", apperror.ErrInvalidState)
		}
	}

	if !game.IsParticipant(userID) {
		return fmt.Errorf("%w: user %d does not play in this game", apperror.ErrInvalidState, userID)
	}

	if !board.IsValidPosition(position) {
		return fmt.Errorf("%w: position %d", apperror.ErrInvalidState, position)
	}

	if len(history) == 0 {
		if game.UserOne.ID != userID {
			return fmt.Errorf("%w: user one starts the game", apperror.ErrNotYourTurn)
		}
	} else if history[len(history)-1].UserID == userID {
		return apperror.ErrNotYourTurn
	}

	for _, move := range history {
		if move.Position == position {
			return fmt.Errorf("%w: position %d", apperror.ErrPositionTaken, position)
		}
	}

	return nil
}

// NextTurnUserID returns the user whose move the game is waiting for, or
// false when the game is not accepting moves.
func NextTurnUserID(game *entity.Game, history []*entity.Move) (int64, bool) {
	if !game.IsInProgress() || !game.HasBothUsers() {
		return 0, false
	}

	if len(history) == 0 {
		return game.UserOne.ID, true
	}

	last := history[len(history)-1]
	if last.UserID == game.UserOne.ID {
		return game.UserTwo.ID, true
	}

	return game.UserOne.ID, true
}
