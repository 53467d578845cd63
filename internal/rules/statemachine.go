package rules

import (
	"github.com/playgridhq/tictactoe-backend/internal/board"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

// DeriveStatus recomputes the authoritative game status from the complete
// move history. It is a pure function of (game, history): replaying it
// after a partial failure always yields the same answer.
//
// The win check for user one strictly precedes user two. Under strict
// alternation both players can never complete a line in the same history,
// so the ordering only settles which side a mixed history is attributed
// to, never an actual tie between two winners.
func DeriveStatus(game *entity.Game, history []*entity.Move) string {
	var userOnePositions, userTwoPositions []int

	for _, move := range history {
		if game.UserOne != nil && move.UserID == game.UserOne.ID {
			userOnePositions = append(userOnePositions, move.Position)
		} else {
			userTwoPositions = append(userTwoPositions, move.Position)
		}
	}

	if board.IsWinningSet(userOnePositions) {
		return entity.StatusUserOneWins
	}

	if board.IsWinningSet(userTwoPositions) {
		return entity.StatusUserTwoWins
	}

	if board.IsFull(len(history)) {
		return entity.StatusDraw
	}

	// Defensive: should not occur once a second user has joined.
	if game.Type == entity.CompetitionType && game.UserTwo == nil {
		return entity.StatusWaitsForUser
	}

	return entity.StatusInProgress
}
