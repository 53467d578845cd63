// Package board holds the pure model of the 3x3 grid: the fixed winning
// lines, occupancy checks and the canonical position encoding. Positions
// are numbered 1..9 row-major; the (row, column) form is converted at the
// boundary and never stored.
package board

import (
	"errors"
	"fmt"
)

const (
	// Size is the number of cells on the board.
	Size = 9

	MinPosition = 1
	MaxPosition = 9

	rowLength = 3
)

var ErrInvalidPosition = errors.New("invalid board position")

// WinningLines are the 8 fixed triples of positions that constitute a win:
// 3 rows, 3 columns and 2 diagonals.
var WinningLines = [8][3]int{
	{1, 2, 3},
	{4, 5, 6},
	{7, 8, 9},
	{1, 4, 7},
	{2, 5, 8},
	{3, 6, 9},
	{1, 5, 9},
	{3, 5, 7},
}

// IsValidPosition reports whether position is one of the 9 cells.
func IsValidPosition(position int) bool {
	return position >= MinPosition && position <= MaxPosition
}

// IsWinningSet reports whether any winning line is fully contained in the
// given positions. A partial match never counts: all three cells of some
// line must be present.
func IsWinningSet(positions []int) bool {
	occupied := make(map[int]bool, len(positions))
	for _, position := range positions {
		occupied[position] = true
	}

	for _, line := range WinningLines {
		if occupied[line[0]] && occupied[line[1]] && occupied[line[2]] {
			return true
		}
	}

	return false
}

// IsFull reports whether every cell of the board is occupied.
func IsFull(occupiedCount int) bool {
	return occupiedCount == Size
}

// FromRowColumn converts a 1-based (row, column) pair to the canonical
// position index.
func FromRowColumn(row, column int) (int, error) {
	if row < 1 || row > rowLength || column < 1 || column > rowLength {
		return 0, fmt.Errorf("%w: row %d, column %d", ErrInvalidPosition, row, column)
	}

	return (row-1)*rowLength + column, nil
}

// ToRowColumn converts a canonical position index to its 1-based
// (row, column) pair.
func ToRowColumn(position int) (int, int, error) {
	if !IsValidPosition(position) {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}

	return (position-1)/rowLength + 1, (position-1)%rowLength + 1, nil
}
