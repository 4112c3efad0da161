package entity

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/rocketscienceinc/tictactoe-ai/internal/apperror"
)

// Mark is the content of a single board cell.
type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

const BoardSize = 9

// Lines holds every winning triple: rows, then columns, then the two diagonals.
var Lines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 3x3 grid in row-major order.
type Board [BoardSize]Mark

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// EmptyCells returns the indexes of free cells in ascending order.
func (that Board) EmptyCells() []int {
	return lo.Filter(lo.Range(BoardSize), func(cell int, _ int) bool {
		return that[cell] == EmptyCell
	})
}

// Validate checks that the board could have come out of alternating play with X first.
func (that Board) Validate() error {
	for i, cell := range that {
		if cell != EmptyCell && cell != PlayerX && cell != PlayerO {
			return fmt.Errorf("%w: cell %d holds %q", apperror.ErrInvalidBoard, i, cell)
		}
	}

	xCount := lo.Count(that[:], PlayerX)
	oCount := lo.Count(that[:], PlayerO)

	if oCount != xCount && oCount != xCount-1 {
		return fmt.Errorf("%w: %d X marks against %d O marks", apperror.ErrInvalidBoard, xCount, oCount)
	}

	return nil
}

// UnmarshalJSON accepts exactly BoardSize cells; null cells are read as empty.
func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []Mark
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("%w: expected %d cells, got %d", apperror.ErrInvalidBoard, BoardSize, len(cells))
	}

	copy(that[:], cells)

	return nil
}

// Opponent returns the other player's mark.
func (that Mark) Opponent() Mark {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}
