package tictactoe

import "github.com/rocketscienceinc/tictactoe-ai/internal/entity"

// EvaluateWinner returns the mark that fills a whole line, or entity.EmptyCell if there is none.
// A draw and an unfinished game look the same here; check entity.Board.IsFull to tell them apart.
func EvaluateWinner(board entity.Board) entity.Mark {
	for _, line := range entity.Lines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a
		}
	}

	return entity.EmptyCell
}
