package tictactoe

import (
	"math"

	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
)

// NoMove is returned by SelectBestMove when the board has no empty cell.
const NoMove = -1

// Scores are from the computer's (O's) point of view and do not depend on depth.
const (
	scoreWin  = 10
	scoreDraw = 0
	scoreLoss = -10
)

// SelectBestMove picks the cell for O with a full-depth minimax search.
// Equal scores keep the lowest index.
func SelectBestMove(board entity.Board) int {
	bestScore := math.MinInt
	move := NoMove

	for _, cell := range board.EmptyCells() {
		board[cell] = entity.PlayerO
		score := minimaxScore(&board, false)
		board[cell] = entity.EmptyCell

		if score > bestScore {
			bestScore = score
			move = cell
		}
	}

	return move
}

// minimaxScore scores the position with O maximizing and X minimizing.
// Every placement is undone before returning, so the board is left as it was found.
func minimaxScore(board *entity.Board, maximizing bool) int {
	switch EvaluateWinner(*board) {
	case entity.PlayerO:
		return scoreWin
	case entity.PlayerX:
		return scoreLoss
	}

	if board.IsFull() {
		return scoreDraw
	}

	mark := entity.PlayerX
	best := math.MaxInt
	if maximizing {
		mark = entity.PlayerO
		best = math.MinInt
	}

	for cell := range board {
		if board[cell] != entity.EmptyCell {
			continue
		}

		board[cell] = mark
		score := minimaxScore(board, !maximizing)
		board[cell] = entity.EmptyCell

		if maximizing {
			best = max(best, score)
		} else {
			best = min(best, score)
		}
	}

	return best
}
