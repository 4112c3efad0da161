package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-ai/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"

	PlayerTie = "-"
)

const (
	ModePVP = "pvp"
	ModePVC = "pvc"
)

var ErrUnknownGameStatus = errors.New("unknown game status")

// ComputerMark is the side the computer plays in pvc mode.
const ComputerMark = PlayerO

// Scoreboard counts finished rounds of a game session.
type Scoreboard struct {
	XWins int `json:"x_wins"`
	OWins int `json:"o_wins"`
	Draws int `json:"draws"`
}

type Game struct {
	ID     string     `json:"id"`
	Board  Board      `json:"board"`
	Winner string     `json:"winner"`
	Status string     `json:"status"`
	Turn   Mark       `json:"player_turn"`
	Mode   string     `json:"mode"`
	Score  Scoreboard `json:"score"`
}

func NewGame(id, mode string) *Game {
	return &Game{
		ID:     id,
		Board:  Board{},
		Turn:   PlayerX,
		Status: StatusOngoing,
		Mode:   mode,
	}
}

func IsValidMode(mode string) bool {
	return mode == ModePVP || mode == ModePVC
}

// UpdateGameState finishes the round when someone won or the board is full.
// The scoreboard is tallied only on the transition to finished.
func (that *Game) UpdateGameState(winner Mark) {
	if that.IsFinished() {
		return
	}

	switch {
	// one player wins
	case winner == PlayerX:
		that.finish(string(winner))
		that.Score.XWins++
	case winner == PlayerO:
		that.finish(string(winner))
		that.Score.OWins++
	// tie
	case that.Board.IsFull():
		that.finish(PlayerTie)
		that.Score.Draws++
	// game continue
	default:
		that.Status = StatusOngoing
	}
}

func (that *Game) finish(winner string) {
	that.Winner = winner
	that.Status = StatusFinished
	that.Turn = EmptyCell
}

// Restart clears the board for the next round, keeping the scoreboard.
func (that *Game) Restart() {
	that.Board = Board{}
	that.Winner = ""
	that.Turn = PlayerX
	that.Status = StatusOngoing
}

func (that *Game) ResetScores() {
	that.Score = Scoreboard{}
	that.Restart()
}

func (that *Game) SetMode(mode string) error {
	if !IsValidMode(mode) {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMode, mode)
	}

	that.Mode = mode

	return nil
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWithComputer() bool {
	return that.Mode == ModePVC
}

// IsComputerTurn reports whether the game is waiting on the computer's move.
func (that *Game) IsComputerTurn() bool {
	return that.IsWithComputer() && that.IsOngoing() && that.Turn == ComputerMark
}

func (that *Game) ConfirmOngoingState() error {
	switch {
	case that.IsFinished():
		return apperror.ErrGameFinished
	case that.IsOngoing():
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}
