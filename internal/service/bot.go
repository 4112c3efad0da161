package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ai/internal/tictactoe"
)

var (
	ErrNotBotTurn       = errors.New("it's not the computer's turn")
	ErrNoAvailableMoves = errors.New("no available moves")
)

type BotService interface {
	Wait(ctx context.Context) error
	MakeTurn(game *entity.Game) (int, error)
}

type botService struct {
	delay time.Duration
}

// NewBotService creates the computer player. Delay only paces the reply, it never affects the chosen cell.
func NewBotService(delay time.Duration) BotService {
	return &botService{
		delay: delay,
	}
}

// Wait blocks for the pacing delay or until ctx is done.
func (that *botService) Wait(ctx context.Context) error {
	if that.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(that.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MakeTurn plays the minimax move for the computer and returns the chosen cell.
func (that *botService) MakeTurn(game *entity.Game) (int, error) {
	if !game.IsComputerTurn() {
		return tictactoe.NoMove, ErrNotBotTurn
	}

	cell := tictactoe.SelectBestMove(game.Board)
	if cell == tictactoe.NoMove {
		return tictactoe.NoMove, ErrNoAvailableMoves
	}

	if err := tictactoe.MakeTurn(game, entity.ComputerMark, cell); err != nil {
		return tictactoe.NoMove, fmt.Errorf("bot failed to make turn: %w", err)
	}

	return cell, nil
}
