package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-ai/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ai/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-ai/internal/service"
	"github.com/rocketscienceinc/tictactoe-ai/internal/tictactoe"
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type botService interface {
	Wait(ctx context.Context) error
	MakeTurn(game *entity.Game) (int, error)
}

// GameManager owns the authoritative state of every game session.
type GameManager struct {
	logger     *slog.Logger
	gameRepo   gameRepo
	botService botService

	locksMu sync.Mutex
	locks   map[string]*gameLock
}

// gameLock is dropped from GameManager.locks once refs reaches zero.
type gameLock struct {
	mu   sync.Mutex
	refs int
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo, botService botService) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo:   gameRepo,
		botService: botService,

		locks: make(map[string]*gameLock),
	}
}

// CreateGame starts a session; an empty mode means pvp.
func (that *GameManager) CreateGame(ctx context.Context, mode string) (*entity.Game, error) {
	if mode == "" {
		mode = entity.ModePVP
	}

	if !entity.IsValidMode(mode) {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidMode, mode)
	}

	game := entity.NewGame(pkg.GenerateGameID(), mode)
	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game created", "gameID", game.ID, "mode", mode)

	return game, nil
}

func (that *GameManager) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (that *GameManager) DeleteGame(ctx context.Context, id string) error {
	unlock := that.lock(id)
	defer unlock()

	if err := that.gameRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.logger.Info("game deleted", "gameID", id)

	return nil
}

// MakeTurn applies a human move for the side to move. In pvc the human plays X only.
func (that *GameManager) MakeTurn(ctx context.Context, id string, cell int) (*entity.Game, error) {
	return that.update(ctx, id, func(game *entity.Game) error {
		if game.IsComputerTurn() {
			return apperror.ErrNotYourTurn
		}

		if err := tictactoe.MakeTurn(game, game.Turn, cell); err != nil {
			return fmt.Errorf("failed make turn: %w", err)
		}

		return nil
	})
}

// PlayComputerTurn waits the pacing delay and plays the computer's move.
// A game that is not waiting on the computer is returned unchanged.
func (that *GameManager) PlayComputerTurn(ctx context.Context, id string) (*entity.Game, error) {
	log := that.logger.With("method", "PlayComputerTurn", "gameID", id)

	game, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	if !game.IsComputerTurn() {
		return game, nil
	}

	if err = that.botService.Wait(ctx); err != nil {
		return nil, fmt.Errorf("computer turn interrupted: %w", err)
	}

	// the state is read again: it may have changed during the delay
	var cell int
	game, err = that.update(ctx, id, func(game *entity.Game) error {
		var turnErr error
		cell, turnErr = that.botService.MakeTurn(game)
		return turnErr
	})

	if errors.Is(err, service.ErrNotBotTurn) {
		return that.GetGame(ctx, id)
	}

	if err != nil {
		return nil, fmt.Errorf("computer failed to make turn: %w", err)
	}

	log.Debug("computer made a turn", "cell", cell, "status", game.Status)

	return game, nil
}

// Restart starts a new round and keeps the scoreboard.
func (that *GameManager) Restart(ctx context.Context, id string) (*entity.Game, error) {
	return that.update(ctx, id, func(game *entity.Game) error {
		game.Restart()
		return nil
	})
}

func (that *GameManager) ResetScores(ctx context.Context, id string) (*entity.Game, error) {
	return that.update(ctx, id, func(game *entity.Game) error {
		game.ResetScores()
		return nil
	})
}

// SetMode switches between pvp and pvc without touching the board or the score.
// Callers follow up with PlayComputerTurn when the computer ends up on turn.
func (that *GameManager) SetMode(ctx context.Context, id, mode string) (*entity.Game, error) {
	return that.update(ctx, id, func(game *entity.Game) error {
		return game.SetMode(mode)
	})
}

// update runs a read-modify-write on a game under its lock.
func (that *GameManager) update(ctx context.Context, id string, apply func(game *entity.Game) error) (*entity.Game, error) {
	unlock := that.lock(id)
	defer unlock()

	game, err := that.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = apply(game); err != nil {
		return game, err
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	return game, nil
}

// lock takes the per-game mutex. The returned func releases it and forgets
// the entry when no other caller holds or waits for it.
func (that *GameManager) lock(id string) func() {
	that.locksMu.Lock()
	l, ok := that.locks[id]
	if !ok {
		l = &gameLock{}
		that.locks[id] = l
	}
	l.refs++
	that.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		that.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(that.locks, id)
		}
		that.locksMu.Unlock()
	}
}
