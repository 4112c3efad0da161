package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-ai/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ai/internal/service"
	mockedUseCase "github.com/rocketscienceinc/tictactoe-ai/mocks/usecase"
)

var errRedisDown = errors.New("redis down")

func newTestManager(t *testing.T, delay time.Duration) (*GameManager, *mockedUseCase.MockgameRepo) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockGameRepo := mockedUseCase.NewMockgameRepo(t)

	return NewGameManager(logger, mockGameRepo, service.NewBotService(delay)), mockGameRepo
}

func TestGameManager_CreateGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates and stores a new game", func(t *testing.T) {
		// Given: a repository that accepts the game
		manager, mockGameRepo := newTestManager(t, 0)

		mockGameRepo.EXPECT().
			CreateOrUpdate(mock.Anything, mock.AnythingOfType("*entity.Game")).
			Return(nil).
			Once()

		// When: creating a pvc game
		game, err := manager.CreateGame(ctx, entity.ModePVC)

		// Then: a fresh game with X to move is returned
		require.NoError(t, err)
		assert.NotEmpty(t, game.ID)
		assert.Equal(t, entity.ModePVC, game.Mode)
		assert.Equal(t, entity.PlayerX, game.Turn)
		assert.Equal(t, entity.Board{}, game.Board)
	})

	t.Run("Empty mode defaults to pvp", func(t *testing.T) {
		// Given: a repository that accepts the game
		manager, mockGameRepo := newTestManager(t, 0)

		mockGameRepo.EXPECT().
			CreateOrUpdate(mock.Anything, mock.AnythingOfType("*entity.Game")).
			Return(nil).
			Once()

		// When: creating a game without a mode
		game, err := manager.CreateGame(ctx, "")

		// Then: two humans share the board
		require.NoError(t, err)
		assert.Equal(t, entity.ModePVP, game.Mode)
	})

	t.Run("Rejects unknown mode", func(t *testing.T) {
		// Given: a manager with an untouched repository
		manager, _ := newTestManager(t, 0)

		// When: creating a game with an unknown mode
		game, err := manager.CreateGame(ctx, "solo")

		// Then: ErrInvalidMode is returned
		require.ErrorIs(t, err, apperror.ErrInvalidMode)
		assert.Nil(t, game)
	})

	t.Run("Returns error if repository fails", func(t *testing.T) {
		// Given: a repository that fails to store
		manager, mockGameRepo := newTestManager(t, 0)

		mockGameRepo.EXPECT().
			CreateOrUpdate(mock.Anything, mock.AnythingOfType("*entity.Game")).
			Return(errRedisDown).
			Once()

		// When: creating a game
		game, err := manager.CreateGame(ctx, entity.ModePVP)

		// Then: the repository error is wrapped
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, game)
	})
}

func TestGameManager_GetGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns ErrGameNotFound for unknown id", func(t *testing.T) {
		// Given: a repository without the game
		manager, mockGameRepo := newTestManager(t, 0)

		mockGameRepo.EXPECT().
			GetByID(mock.Anything, "missing").
			Return(nil, apperror.ErrGameNotFound).
			Once()

		// When: getting the game
		game, err := manager.GetGame(ctx, "missing")

		// Then: the not found error is kept
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
		assert.Nil(t, game)
	})
}

func TestGameManager_MakeTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Both humans alternate in pvp", func(t *testing.T) {
		// Given: a pvp game where X already moved
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVP)
		game.Board[0] = entity.PlayerX
		game.Turn = entity.PlayerO

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(nil).Once()

		// When: the second human plays cell 4
		updated, err := manager.MakeTurn(ctx, "g1", 4)

		// Then: O is placed and it is X's turn
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerO, updated.Board[4])
		assert.Equal(t, entity.PlayerX, updated.Turn)
	})

	t.Run("Human cannot move for the computer", func(t *testing.T) {
		// Given: a pvc game waiting on the computer
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVC)
		game.Board[0] = entity.PlayerX
		game.Turn = entity.PlayerO

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()

		// When: the human tries to play
		_, err := manager.MakeTurn(ctx, "g1", 4)

		// Then: ErrNotYourTurn is returned and nothing is stored
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, entity.EmptyCell, game.Board[4])
	})

	t.Run("Occupied cell is rejected", func(t *testing.T) {
		// Given: a pvp game with cell 0 taken
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVP)
		game.Board[0] = entity.PlayerX
		game.Turn = entity.PlayerO

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()

		// When: O plays cell 0
		_, err := manager.MakeTurn(ctx, "g1", 0)

		// Then: ErrCellOccupied is returned
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})

	t.Run("Finished game is rejected", func(t *testing.T) {
		// Given: a finished game
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVP)
		game.Status = entity.StatusFinished

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()

		// When: a human plays
		_, err := manager.MakeTurn(ctx, "g1", 3)

		// Then: ErrGameFinished is returned
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Returns error if saving fails", func(t *testing.T) {
		// Given: a repository that fails to store
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVC)

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(errRedisDown).Once()

		// When: the human plays
		updated, err := manager.MakeTurn(ctx, "g1", 4)

		// Then: the storage error is returned
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, updated)
	})
}

func TestGameManager_PlayComputerTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Computer answers a corner with the center", func(t *testing.T) {
		// Given: a pvc game where X took a corner
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVC)
		game.Board[0] = entity.PlayerX
		game.Turn = entity.PlayerO

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Twice()
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(nil).Once()

		// When: the computer plays
		updated, err := manager.PlayComputerTurn(ctx, "g1")

		// Then: O takes the center and hands the turn back
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerO, updated.Board[4])
		assert.Equal(t, entity.PlayerX, updated.Turn)
	})

	t.Run("Computer finishes the round and scores", func(t *testing.T) {
		// Given: O can win on cell 2
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVC)
		game.Board = entity.Board{entity.PlayerO, entity.PlayerO, "", entity.PlayerX, entity.PlayerX, "", entity.PlayerX}
		game.Turn = entity.PlayerO

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Twice()
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(nil).Once()

		// When: the computer plays
		updated, err := manager.PlayComputerTurn(ctx, "g1")

		// Then: the computer wins the round
		require.NoError(t, err)
		assert.True(t, updated.IsFinished())
		assert.Equal(t, entity.Scoreboard{OWins: 1}, updated.Score)
	})

	t.Run("Nothing happens on the human turn", func(t *testing.T) {
		// Given: a pvc game with X to move
		manager, mockGameRepo := newTestManager(t, time.Hour)
		game := entity.NewGame("g1", entity.ModePVC)

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()

		// When: the computer is asked to play
		updated, err := manager.PlayComputerTurn(ctx, "g1")

		// Then: the game comes back unchanged without waiting
		require.NoError(t, err)
		assert.Equal(t, entity.NewGame("g1", entity.ModePVC), updated)
	})

	t.Run("Cancelled context stops the pacing delay", func(t *testing.T) {
		// Given: a pvc game waiting on a slow computer
		manager, mockGameRepo := newTestManager(t, time.Hour)
		game := entity.NewGame("g1", entity.ModePVC)
		game.Board[0] = entity.PlayerX
		game.Turn = entity.PlayerO

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		// When: the computer is asked to play
		updated, err := manager.PlayComputerTurn(cancelled, "g1")

		// Then: the wait is interrupted and the board is untouched
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, updated)
		assert.Equal(t, entity.EmptyCell, game.Board[4])
	})
}

func TestGameManager_RoundControls(t *testing.T) {
	ctx := context.Background()

	t.Run("Restart keeps the score", func(t *testing.T) {
		// Given: a finished game with a score
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVC)
		game.Status = entity.StatusFinished
		game.Winner = entity.PlayerTie
		game.Score = entity.Scoreboard{Draws: 1}

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(nil).Once()

		// When: restarting
		updated, err := manager.Restart(ctx, "g1")

		// Then: a new round starts with the same score
		require.NoError(t, err)
		assert.True(t, updated.IsOngoing())
		assert.Equal(t, entity.Scoreboard{Draws: 1}, updated.Score)
	})

	t.Run("ResetScores clears the score", func(t *testing.T) {
		// Given: a game with a score
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVP)
		game.Score = entity.Scoreboard{XWins: 4}

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(nil).Once()

		// When: resetting the scores
		updated, err := manager.ResetScores(ctx, "g1")

		// Then: the scoreboard is empty
		require.NoError(t, err)
		assert.Equal(t, entity.Scoreboard{}, updated.Score)
	})

	t.Run("SetMode rejects unknown mode", func(t *testing.T) {
		// Given: a stored game
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVP)

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Once()

		// When: switching to an unknown mode
		_, err := manager.SetMode(ctx, "g1", "solo")

		// Then: ErrInvalidMode is returned and nothing is stored
		require.ErrorIs(t, err, apperror.ErrInvalidMode)
	})

	t.Run("SetMode to pvc puts the computer on turn", func(t *testing.T) {
		// Given: a pvp game with O to move
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVP)
		game.Board[0] = entity.PlayerX
		game.Turn = entity.PlayerO

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil)
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(nil).Twice()

		// When: switching to pvc and letting the computer play
		_, err := manager.SetMode(ctx, "g1", entity.ModePVC)
		require.NoError(t, err)

		updated, err := manager.PlayComputerTurn(ctx, "g1")

		// Then: the computer has answered
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerO, updated.Board[4])
		assert.Equal(t, entity.PlayerX, updated.Turn)
	})

	t.Run("DeleteGame removes the game", func(t *testing.T) {
		// Given: a repository with the game
		manager, mockGameRepo := newTestManager(t, 0)

		mockGameRepo.EXPECT().DeleteByID(mock.Anything, "g1").Return(nil).Once()

		// When: deleting it
		err := manager.DeleteGame(ctx, "g1")

		// Then: no error is returned
		require.NoError(t, err)
	})
}

func lockEntries(manager *GameManager) int {
	manager.locksMu.Lock()
	defer manager.locksMu.Unlock()

	return len(manager.locks)
}

func TestGameManager_Locks(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown ids leave no lock behind", func(t *testing.T) {
		// Given: a repository that knows no game
		manager, mockGameRepo := newTestManager(t, 0)

		mockGameRepo.EXPECT().
			GetByID(mock.Anything, mock.AnythingOfType("string")).
			Return(nil, apperror.ErrGameNotFound).
			Times(1000)

		// When: turns are sent to 1000 random ids
		for i := 0; i < 1000; i++ {
			_, err := manager.MakeTurn(ctx, fmt.Sprintf("nope-%d", i), 0)
			require.ErrorIs(t, err, apperror.ErrGameNotFound)
		}

		// Then: no lock entry is kept
		assert.Zero(t, lockEntries(manager))
	})

	t.Run("Concurrent turns are serialized and then forgotten", func(t *testing.T) {
		// Given: a pvp game shared by two players
		manager, mockGameRepo := newTestManager(t, 0)
		game := entity.NewGame("g1", entity.ModePVP)

		mockGameRepo.EXPECT().GetByID(mock.Anything, "g1").Return(game, nil).Twice()
		mockGameRepo.EXPECT().CreateOrUpdate(mock.Anything, game).Return(nil).Twice()

		// When: both play different cells at the same time
		var wg sync.WaitGroup
		errs := make([]error, 2)

		for i := 0; i < 2; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = manager.MakeTurn(ctx, "g1", i)
			}()
		}
		wg.Wait()

		// Then: both moves land, one per side, and the lock is released
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.ElementsMatch(t, []entity.Mark{entity.PlayerX, entity.PlayerO}, []entity.Mark{game.Board[0], game.Board[1]})
		assert.Equal(t, entity.PlayerX, game.Turn)
		assert.Zero(t, lockEntries(manager))
	})

	t.Run("Delete releases the lock", func(t *testing.T) {
		// Given: a stored game
		manager, mockGameRepo := newTestManager(t, 0)

		mockGameRepo.EXPECT().DeleteByID(mock.Anything, "g1").Return(nil).Once()

		// When: deleting it
		require.NoError(t, manager.DeleteGame(ctx, "g1"))

		// Then: no lock entry is kept
		assert.Zero(t, lockEntries(manager))
	})
}
