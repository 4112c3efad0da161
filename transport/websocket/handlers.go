package websocket

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/tictactoe-ai/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
)

var (
	errInvalidMessage = errors.New("invalid message")
	errGameRequired   = errors.New("game id is required")
	errCellRequired   = errors.New("cell is required")
)

func (that *Server) handleNewGame(ctx context.Context, c *client, payload *Payload) error {
	game, err := that.gameUseCase.CreateGame(ctx, payload.Mode)
	if err != nil {
		return err
	}

	that.hub.subscribe(game.ID, c)
	that.send(c, actionGameNew, Payload{Game: game})

	that.logger.Info("game created", "gameID", game.ID, "mode", game.Mode)

	return nil
}

func (that *Server) handleGetGame(ctx context.Context, c *client, payload *Payload) error {
	gameID := payload.gameID()
	if gameID == "" {
		return errGameRequired
	}

	game, err := that.gameUseCase.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	that.hub.subscribe(game.ID, c)
	that.send(c, actionGameGet, Payload{Game: game})

	return nil
}

// handleGameTurn broadcasts the human move at once; in pvc the computer's reply follows after the delay.
func (that *Server) handleGameTurn(ctx context.Context, c *client, payload *Payload) error {
	gameID := payload.gameID()
	if gameID == "" {
		return errGameRequired
	}

	if payload.Cell == nil {
		return errCellRequired
	}

	game, err := that.gameUseCase.MakeTurn(ctx, gameID, *payload.Cell)
	if err != nil {
		return err
	}

	that.hub.subscribe(game.ID, c)
	that.broadcast(actionGameTurn, game)

	if game.IsComputerTurn() {
		go that.playComputerTurn(ctx, game.ID)
	}

	return nil
}

func (that *Server) handleRestart(ctx context.Context, c *client, payload *Payload) error {
	return that.updateAndBroadcast(c, actionGameRestart, payload, func(gameID string) (*entity.Game, error) {
		return that.gameUseCase.Restart(ctx, gameID)
	})
}

func (that *Server) handleResetScores(ctx context.Context, c *client, payload *Payload) error {
	return that.updateAndBroadcast(c, actionScoreReset, payload, func(gameID string) (*entity.Game, error) {
		return that.gameUseCase.ResetScores(ctx, gameID)
	})
}

// handleSetMode switches the mode; when the computer ends up on turn it plays right away.
func (that *Server) handleSetMode(ctx context.Context, c *client, payload *Payload) error {
	var game *entity.Game

	err := that.updateAndBroadcast(c, actionGameMode, payload, func(gameID string) (*entity.Game, error) {
		var err error
		game, err = that.gameUseCase.SetMode(ctx, gameID, payload.Mode)
		return game, err
	})
	if err != nil {
		return err
	}

	if game.IsComputerTurn() {
		go that.playComputerTurn(ctx, game.ID)
	}

	return nil
}

func (that *Server) handleLeave(_ context.Context, c *client, payload *Payload) error {
	gameID := payload.gameID()
	if gameID == "" {
		return errGameRequired
	}

	that.hub.unsubscribe(gameID, c)
	that.send(c, actionGameLeave, Payload{Game: &entity.Game{ID: gameID}})

	that.logger.Info("client left game", "gameID", gameID, "watchers", that.hub.subscribers(gameID))

	return nil
}

func (that *Server) updateAndBroadcast(
	c *client,
	action string,
	payload *Payload,
	update func(gameID string) (*entity.Game, error),
) error {
	gameID := payload.gameID()
	if gameID == "" {
		return errGameRequired
	}

	game, err := update(gameID)
	if err != nil {
		return err
	}

	that.hub.subscribe(game.ID, c)
	that.broadcast(action, game)

	return nil
}

func (that *Server) playComputerTurn(ctx context.Context, gameID string) {
	log := that.logger.With("method", "playComputerTurn", "gameID", gameID)

	game, err := that.gameUseCase.PlayComputerTurn(ctx, gameID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("computer failed to make turn", "error", err)
		}
		return
	}

	that.broadcast(actionGameTurn, game)
}

// publicError turns an error into a message safe to show to the client.
func (that *Server) publicError(err error) string {
	switch {
	case errors.Is(err, apperror.ErrGameNotFound),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrInvalidMode),
		errors.Is(err, errGameRequired),
		errors.Is(err, errCellRequired),
		errors.Is(err, errInvalidMessage),
		errors.Is(err, ErrUnknownAction):
		return err.Error()
	default:
		that.logger.Error("failed to process message", "error", err)
		return "internal error"
	}
}
