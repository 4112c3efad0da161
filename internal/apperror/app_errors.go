package apperror

import "errors"

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameFinished = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidCell  = errors.New("invalid cell index")
	ErrInvalidMode  = errors.New("invalid game mode")
	ErrInvalidBoard = errors.New("invalid board")
)
