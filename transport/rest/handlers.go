package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-ai/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ai/internal/tictactoe"
)

type boardRequest struct {
	Board *entity.Board `json:"board"`
}

type winnerResponse struct {
	Winner entity.Mark `json:"winner"`
	Full   bool        `json:"full"`
}

type moveResponse struct {
	Cell int `json:"cell"`
}

type gameRequest struct {
	Mode string `json:"mode"`
	Cell *int   `json:"cell"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleBoardWinner(w http.ResponseWriter, r *http.Request) {
	board, ok := that.decodeBoard(w, r)
	if !ok {
		return
	}

	that.writeJSON(w, http.StatusOK, winnerResponse{
		Winner: tictactoe.EvaluateWinner(board),
		Full:   board.IsFull(),
	})
}

func (that *Server) handleBoardMove(w http.ResponseWriter, r *http.Request) {
	board, ok := that.decodeBoard(w, r)
	if !ok {
		return
	}

	if winner := tictactoe.EvaluateWinner(board); winner != entity.EmptyCell {
		that.writeError(w, fmt.Errorf("%w: %s already won", apperror.ErrGameFinished, winner))
		return
	}

	that.writeJSON(w, http.StatusOK, moveResponse{
		Cell: tictactoe.SelectBestMove(board),
	})
}

func (that *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if !that.decode(w, r, &req) {
		return
	}

	game, err := that.gameUseCase.CreateGame(r.Context(), req.Mode)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, game)
}

func (that *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.gameUseCase.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := that.gameUseCase.DeleteGame(r.Context(), chi.URLParam(r, "gameID")); err != nil {
		that.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGameTurn applies the human move and, in pvc, waits for the computer's answer.
func (that *Server) handleGameTurn(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if !that.decode(w, r, &req) {
		return
	}

	if req.Cell == nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cell is required"})
		return
	}

	gameID := chi.URLParam(r, "gameID")

	game, err := that.gameUseCase.MakeTurn(r.Context(), gameID, *req.Cell)
	if err != nil {
		that.writeError(w, err)
		return
	}

	if game.IsComputerTurn() {
		game, err = that.gameUseCase.PlayComputerTurn(r.Context(), gameID)
		if err != nil {
			that.writeError(w, err)
			return
		}
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	game, err := that.gameUseCase.Restart(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Server) handleResetScores(w http.ResponseWriter, r *http.Request) {
	game, err := that.gameUseCase.ResetScores(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if !that.decode(w, r, &req) {
		return
	}

	gameID := chi.URLParam(r, "gameID")

	game, err := that.gameUseCase.SetMode(r.Context(), gameID, req.Mode)
	if err != nil {
		that.writeError(w, err)
		return
	}

	if game.IsComputerTurn() {
		game, err = that.gameUseCase.PlayComputerTurn(r.Context(), gameID)
		if err != nil {
			that.writeError(w, err)
			return
		}
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Server) decodeBoard(w http.ResponseWriter, r *http.Request) (entity.Board, bool) {
	var req boardRequest
	if !that.decode(w, r, &req) {
		return entity.Board{}, false
	}

	if req.Board == nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "board is required"})
		return entity.Board{}, false
	}

	if err := req.Board.Validate(); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return entity.Board{}, false
	}

	return *req.Board, true
}

func (that *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}

	return true
}

func (that *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrInvalidMode),
		errors.Is(err, apperror.ErrInvalidBoard):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrGameFinished):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "error", err)
		that.writeJSON(w, status, errorResponse{Error: "Internal Server Error"})
		return
	}

	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
