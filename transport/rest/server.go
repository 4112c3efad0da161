package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type gameUseCase interface {
	CreateGame(ctx context.Context, mode string) (*entity.Game, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	DeleteGame(ctx context.Context, id string) error

	MakeTurn(ctx context.Context, id string, cell int) (*entity.Game, error)
	PlayComputerTurn(ctx context.Context, id string) (*entity.Game, error)

	Restart(ctx context.Context, id string) (*entity.Game, error)
	ResetScores(ctx context.Context, id string) (*entity.Game, error)
	SetMode(ctx context.Context, id, mode string) (*entity.Game, error)
}

type Server struct {
	logger      *slog.Logger
	gameUseCase gameUseCase
}

func New(logger *slog.Logger, gameUseCase gameUseCase) *Server {
	return &Server{
		logger:      logger.With("component", "rest"),
		gameUseCase: gameUseCase,
	}
}

// Handler builds the HTTP routes.
func (that *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(that.logRequest)
	router.Use(middleware.Recoverer)

	router.Get("/ping", pingHandler)

	router.Route("/api", func(r chi.Router) {
		r.Post("/board/winner", that.handleBoardWinner)
		r.Post("/board/move", that.handleBoardMove)

		r.Post("/games", that.handleCreateGame)
		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/", that.handleGetGame)
			r.Delete("/", that.handleDeleteGame)
			r.Post("/turn", that.handleGameTurn)
			r.Post("/restart", that.handleRestart)
			r.Post("/scores/reset", that.handleResetScores)
			r.Put("/mode", that.handleSetMode)
		})
	})

	return router
}

// Start - starts HTTP server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// logRequest - logs every request with slog.
func (that *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		that.logger.Info("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"requestID", middleware.GetReqID(r.Context()),
		)
	})
}
