package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
)

const shutdownTimeout = 5 * time.Second

var ErrUnknownAction = errors.New("unknown action")

type gameUseCase interface {
	CreateGame(ctx context.Context, mode string) (*entity.Game, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)

	MakeTurn(ctx context.Context, id string, cell int) (*entity.Game, error)
	PlayComputerTurn(ctx context.Context, id string) (*entity.Game, error)

	Restart(ctx context.Context, id string) (*entity.Game, error)
	ResetScores(ctx context.Context, id string) (*entity.Game, error)
	SetMode(ctx context.Context, id, mode string) (*entity.Game, error)
}

type handlerFunc func(ctx context.Context, c *client, payload *Payload) error

type Server struct {
	logger      *slog.Logger
	gameUseCase gameUseCase
	hub         *hub
	upgrader    websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, gameUseCase gameUseCase) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		gameUseCase: gameUseCase,
		hub:         newHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	server.handlers = map[string]handlerFunc{
		actionGameNew:     server.handleNewGame,
		actionGameGet:     server.handleGetGame,
		actionGameTurn:    server.handleGameTurn,
		actionGameRestart: server.handleRestart,
		actionGameMode:    server.handleSetMode,
		actionScoreReset:  server.handleResetScores,
		actionGameLeave:   server.handleLeave,
	}

	return server
}

// Handler serves /ws. Background work started by connections lives as long as ctx.
func (that *Server) Handler(ctx context.Context) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})

	return router
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
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

// serveWS - upgrades the connection and reads messages until the client goes away.
func (that *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS", "remote", r.RemoteAddr)

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(conn)

	go func() {
		defer conn.Close()

		if err := c.writePump(); err != nil {
			log.Debug("writer stopped", "error", err)
		}
	}()

	log.Info("WebSocket connection established")

	that.readPump(ctx, c)
	that.hub.disconnect(c)

	log.Info("WebSocket connection closed")
}

func (that *Server) readPump(ctx context.Context, c *client) {
	log := that.logger.With("method", "readPump")

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			that.sendError(c, actionError, fmt.Errorf("%w: %w", errInvalidMessage, err))
			continue
		}

		if err = that.dispatch(ctx, c, &message); err != nil {
			that.sendError(c, message.Action, err)
		}
	}
}

func (that *Server) dispatch(ctx context.Context, c *client, message *Message) error {
	handler, ok := that.handlers[message.Action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, message.Action)
	}

	var payload Payload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %w", errInvalidMessage, err)
		}
	}

	return handler(ctx, c, &payload)
}

func (that *Server) send(c *client, action string, payload Payload) {
	msg, err := newMessage(action, payload)
	if err != nil {
		that.logger.Error("failed to marshal message", "action", action, "error", err)
		return
	}

	if !c.enqueue(msg) {
		that.logger.Warn("client is too slow, message dropped", "action", action)
	}
}

func (that *Server) sendError(c *client, action string, err error) {
	that.send(c, action, Payload{Error: that.publicError(err)})
}

// broadcast sends the game state to everyone watching the game.
func (that *Server) broadcast(action string, game *entity.Game) {
	msg, err := newMessage(action, Payload{Game: game})
	if err != nil {
		that.logger.Error("failed to marshal message", "action", action, "error", err)
		return
	}

	delivered := that.hub.broadcast(game.ID, msg)
	that.logger.Debug("game state broadcast", "action", action, "gameID", game.ID, "delivered", delivered)
}
