package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-ai/internal/entity"
)

const (
	actionGameNew     = "game:new"
	actionGameGet     = "game:get"
	actionGameTurn    = "game:turn"
	actionGameRestart = "game:restart"
	actionGameMode    = "game:mode"
	actionScoreReset  = "score:reset"
	actionGameLeave   = "game:leave"

	actionError = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	Game  *entity.Game `json:"game,omitempty"`
	Mode  string       `json:"mode,omitempty"`
	Cell  *int         `json:"cell,omitempty"`
	Error string       `json:"error,omitempty"`
}

func newMessage(action string, payload Payload) ([]byte, error) {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{
		Action:  action,
		Payload: rawPayload,
	})
}

// gameID returns the id of the game the payload refers to, or "" when missing.
func (that *Payload) gameID() string {
	if that.Game == nil {
		return ""
	}

	return that.Game.ID
}
