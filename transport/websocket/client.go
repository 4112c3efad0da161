package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBufferSize = 16
)

// client is one WebSocket connection. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte

	// guarded by hub.mu
	games map[string]struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		games: make(map[string]struct{}),
	}
}

// enqueue hands the message to the writer, dropping it when the client is too slow.
func (that *client) enqueue(msg []byte) bool {
	select {
	case that.send <- msg:
		return true
	default:
		return false
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (that *client) writePump() error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return nil
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
