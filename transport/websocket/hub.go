package websocket

import "sync"

// hub tracks which connections watch which game.
type hub struct {
	mu    sync.Mutex
	games map[string]map[*client]struct{}
}

func newHub() *hub {
	return &hub{
		games: make(map[string]map[*client]struct{}),
	}
}

func (that *hub) subscribe(gameID string, c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subscribers, ok := that.games[gameID]
	if !ok {
		subscribers = make(map[*client]struct{})
		that.games[gameID] = subscribers
	}

	subscribers[c] = struct{}{}
	c.games[gameID] = struct{}{}
}

func (that *hub) unsubscribe(gameID string, c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.remove(gameID, c)
}

// disconnect drops the client from every game and closes its send queue.
func (that *hub) disconnect(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for gameID := range c.games {
		that.remove(gameID, c)
	}

	close(c.send)
}

// broadcast sends msg to every subscriber of the game and returns how many got it.
func (that *hub) broadcast(gameID string, msg []byte) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	delivered := 0
	for c := range that.games[gameID] {
		if c.enqueue(msg) {
			delivered++
		}
	}

	return delivered
}

func (that *hub) subscribers(gameID string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.games[gameID])
}

func (that *hub) remove(gameID string, c *client) {
	delete(c.games, gameID)

	subscribers, ok := that.games[gameID]
	if !ok {
		return
	}

	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(that.games, gameID)
	}
}
