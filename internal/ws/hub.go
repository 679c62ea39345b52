package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// TokenVerifier checks an opaque credential and returns the user it belongs
// to. A narrow function type keeps this package from depending on the auth
// middleware directly.
type TokenVerifier func(token string) (int, error)

// Hub tracks live connections and maps identified ones into per-user
// broadcast groups. Group state is in-memory only; a restart drops every
// group, and clients are expected to reconnect and re-identify. The durable
// notification store loses nothing in the meantime.
type Hub struct {
	// conns holds every open connection, identified or not.
	// groups holds only identified connections, keyed by user id. A user
	// with several tabs open has several entries in their group.
	conns  map[*Client]bool
	groups map[int]map[*Client]bool
	mu     sync.RWMutex

	unregister chan *Client

	verify TokenVerifier
}

func NewHub(verify TokenVerifier) *Hub {
	return &Hub{
		conns:      make(map[*Client]bool),
		groups:     make(map[int]map[*Client]bool),
		unregister: make(chan *Client),
		verify:     verify,
	}
}

// Run drains disconnect signals from the pumps; started with `go hub.Run()`
// from main. Registration is synchronous so a handshake token can identify
// the connection before the first broadcast could race it.
func (h *Hub) Run() {
	for client := range h.unregister {
		h.removeClient(client)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client]; !ok {
		return
	}
	delete(h.conns, client)
	h.leaveGroupLocked(client)
	close(client.send)
}

func (h *Hub) leaveGroupLocked(client *Client) {
	if client.userID == 0 {
		return
	}
	if group, ok := h.groups[client.userID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.groups, client.userID)
			log.Printf("[ws] user %d fully disconnected", client.userID)
		}
	}
	client.userID = 0
}

// Identify verifies a credential and joins the connection to that user's
// broadcast group. A bad credential leaves the connection exactly as it was;
// no error reaches the transport, polling remains the fallback. Calling it
// again with a different user's credential moves the connection.
func (h *Hub) Identify(client *Client, token string) {
	userID, err := h.verify(token)
	if err != nil {
		log.Printf("[ws] identify rejected: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client]; !ok {
		return
	}
	if client.userID == userID {
		return
	}

	h.leaveGroupLocked(client)

	if _, ok := h.groups[userID]; !ok {
		h.groups[userID] = make(map[*Client]bool)
	}
	h.groups[userID][client] = true
	client.userID = userID

	log.Printf("[ws] client identified: user=%d (connections: %d)", userID, len(h.groups[userID]))
}

// BroadcastToUser sends one event to every connection in a user's group.
// No-op when the group is empty; a full send buffer drops the connection
// rather than blocking the caller.
func (h *Hub) BroadcastToUser(userID int, event string, payload any) {
	data, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		log.Printf("[ws] failed to marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.groups[userID] {
		select {
		case client.send <- data:
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// trySend queues data for one connection. Membership is checked under the
// lock that orders it against removeClient and Shutdown closing the send
// channel; a connection the hub no longer tracks is skipped.
func (h *Hub) trySend(client *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.conns[client]; !ok {
		return
	}

	select {
	case client.send <- data:
	default:
		go func() { h.unregister <- client }()
	}
}

// ConnectionCount reports live connections for a user.
func (h *Hub) ConnectionCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID])
}

// Shutdown closes every connection's send channel (graceful shutdown).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.conns {
		close(client.send)
	}
	h.conns = make(map[*Client]bool)
	h.groups = make(map[int]map[*Client]bool)
	log.Println("[ws] hub shut down, all connections closed")
}
