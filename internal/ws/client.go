package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single message write; past it the connection is
	// assumed dead.
	writeWait = 10 * time.Second

	// pongWait is how long the client has between heartbeats before the
	// read side gives up on the connection.
	pongWait = 90 * time.Second

	maxMessageSize = 4096

	// sendBufferSize is the per-connection outbound buffer. A full buffer
	// means a stuck client; the hub drops the connection instead of
	// blocking a broadcast.
	sendBufferSize = 256
)

// Client is one websocket connection. userID is zero until the connection
// identifies; the hub guards it with its own mutex.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int
	send   chan []byte
	mu     sync.Mutex // serializes conn writes
}

// ReadPump consumes inbound messages until the connection closes, then
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline: %v", err)
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close: %v", err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[ws] invalid message: %v", err)
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event Event) {
	switch event.Type {
	case OpIdentify:
		c.handleIdentify(event)

	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		c.sendEvent(Event{Type: EventHeartbeatAck})

	default:
		log.Printf("[ws] unknown event type: %s", event.Type)
	}
}

// handleIdentify (re)binds the connection to a user. Clients that opened the
// socket before they had a credential use this instead of the handshake
// query parameter.
func (c *Client) handleIdentify(event Event) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var data IdentifyData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return
	}
	if data.Token == "" {
		return
	}

	c.hub.Identify(c, data.Token)
}

func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event: %v", err)
		return
	}

	c.hub.trySend(c, data)
}

// WritePump drains the send channel onto the connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// Hub removed this client
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// writeMessage serializes writes; gorilla/websocket allows at most one
// concurrent writer per connection.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
