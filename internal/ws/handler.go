package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs upgrades the connection and registers it with the hub. A token may
// come as a ?token= query parameter; if it is missing or invalid the socket
// stays open but unidentified, and the client can send an identify event
// later. No push ever reaches an unidentified connection.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	hub.addClient(client)

	if token := r.URL.Query().Get("token"); token != "" {
		hub.Identify(client, token)
	}

	go client.WritePump()
	client.ReadPump() // blocks until the connection closes
}
