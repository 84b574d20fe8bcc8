package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers c as a watcher of sessionID and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, 256)}
	hub.register <- client

	go client.deliver()
	client.keepAlive()
}
