package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"ai-research-desk/internal/service"
)

// ServeWs wires one upgraded connection into the hub.
func ServeWs(hub *Hub, c *websocket.Conn, publisher service.IPublisherService) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		Id:        uuid.New(),
		Send:      make(chan []byte, 256),
		publisher: publisher,
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // runs on the handler goroutine
}
