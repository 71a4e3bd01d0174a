package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/pkg/serverutils"
	"ai-research-desk/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is a middleman between one websocket connection and the hub. Inbound
// frames are commands for the orchestrator; outbound frames are UI events.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	Id uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	publisher service.IPublisherService
}

// readPump decodes commands off the connection and publishes them inbound.
// A malformed or invalid frame gets an error reply on this connection only;
// the connection stays open.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Hub", "Unexpected close", map[string]interface{}{
					"client_id": c.Id,
					"error":     err.Error(),
				})
			}
			break
		}

		var cmd dto.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(dto.Event{Type: dto.EventErrorRaised, At: time.Now(), Error: "malformed command"})
			continue
		}
		if err := serverutils.ValidateRequest(&cmd); err != nil {
			c.reply(dto.Event{Type: dto.EventErrorRaised, At: time.Now(), Error: err.Error()})
			continue
		}

		if err := c.publisher.PublishCommand(cmd); err != nil {
			c.Hub.logger.Error("Hub", "Failed to publish command", map[string]interface{}{
				"client_id": c.Id,
				"error":     err.Error(),
			})
		}
	}
}

// reply sends an event to this client only, bypassing the hub.
func (c *Client) reply(event dto.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
