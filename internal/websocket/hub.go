package websocket

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"ai-research-desk/internal/pkg/logger"
)

// Hub fans the UI event stream out to every connected client. It is the only
// subscriber of the events topic; per-client buffers decouple a slow
// websocket from the orchestrator, and a client that cannot keep up is
// dropped rather than allowed to stall the rest.
type Hub struct {
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	pubSub      *gochannel.GoChannel
	eventsTopic string

	logger logger.ILogger
}

func NewHub(pubSub *gochannel.GoChannel, eventsTopic string, log logger.ILogger) *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[uuid.UUID]*Client),
		pubSub:      pubSub,
		eventsTopic: eventsTopic,
		logger:      log,
	}
}

func (h *Hub) Run(ctx context.Context) error {
	messages, err := h.pubSub.Subscribe(ctx, h.eventsTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			h.broadcast(msg.Payload)
			msg.Ack()
		}
	}()

	go func() {
		for {
			select {
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client.Id] = client
				h.mu.Unlock()
				h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.Id})

			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client.Id]; ok {
					delete(h.clients, client.Id)
					close(client.Send)
					h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.Id})
				}
				h.mu.Unlock()

			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// broadcast delivers one serialized event to every connected client. Events
// are handed to each client in arrival order; a full buffer disconnects the
// client instead of blocking the fan-out.
func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	var stalled []*Client
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"client_id": client.Id})
		h.unregister <- client
	}
}
