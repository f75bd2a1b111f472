package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SubscribeAuthorizer decides whether a user may receive events for a
// workspace. Wired to the authorization guard's VIEW_WORKSPACE check.
type SubscribeAuthorizer func(ctx context.Context, userID, workspaceID uuid.UUID) bool

// Hub manages all active WebSocket clients and routes workspace events.
type Hub struct {
	// clients maps userID → client.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	authorize SubscribeAuthorizer
	log       *logrus.Logger
}

type broadcastMsg struct {
	workspaceID uuid.UUID
	data        []byte
}

func NewHub(authorize SubscribeAuthorizer, log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		authorize:  authorize,
		log:        log,
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.userID] = client
			h.log.Infof("ws hub: user %s connected (%d total)", client.userID, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
				close(client.done)
				h.log.Infof("ws hub: user %s disconnected (%d total)", client.userID, len(h.clients))
			}

		case msg := <-h.broadcast:
			for _, client := range h.clients {
				// Only send to clients subscribed to this workspace.
				if !client.IsSubscribed(msg.workspaceID) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect
					delete(h.clients, client.userID)
					close(client.send)
					close(client.done)
				}
			}
		}
	}
}

// BroadcastToWorkspace sends an event to all subscribers of a workspace.
func (h *Hub) BroadcastToWorkspace(workspaceID uuid.UUID, data []byte) {
	h.broadcast <- &broadcastMsg{workspaceID: workspaceID, data: data}
}
