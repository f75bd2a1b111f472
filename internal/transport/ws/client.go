package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Client represents a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	// subscribedWorkspaces tracks which workspaces this client listens to.
	// Entries exist only after the guard approved the subscription.
	subscribedWorkspaces map[uuid.UUID]struct{}
	mu                   sync.RWMutex

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:                  hub,
		conn:                 conn,
		userID:               userID,
		subscribedWorkspaces: make(map[uuid.UUID]struct{}),
		send:                 make(chan []byte, sendBufSize),
		done:                 make(chan struct{}),
	}
}

// IsSubscribed checks if this client is subscribed to a workspace.
func (c *Client) IsSubscribed(workspaceID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribedWorkspaces[workspaceID]
	return ok
}

func (c *Client) subscribe(workspaceID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedWorkspaces[workspaceID] = struct{}{}
}

func (c *Client) unsubscribe(workspaceID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribedWorkspaces, workspaceID)
}

// ReadPump reads messages from the WebSocket and routes them to the Hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.hub.log.Infof("ws: client %s disconnected", c.userID)
			} else {
				c.hub.log.Warnf("ws: read error from %s: %v", c.userID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.hub.log.Warnf("ws: write error to %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.hub.log.Warnf("ws: ping error to %s: %v", c.userID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeWorkspaceSubscribe:
		var p WorkspacePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid workspace.subscribe payload")
			return
		}
		// Same guard as the HTTP surface: no membership, no events.
		if !c.hub.authorize(context.Background(), c.userID, p.WorkspaceID) {
			c.sendError("FORBIDDEN", "resource not found or access denied")
			return
		}
		c.subscribe(p.WorkspaceID)

	case EventTypeWorkspaceUnsubscribe:
		var p WorkspacePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid workspace.unsubscribe payload")
			return
		}
		c.unsubscribe(p.WorkspaceID)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
