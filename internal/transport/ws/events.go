package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeWorkspaceSubscribe   = "workspace.subscribe"
	EventTypeWorkspaceUnsubscribe = "workspace.unsubscribe"
	EventTypePing                 = "ping"
)

// Event types - Server → Client
const (
	EventTypeCellUpdated = "cell.updated"
	EventTypePong        = "pong"
	EventTypeError       = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type        string          `json:"type"`
	WorkspaceID *uuid.UUID      `json:"workspace_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type WorkspacePayload struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
}

// --- Server → Client payloads ---

type CellUpdatedPayload struct {
	domain.Cell
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewEvent(eventType string, workspaceID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:        eventType,
		WorkspaceID: workspaceID,
		Payload:     data,
		Timestamp:   time.Now().UnixMilli(),
	}, nil
}
