package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
)

// Notifier adapts the hub to the service layer's CellPublisher interface.
// Events carry cell coordinates and content only, never the sensitive
// workspace flag.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) PublishCellUpdate(workspaceID uuid.UUID, cell *domain.Cell) {
	evt, err := NewEvent(EventTypeCellUpdated, &workspaceID, CellUpdatedPayload{Cell: *cell})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	n.hub.BroadcastToWorkspace(workspaceID, data)
}
