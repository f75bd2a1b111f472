package domain

import (
	"time"

	"github.com/google/uuid"
)

type Spreadsheet struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	// Flag is the workspace's sensitive field. Never serialized directly;
	// exposed only through SpreadsheetView.
	Flag      *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SpreadsheetView is the per-caller projection of a spreadsheet. Flag is
// non-nil only when the caller may view the sensitive field.
type SpreadsheetView struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	Flag        *string   `json:"flag"`
	CreatedAt   time.Time `json:"created_at"`
}

type Cell struct {
	ID            uuid.UUID `json:"id"`
	SpreadsheetID uuid.UUID `json:"spreadsheet_id"`
	Row           int       `json:"row"`
	Column        int       `json:"column"`
	Content       string    `json:"content"`

	// EvaluatedContent is filled by the formula engine on single-cell reads.
	EvaluatedContent string `json:"evaluated_content,omitempty"`
}
