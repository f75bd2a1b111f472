package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/authz"
	"github.com/latticehq/lattice/internal/domain"
	"github.com/latticehq/lattice/internal/formula"
	"github.com/latticehq/lattice/internal/repository"
)

// ExportService builds a zip of a workspace's sheets. Every record in the
// archive, including the reference-resolution log, stays inside the
// exporting user's tenant: reference lookups are workspace-scoped, so a
// name that only exists elsewhere is simply NOT_FOUND.
type ExportService struct {
	workspaceRepo repository.WorkspaceRepository
	sheetRepo     repository.SpreadsheetRepository
	guard         *authz.Guard
}

func NewExportService(workspaceRepo repository.WorkspaceRepository, sheetRepo repository.SpreadsheetRepository, guard *authz.Guard) *ExportService {
	return &ExportService{
		workspaceRepo: workspaceRepo,
		sheetRepo:     sheetRepo,
		guard:         guard,
	}
}

type exportLogEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	SourceSheetID   uuid.UUID `json:"source_sheet_id"`
	SourceSheetName string    `json:"source_sheet_name"`
	ReferencedName  string    `json:"referenced_name"`
	Status          string    `json:"status"`
	ReferencedID    string    `json:"referenced_sheet_id,omitempty"`
}

type ExportResult struct {
	Filename string
	Data     []byte
}

func (s *ExportService) Export(ctx context.Context, actorID, workspaceID uuid.UUID) (*ExportResult, error) {
	if err := s.guard.Require(ctx, actorID, workspaceID, authz.ViewWorkspace); err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, domain.ErrNotFound
	}

	sheets, err := s.sheetRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	var log []exportLogEntry

	for _, sheet := range sheets {
		cells, err := s.sheetRepo.ListCells(ctx, sheet.ID)
		if err != nil {
			return nil, err
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Spreadsheet Name: %s\n\n", sheet.Name)
		for _, cell := range cells {
			fmt.Fprintf(&sb, "Cell (%d,%d): %s\n", cell.Row, cell.Column, cell.Content)

			f := formula.Parse(cell.Content)
			if f.Kind != formula.KindSheetRef {
				continue
			}

			entry := exportLogEntry{
				Timestamp:       time.Now(),
				SourceSheetID:   sheet.ID,
				SourceSheetName: sheet.Name,
				ReferencedName:  f.Arg,
				Status:          "NOT_FOUND",
			}
			referenced, err := s.sheetRepo.GetByWorkspaceAndName(ctx, workspaceID, f.Arg)
			if err != nil {
				return nil, err
			}
			if referenced != nil {
				entry.Status = "OK"
				entry.ReferencedID = referenced.ID.String()
			}
			log = append(log, entry)
		}

		name := strings.ReplaceAll(sheet.Name, " ", "_") + ".txt"
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(sb.String())); err != nil {
			return nil, err
		}
	}

	logData, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return nil, err
	}
	w, err := zw.Create("export_log.json")
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(logData); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return &ExportResult{
		Filename: fmt.Sprintf("export_%s.zip", strings.ReplaceAll(ws.Name, " ", "_")),
		Data:     buf.Bytes(),
	}, nil
}
