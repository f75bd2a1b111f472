package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
	"github.com/latticehq/lattice/internal/service"
	"github.com/latticehq/lattice/internal/transport/http/middleware"
	"github.com/latticehq/lattice/pkg/validator"
	"github.com/sirupsen/logrus"
)

type SpreadsheetHandler struct {
	sheetService *service.SpreadsheetService
	log          *logrus.Logger
}

func NewSpreadsheetHandler(sheetService *service.SpreadsheetService, log *logrus.Logger) *SpreadsheetHandler {
	return &SpreadsheetHandler{sheetService: sheetService, log: log}
}

func (h *SpreadsheetHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	var input service.CreateSpreadsheetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateSpreadsheet(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	sheet, err := h.sheetService.Create(r.Context(), actorID, workspaceID, input)
	if err != nil {
		respondDomainError(w, h.log, "create spreadsheet", err)
		return
	}

	writeJSON(w, http.StatusCreated, sheet)
}

func (h *SpreadsheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	sheetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid spreadsheet ID")
		return
	}

	view, err := h.sheetService.Get(r.Context(), actorID, sheetID)
	if err != nil {
		respondDomainError(w, h.log, "get spreadsheet", err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *SpreadsheetHandler) ListByWorkspace(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	views, err := h.sheetService.ListByWorkspace(r.Context(), actorID, workspaceID)
	if err != nil {
		respondDomainError(w, h.log, "list spreadsheets", err)
		return
	}

	if views == nil {
		views = []domain.SpreadsheetView{}
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *SpreadsheetHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	sheetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid spreadsheet ID")
		return
	}

	var body struct {
		Flag *string `json:"flag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.sheetService.SetFlag(r.Context(), actorID, sheetID, body.Flag); err != nil {
		respondDomainError(w, h.log, "set flag", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SpreadsheetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	sheetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid spreadsheet ID")
		return
	}

	if err := h.sheetService.Delete(r.Context(), actorID, sheetID); err != nil {
		respondDomainError(w, h.log, "delete spreadsheet", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SpreadsheetHandler) UpsertCell(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	sheetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid spreadsheet ID")
		return
	}

	var input service.UpsertCellInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateCell(input.Row, input.Column); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	cell, err := h.sheetService.UpsertCell(r.Context(), actorID, sheetID, input)
	if err != nil {
		respondDomainError(w, h.log, "upsert cell", err)
		return
	}

	writeJSON(w, http.StatusOK, cell)
}

func (h *SpreadsheetHandler) ListCells(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	sheetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid spreadsheet ID")
		return
	}

	cells, err := h.sheetService.ListCells(r.Context(), actorID, sheetID)
	if err != nil {
		respondDomainError(w, h.log, "list cells", err)
		return
	}

	if cells == nil {
		cells = []domain.Cell{}
	}

	writeJSON(w, http.StatusOK, cells)
}

// GetCell returns one cell including its evaluated content.
func (h *SpreadsheetHandler) GetCell(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	sheetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid spreadsheet ID")
		return
	}

	row, err := strconv.Atoi(r.PathValue("row"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_COORDINATE", "Invalid row")
		return
	}
	column, err := strconv.Atoi(r.PathValue("col"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_COORDINATE", "Invalid column")
		return
	}

	cell, err := h.sheetService.GetCell(r.Context(), actorID, sheetID, row, column)
	if err != nil {
		respondDomainError(w, h.log, "get cell", err)
		return
	}

	writeJSON(w, http.StatusOK, cell)
}
