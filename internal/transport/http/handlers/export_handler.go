package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/service"
	"github.com/latticehq/lattice/internal/transport/http/middleware"
	"github.com/sirupsen/logrus"
)

type ExportHandler struct {
	exportService *service.ExportService
	log           *logrus.Logger
}

func NewExportHandler(exportService *service.ExportService, log *logrus.Logger) *ExportHandler {
	return &ExportHandler{exportService: exportService, log: log}
}

func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	result, err := h.exportService.Export(r.Context(), actorID, workspaceID)
	if err != nil {
		respondDomainError(w, h.log, "export workspace", err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
	w.Write(result.Data)
}
