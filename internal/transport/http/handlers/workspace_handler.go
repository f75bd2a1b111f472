package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
	"github.com/latticehq/lattice/internal/service"
	"github.com/latticehq/lattice/internal/transport/http/middleware"
	"github.com/latticehq/lattice/pkg/validator"
	"github.com/sirupsen/logrus"
)

type WorkspaceHandler struct {
	workspaceService *service.WorkspaceService
	log              *logrus.Logger
}

func NewWorkspaceHandler(workspaceService *service.WorkspaceService, log *logrus.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService, log: log}
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateWorkspaceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateWorkspace(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ws, err := h.workspaceService.Create(r.Context(), userID, input)
	if err != nil {
		respondDomainError(w, h.log, "create workspace", err)
		return
	}

	writeJSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	workspaces, err := h.workspaceService.ListByUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, h.log, "list workspaces", err)
		return
	}

	if workspaces == nil {
		workspaces = []domain.Workspace{}
	}

	writeJSON(w, http.StatusOK, workspaces)
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	ws, err := h.workspaceService.Get(r.Context(), userID, workspaceID)
	if err != nil {
		respondDomainError(w, h.log, "get workspace", err)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	if err := h.workspaceService.Delete(r.Context(), userID, workspaceID); err != nil {
		respondDomainError(w, h.log, "delete workspace", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkspaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	var body struct {
		UserID string      `json:"user_id"`
		Role   domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.workspaceService.AddMember(r.Context(), actorID, workspaceID, userID, body.Role); err != nil {
		respondDomainError(w, h.log, "add member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkspaceHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	userID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	var body struct {
		Role domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.workspaceService.ChangeRole(r.Context(), actorID, workspaceID, userID, body.Role); err != nil {
		respondDomainError(w, h.log, "change role", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	userID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.workspaceService.RemoveMember(r.Context(), actorID, workspaceID, userID); err != nil {
		respondDomainError(w, h.log, "remove member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	members, err := h.workspaceService.ListMembers(r.Context(), userID, workspaceID)
	if err != nil {
		respondDomainError(w, h.log, "list members", err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}
