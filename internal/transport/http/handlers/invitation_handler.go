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

type InvitationHandler struct {
	invitationService *service.InvitationService
	log               *logrus.Logger
}

func NewInvitationHandler(invitationService *service.InvitationService, log *logrus.Logger) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService, log: log}
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	var input service.InviteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateInvitation(input.Email, string(input.Role)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	inv, err := h.invitationService.Invite(r.Context(), actorID, workspaceID, input)
	if err != nil {
		respondDomainError(w, h.log, "invite", err)
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

func (h *InvitationHandler) Revise(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	invitationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid invitation ID")
		return
	}

	var input service.ReviseInvitationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.invitationService.Revise(r.Context(), actorID, invitationID, input); err != nil {
		respondDomainError(w, h.log, "revise invitation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	invitationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid invitation ID")
		return
	}

	member, err := h.invitationService.Accept(r.Context(), actorID, invitationID)
	if err != nil {
		respondDomainError(w, h.log, "accept invitation", err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	invitationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid invitation ID")
		return
	}

	if err := h.invitationService.Decline(r.Context(), actorID, invitationID); err != nil {
		respondDomainError(w, h.log, "decline invitation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	invitationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid invitation ID")
		return
	}

	if err := h.invitationService.Revoke(r.Context(), actorID, invitationID); err != nil {
		respondDomainError(w, h.log, "revoke invitation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvitationHandler) ListByWorkspace(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	workspaceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID")
		return
	}

	invites, err := h.invitationService.ListByWorkspace(r.Context(), actorID, workspaceID)
	if err != nil {
		respondDomainError(w, h.log, "list invitations", err)
		return
	}

	if invites == nil {
		invites = []domain.Invitation{}
	}

	writeJSON(w, http.StatusOK, invites)
}

func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())

	invites, err := h.invitationService.ListMine(r.Context(), actorID)
	if err != nil {
		respondDomainError(w, h.log, "list my invitations", err)
		return
	}

	if invites == nil {
		invites = []domain.Invitation{}
	}

	writeJSON(w, http.StatusOK, invites)
}
