package handlers

import (
	"errors"
	"net/http"

	"familyquest/internal/logger"
	"familyquest/internal/service"
)

// FamilyHandler serves invitations and the parent/child graph
type FamilyHandler struct {
	familyService *service.FamilyService
	log           *logger.Logger
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, log *logger.Logger) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		log:           log,
	}
}

// CreateInvitation issues a new invite code for the calling parent
func (h *FamilyHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	parent := GetAccountFromContext(r.Context())

	var req InviteCreateRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode invitation", err)
		return
	}

	inv, err := h.familyService.GenerateInviteCode(r.Context(), service.InviteRequest{
		ParentID:  parent.ID,
		ChildName: req.ChildName,
		Email:     req.Email,
	})
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to generate invitation", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ListInvitations returns the calling parent's invitations
func (h *FamilyHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	parent := GetAccountFromContext(r.Context())

	invitations, err := h.familyService.ListInvitations(r.Context(), parent.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list invitations", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(invitations))
}

// AcceptInvitation links the calling child to the inviting parent. Invalid,
// used and expired codes answer linked=false.
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	child := GetAccountFromContext(r.Context())

	var req AcceptInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode invitation code", err)
		return
	}

	linked, err := h.familyService.AcceptInvitation(r.Context(), req.Code, child.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to accept invitation", err)
		return
	}
	writeJSON(w, http.StatusOK, AcceptInviteResponse{Linked: linked})
}

// MyChildren lists the children linked to the calling parent
func (h *FamilyHandler) MyChildren(w http.ResponseWriter, r *http.Request) {
	parent := GetAccountFromContext(r.Context())

	children, err := h.familyService.ChildrenOf(r.Context(), parent.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list children", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(children))
}

// Parents lists the parents linked to a child
func (h *FamilyHandler) Parents(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())

	parents, err := h.familyService.ParentsOf(r.Context(), childID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list parents", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(parents))
}
