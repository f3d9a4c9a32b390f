package handlers

import (
	"net/http"

	"github.com/bookcourier/bookcourier/internal/models"
)

type loginRequest struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
}

// Login upserts the caller's account on sign-in. The email always
// comes from the verified token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, created, err := h.userService.Login(r.Context(), identity, req.Name, req.PhotoURL)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, r, status, user)
}

// ListUsers returns every account. Admin only.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	users, err := h.userService.List(r.Context(), identity)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	h.writeJSON(w, r, http.StatusOK, users)
}

// GetRole returns the caller's own account, including the stored role.
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), identity)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"role": user.Role, "user": user})
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), identity, req.Name, req.PhotoURL)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, user)
}

type updateRoleRequest struct {
	Role models.Role `json:"role"`
}

// UpdateRole assigns a role to an account. Admin only; promoting to
// librarian clears any pending promotion request.
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateRoleRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.SetRole(r.Context(), identity, userID, req.Role)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, user)
}
