package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bookcourier/bookcourier/internal/models"
)

type librarianRequestBody struct {
	Message string `json:"message"`
}

// BecomeLibrarian files a promotion request for the caller.
func (h *Handlers) BecomeLibrarian(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req librarianRequestBody
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	request, err := h.librarianSvc.Request(r.Context(), identity, req.Message)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, request)
}

// MyLibrarianRequests returns the caller's pending requests.
func (h *Handlers) MyLibrarianRequests(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	requests, err := h.librarianSvc.Mine(r.Context(), identity)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if requests == nil {
		requests = []*models.LibrarianRequest{}
	}
	h.writeJSON(w, r, http.StatusOK, requests)
}

// ListLibrarianRequests returns all pending requests. Admin only.
func (h *Handlers) ListLibrarianRequests(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	requests, err := h.librarianSvc.List(r.Context(), identity)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if requests == nil {
		requests = []*models.LibrarianRequest{}
	}
	h.writeJSON(w, r, http.StatusOK, requests)
}

// DismissLibrarianRequest drops a pending request without promoting.
// Admin only.
func (h *Handlers) DismissLibrarianRequest(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	email := mux.Vars(r)["email"]
	if err := h.librarianSvc.Dismiss(r.Context(), identity, email); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"success": true})
}
