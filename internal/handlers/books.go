package handlers

import (
	"net/http"

	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
	"github.com/bookcourier/bookcourier/internal/services"
)

type createBookRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	ImageURL    string            `json:"image_url"`
	PriceCents  int               `json:"price_cents"`
	Status      models.BookStatus `json:"status"`
}

func (h *Handlers) CreateBook(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createBookRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Create(r.Context(), identity, services.CreateBookInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		PriceCents:  req.PriceCents,
		Status:      req.Status,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, book)
}

// ListBooks is the public storefront: published listings only.
func (h *Handlers) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListPublished(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if books == nil {
		books = []*models.Book{}
	}
	h.writeJSON(w, r, http.StatusOK, books)
}

func (h *Handlers) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	book, err := h.bookService.Get(r.Context(), bookID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, book)
}

// ListSellerBooks returns the caller's own listings, published or not.
func (h *Handlers) ListSellerBooks(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	books, err := h.bookService.ListMine(r.Context(), identity)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if books == nil {
		books = []*models.Book{}
	}
	h.writeJSON(w, r, http.StatusOK, books)
}

type updateBookRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Category    *string            `json:"category"`
	ImageURL    *string            `json:"image_url"`
	PriceCents  *int               `json:"price_cents"`
	Status      *models.BookStatus `json:"status"`
}

func (h *Handlers) UpdateBook(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateBookRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Update(r.Context(), identity, bookID, db.BookUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		PriceCents:  req.PriceCents,
		Status:      req.Status,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, book)
}

func (h *Handlers) DeleteBook(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	bookID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.bookService.Delete(r.Context(), identity, bookID); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"success": true})
}
