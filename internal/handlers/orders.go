package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bookcourier/bookcourier/internal/models"
	"github.com/bookcourier/bookcourier/internal/services"
)

type createOrderRequest struct {
	CustomerName   string       `json:"customer_name"`
	BookID         uuid.UUID    `json:"book_id"`
	BookName       string       `json:"book_name"`
	ImageURL       string       `json:"image_url"`
	Seller         models.Party `json:"seller"`
	UnitPriceCents int          `json:"unit_price_cents"`
	Quantity       int          `json:"quantity"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), identity, services.CreateOrderInput{
		CustomerName:   req.CustomerName,
		BookID:         req.BookID,
		BookName:       req.BookName,
		ImageURL:       req.ImageURL,
		Seller:         req.Seller,
		UnitPriceCents: req.UnitPriceCents,
		Quantity:       req.Quantity,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, order)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// ListCustomerOrders returns the caller's purchases. Admins may pass
// ?email= to read another customer's view.
func (h *Handlers) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, services.ViewCustomerOrders)
}

// ListSellerOrders returns orders placed against the caller's listings.
func (h *Handlers) ListSellerOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, services.ViewSellerOrders)
}

// ListAllOrders is the unscoped admin view.
func (h *Handlers) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, services.ViewAdminAll)
}

func (h *Handlers) listOrders(w http.ResponseWriter, r *http.Request, view services.View) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), identity, view, r.URL.Query().Get("email"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	h.writeJSON(w, r, http.StatusOK, orders)
}

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	invoices, err := h.orderService.ListInvoices(r.Context(), identity, r.URL.Query().Get("email"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, invoices)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Cancel(r.Context(), identity, orderID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status models.FulfillmentStatus `json:"status"`
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), identity, orderID, req.Status)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// pathID parses the {id} route variable as a UUID.
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
