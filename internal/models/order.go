package models

import (
	"time"

	"github.com/google/uuid"
)

// FulfillmentStatus tracks the order's position in pending → shipped →
// delivered, or the terminal cancelled branch.
type FulfillmentStatus string

const (
	StatusPending   FulfillmentStatus = "pending"
	StatusShipped   FulfillmentStatus = "shipped"
	StatusDelivered FulfillmentStatus = "delivered"
	StatusCancelled FulfillmentStatus = "cancelled"
)

// PaymentStatus only ever moves unpaid → paid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// NextStatus returns the immediate successor in the fulfillment
// sequence. ok is false when the state has no successor.
func NextStatus(s FulfillmentStatus) (FulfillmentStatus, bool) {
	switch s {
	case StatusPending:
		return StatusShipped, true
	case StatusShipped:
		return StatusDelivered, true
	default:
		return "", false
	}
}

// Cancellable reports whether an order in this state may still be
// cancelled. A delivered purchase is final.
func Cancellable(s FulfillmentStatus) bool {
	return s == StatusPending || s == StatusShipped
}

// Party identifies one side of an order.
type Party struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type Order struct {
	ID                uuid.UUID         `json:"id"`
	Customer          Party             `json:"customer"`
	Seller            Party             `json:"seller"`
	BookID            uuid.UUID         `json:"book_id"`
	BookName          string            `json:"book_name"`
	ImageURL          string            `json:"image_url,omitempty"`
	UnitPriceCents    int               `json:"unit_price_cents"`
	Quantity          int               `json:"quantity"`
	TotalCents        int               `json:"total_cents,omitempty"`
	OrderDate         string            `json:"order_date"`
	Status            FulfillmentStatus `json:"status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	TransactionID     string            `json:"transaction_id,omitempty"`
	CheckoutSessionID string            `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	PaidAt            time.Time         `json:"paid_at"`
}

// Invoice is the paid-order projection returned by the invoices view.
type Invoice struct {
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	BookName      string    `json:"book_name"`
	UnitPrice     float64   `json:"unit_price"`
	Quantity      int       `json:"quantity"`
	TotalPrice    float64   `json:"total_price"`
	OrderDate     string    `json:"order_date"`
}

// InvoiceFromOrder converts stored minor-unit amounts to major units
// for presentation.
func InvoiceFromOrder(o *Order) Invoice {
	return Invoice{
		OrderID:       o.ID,
		TransactionID: o.TransactionID,
		BookName:      o.BookName,
		UnitPrice:     float64(o.UnitPriceCents) / 100,
		Quantity:      o.Quantity,
		TotalPrice:    float64(o.TotalCents) / 100,
		OrderDate:     o.OrderDate,
	}
}
