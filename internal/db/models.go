package db

import "github.com/bookcourier/bookcourier/internal/models"

type Order = models.Order
type Book = models.Book
type User = models.User
type LibrarianRequest = models.LibrarianRequest

const (
	StatusPending   = models.StatusPending
	StatusShipped   = models.StatusShipped
	StatusDelivered = models.StatusDelivered
	StatusCancelled = models.StatusCancelled

	PaymentUnpaid = models.PaymentUnpaid
	PaymentPaid   = models.PaymentPaid
)
