package services

import (
	"fmt"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
)

// View names a read scope over the order collection.
type View string

const (
	ViewCustomerOrders View = "customer-orders"
	ViewSellerOrders   View = "seller-orders"
	ViewAdminAll       View = "admin-all"
	ViewInvoices       View = "invoices"
)

// FilterForView translates a verified identity and a requested view
// into the predicate the store applies. isAdmin must already be
// resolved from the user record; only the admin view uses it.
func FilterForView(identity auth.Identity, view View, isAdmin bool) (db.OrderFilter, error) {
	switch view {
	case ViewCustomerOrders:
		return db.OrderFilter{CustomerEmail: identity.Email}, nil
	case ViewSellerOrders:
		return db.OrderFilter{SellerEmail: identity.Email}, nil
	case ViewInvoices:
		return db.OrderFilter{CustomerEmail: identity.Email, PaidOnly: true}, nil
	case ViewAdminAll:
		if !isAdmin {
			return db.OrderFilter{}, fmt.Errorf("%w: admin role required", ErrForbidden)
		}
		return db.OrderFilter{}, nil
	default:
		return db.OrderFilter{}, fmt.Errorf("%w: unknown view %q", ErrInvalidInput, view)
	}
}

// canMutate decides whether the caller may apply a transition to the
// order. Cancellation is open to both parties; fulfillment updates are
// seller-side only. Admins may do either.
func canMutate(identity auth.Identity, order *models.Order, allowCustomer, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	if identity.Email == order.Seller.Email {
		return true
	}
	return allowCustomer && identity.Email == order.Customer.Email
}
