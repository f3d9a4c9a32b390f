package services

import (
	"errors"
	"testing"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
)

func TestFilterForView(t *testing.T) {
	t.Parallel()

	identity := auth.Identity{Email: "reader@shop.example"}

	tests := []struct {
		name    string
		view    View
		isAdmin bool
		want    db.OrderFilter
		wantErr error
	}{
		{
			name: "customer view scopes by customer email",
			view: ViewCustomerOrders,
			want: db.OrderFilter{CustomerEmail: "reader@shop.example"},
		},
		{
			name: "seller view scopes by seller email",
			view: ViewSellerOrders,
			want: db.OrderFilter{SellerEmail: "reader@shop.example"},
		},
		{
			name: "invoices view adds the paid predicate",
			view: ViewInvoices,
			want: db.OrderFilter{CustomerEmail: "reader@shop.example", PaidOnly: true},
		},
		{
			name:    "admin view is unscoped for admins",
			view:    ViewAdminAll,
			isAdmin: true,
			want:    db.OrderFilter{},
		},
		{
			name:    "admin view is refused otherwise",
			view:    ViewAdminAll,
			wantErr: ErrForbidden,
		},
		{
			name:    "unknown view",
			view:    View("everything"),
			wantErr: ErrInvalidInput,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			filter, err := FilterForView(identity, tc.view, tc.isAdmin)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, filter)
			}
		})
	}
}

func TestCanMutate(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		Customer: models.Party{Email: "reader@shop.example"},
		Seller:   models.Party{Email: "library@shop.example"},
	}

	tests := []struct {
		name          string
		email         string
		allowCustomer bool
		isAdmin       bool
		want          bool
	}{
		{name: "seller always may", email: "library@shop.example", want: true},
		{name: "customer may when allowed", email: "reader@shop.example", allowCustomer: true, want: true},
		{name: "customer may not otherwise", email: "reader@shop.example", want: false},
		{name: "admin always may", email: "nobody@shop.example", isAdmin: true, want: true},
		{name: "stranger never may", email: "nobody@shop.example", allowCustomer: true, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := canMutate(auth.Identity{Email: tc.email}, order, tc.allowCustomer, tc.isAdmin)
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
