package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
	"github.com/bookcourier/bookcourier/internal/observability"
	"github.com/bookcourier/bookcourier/internal/stripe"
)

// memOrderStore mirrors the conditional-update semantics of the real
// store: transitions only apply when the row is in the expected prior
// state.
type memOrderStore struct {
	orders map[uuid.UUID]*db.Order
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[uuid.UUID]*db.Order)}
}

func (m *memOrderStore) Create(ctx context.Context, order *db.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	clone := *order
	m.orders[order.ID] = &clone
	return nil
}

func (m *memOrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *order
	return &clone, nil
}

func (m *memOrderStore) List(ctx context.Context, filter db.OrderFilter) ([]*db.Order, error) {
	var out []*db.Order
	for _, order := range m.orders {
		if filter.CustomerEmail != "" && order.Customer.Email != filter.CustomerEmail {
			continue
		}
		if filter.SellerEmail != "" && order.Seller.Email != filter.SellerEmail {
			continue
		}
		if filter.PaidOnly && order.PaymentStatus != db.PaymentPaid {
			continue
		}
		clone := *order
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memOrderStore) SetCheckoutSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	order, ok := m.orders[orderID]
	if !ok || order.Status != db.StatusPending || order.PaymentStatus != db.PaymentUnpaid {
		return db.ErrInvalidStatusTransition
	}
	order.CheckoutSessionID = sessionID
	return nil
}

func (m *memOrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, transactionID string, totalCents int) error {
	order, ok := m.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	if order.PaymentStatus == db.PaymentPaid {
		return db.ErrAlreadyPaid
	}
	order.PaymentStatus = db.PaymentPaid
	order.TransactionID = transactionID
	order.TotalCents = totalCents
	order.PaidAt = time.Now()
	return nil
}

func (m *memOrderStore) Cancel(ctx context.Context, orderID uuid.UUID) error {
	order, ok := m.orders[orderID]
	if !ok || !models.Cancellable(order.Status) {
		return db.ErrInvalidStatusTransition
	}
	order.Status = db.StatusCancelled
	return nil
}

func (m *memOrderStore) AdvanceStatus(ctx context.Context, orderID uuid.UUID, from, to models.FulfillmentStatus) error {
	order, ok := m.orders[orderID]
	if !ok || order.Status != from {
		return db.ErrInvalidStatusTransition
	}
	order.Status = to
	return nil
}

type fakeGateway struct {
	created     []stripe.CheckoutParams
	createErr   error
	session     *stripe.Session
	retrieveErr error
}

func (f *fakeGateway) CreateSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	return &stripe.Session{
		ID:  fmt.Sprintf("cs_test_%d", len(f.created)),
		URL: fmt.Sprintf("https://pay.example/cs_test_%d", len(f.created)),
	}, nil
}

func (f *fakeGateway) RetrieveSession(ctx context.Context, sessionID string) (*stripe.Session, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.session, nil
}

type fakeRoles struct {
	admins map[string]bool
}

func (f *fakeRoles) IsAdmin(ctx context.Context, email string) (bool, error) {
	return f.admins[email], nil
}

type fakeEmails struct {
	sent []*db.Order
}

func (f *fakeEmails) SendPaymentConfirmation(ctx context.Context, order *db.Order) error {
	f.sent = append(f.sent, order)
	return nil
}

type orderTestEnv struct {
	store   *memOrderStore
	gateway *fakeGateway
	roles   *fakeRoles
	emails  *fakeEmails
	service *OrderService
}

func newOrderTestEnv() *orderTestEnv {
	env := &orderTestEnv{
		store:   newMemOrderStore(),
		gateway: &fakeGateway{},
		roles:   &fakeRoles{admins: map[string]bool{"admin@shop.example": true}},
		emails:  &fakeEmails{},
	}
	env.service = NewOrderService(OrderServiceConfig{
		Orders:     env.store,
		Gateway:    env.gateway,
		Roles:      env.roles,
		Emails:     env.emails,
		Metrics:    observability.NewMetrics(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		SuccessURL: "https://shop.example/payment?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://shop.example/dashboard/my-orders",
	})
	return env
}

var (
	customer = auth.Identity{Email: "reader@shop.example"}
	seller   = auth.Identity{Email: "library@shop.example"}
	admin    = auth.Identity{Email: "admin@shop.example"}
	stranger = auth.Identity{Email: "stranger@shop.example"}
)

func (env *orderTestEnv) seedOrder(t *testing.T, status models.FulfillmentStatus, payment models.PaymentStatus) *db.Order {
	t.Helper()
	order := &db.Order{
		Customer:       models.Party{Name: "Reader", Email: customer.Email},
		Seller:         models.Party{Name: "City Library", Email: seller.Email},
		BookID:         uuid.New(),
		BookName:       "The Go Programming Language",
		UnitPriceCents: 3500,
		Quantity:       2,
		OrderDate:      "2026-09-01",
		Status:         status,
		PaymentStatus:  payment,
	}
	if err := env.store.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if payment == db.PaymentPaid {
		env.store.orders[order.ID].TransactionID = "pi_seed"
		env.store.orders[order.ID].TotalCents = 7000
	}
	return order
}

func TestCreateOrderValidation(t *testing.T) {
	t.Parallel()

	valid := CreateOrderInput{
		CustomerName:   "Reader",
		BookID:         uuid.New(),
		BookName:       "SICP",
		Seller:         models.Party{Name: "City Library", Email: seller.Email},
		UnitPriceCents: 2800,
		Quantity:       1,
	}

	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{name: "zero quantity", mutate: func(in *CreateOrderInput) { in.Quantity = 0 }},
		{name: "negative quantity", mutate: func(in *CreateOrderInput) { in.Quantity = -1 }},
		{name: "zero price", mutate: func(in *CreateOrderInput) { in.UnitPriceCents = 0 }},
		{name: "blank book name", mutate: func(in *CreateOrderInput) { in.BookName = "  " }},
		{name: "missing seller email", mutate: func(in *CreateOrderInput) { in.Seller.Email = "" }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newOrderTestEnv()
			input := valid
			tc.mutate(&input)

			_, err := env.service.CreateOrder(context.Background(), customer, input)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateOrderDefaults(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	order, err := env.service.CreateOrder(context.Background(), customer, CreateOrderInput{
		CustomerName:   "Reader",
		BookID:         uuid.New(),
		BookName:       "SICP",
		Seller:         models.Party{Name: "City Library", Email: seller.Email},
		UnitPriceCents: 2800,
		Quantity:       1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != db.StatusPending {
		t.Errorf("expected pending status, got %s", order.Status)
	}
	if order.PaymentStatus != db.PaymentUnpaid {
		t.Errorf("expected unpaid, got %s", order.PaymentStatus)
	}
	if order.Customer.Email != customer.Email {
		t.Errorf("customer email should come from the identity, got %q", order.Customer.Email)
	}
	if want := time.Now().UTC().Format("2006-01-02"); order.OrderDate != want {
		t.Errorf("expected order date %s, got %s", want, order.OrderDate)
	}
	if order.ID == uuid.Nil {
		t.Error("expected an assigned order id")
	}
}

func TestCreateCheckout(t *testing.T) {
	t.Parallel()

	t.Run("happy path records session", func(t *testing.T) {
		t.Parallel()

		env := newOrderTestEnv()
		order := env.seedOrder(t, db.StatusPending, db.PaymentUnpaid)

		url, err := env.service.CreateCheckout(context.Background(), customer, order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if url != "https://pay.example/cs_test_1" {
			t.Fatalf("unexpected checkout url: %q", url)
		}

		stored := env.store.orders[order.ID]
		if stored.CheckoutSessionID != "cs_test_1" {
			t.Fatalf("session not recorded on order, got %q", stored.CheckoutSessionID)
		}
		params := env.gateway.created[0]
		if params.OrderID != order.ID {
			t.Errorf("session metadata bound to wrong order: %s", params.OrderID)
		}
		if params.UnitPriceCents != 3500 || params.Quantity != 2 {
			t.Errorf("unexpected line item: %d x %d", params.UnitPriceCents, params.Quantity)
		}
	})

	t.Run("only the customer can pay", func(t *testing.T) {
		t.Parallel()

		env := newOrderTestEnv()
		order := env.seedOrder(t, db.StatusPending, db.PaymentUnpaid)

		_, err := env.service.CreateCheckout(context.Background(), stranger, order.ID)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("paid order cannot re-enter checkout", func(t *testing.T) {
		t.Parallel()

		env := newOrderTestEnv()
		order := env.seedOrder(t, db.StatusPending, db.PaymentPaid)

		_, err := env.service.CreateCheckout(context.Background(), customer, order.ID)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		t.Parallel()

		env := newOrderTestEnv()
		_, err := env.service.CreateCheckout(context.Background(), customer, uuid.New())
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func completeSession(orderID uuid.UUID) *stripe.Session {
	return &stripe.Session{
		ID:              "cs_test_1",
		Status:          stripe.SessionComplete,
		PaymentIntentID: "pi_123",
		AmountTotal:     7000,
		Metadata: map[string]string{
			"order_id":       orderID.String(),
			"customer_email": customer.Email,
		},
	}
}

func TestConfirmPayment(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	order := env.seedOrder(t, db.StatusPending, db.PaymentUnpaid)
	env.gateway.session = completeSession(order.ID)

	got, err := env.service.ConfirmPayment(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.PaymentStatus != db.PaymentPaid {
		t.Errorf("expected paid, got %s", got.PaymentStatus)
	}
	if got.TransactionID != "pi_123" {
		t.Errorf("expected transaction pi_123, got %q", got.TransactionID)
	}
	if got.TotalCents != 7000 {
		t.Errorf("expected provider-settled total 7000, got %d", got.TotalCents)
	}
	if got.Status != db.StatusPending {
		t.Errorf("fulfillment status must not move on payment, got %s", got.Status)
	}
	if len(env.emails.sent) != 1 {
		t.Errorf("expected one confirmation email, got %d", len(env.emails.sent))
	}
}

func TestConfirmPaymentReplay(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	order := env.seedOrder(t, db.StatusPending, db.PaymentUnpaid)
	env.gateway.session = completeSession(order.ID)

	if _, err := env.service.ConfirmPayment(context.Background(), "cs_test_1"); err != nil {
		t.Fatalf("first confirmation failed: %v", err)
	}

	// Simulate a second delivery of the same confirmation with a
	// different payment reference; the first write must stand.
	env.gateway.session.PaymentIntentID = "pi_456"
	got, err := env.service.ConfirmPayment(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("replay should be absorbed, got %v", err)
	}

	if got.TransactionID != "pi_123" {
		t.Errorf("replay overwrote the transaction reference: %q", got.TransactionID)
	}
	if len(env.emails.sent) != 1 {
		t.Errorf("replay must not resend email, got %d sends", len(env.emails.sent))
	}
}

func TestConfirmPaymentIncompleteSession(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	order := env.seedOrder(t, db.StatusPending, db.PaymentUnpaid)
	sess := completeSession(order.ID)
	sess.Status = "open"
	env.gateway.session = sess

	_, err := env.service.ConfirmPayment(context.Background(), "cs_test_1")
	if !errors.Is(err, ErrPaymentIncomplete) {
		t.Fatalf("expected ErrPaymentIncomplete, got %v", err)
	}

	if env.store.orders[order.ID].PaymentStatus != db.PaymentUnpaid {
		t.Error("incomplete session must not mark the order paid")
	}
}

func TestConfirmPaymentSessionNotFound(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	env.gateway.retrieveErr = stripe.ErrSessionNotFound

	_, err := env.service.ConfirmPayment(context.Background(), "cs_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConfirmPaymentMissingOrderBinding(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	env.gateway.session = &stripe.Session{
		ID:     "cs_test_1",
		Status: stripe.SessionComplete,
	}

	_, err := env.service.ConfirmPayment(context.Background(), "cs_test_1")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	env.gateway.session = completeSession(uuid.New())

	_, err := env.service.ConfirmPayment(context.Background(), "cs_test_1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		caller  auth.Identity
		status  models.FulfillmentStatus
		wantErr error
	}{
		{name: "customer cancels pending", caller: customer, status: db.StatusPending},
		{name: "seller cancels shipped", caller: seller, status: db.StatusShipped},
		{name: "admin cancels pending", caller: admin, status: db.StatusPending},
		{name: "stranger is forbidden", caller: stranger, status: db.StatusPending, wantErr: ErrForbidden},
		{name: "delivered is final", caller: customer, status: db.StatusDelivered, wantErr: ErrConflict},
		{name: "already cancelled", caller: customer, status: db.StatusCancelled, wantErr: ErrConflict},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newOrderTestEnv()
			order := env.seedOrder(t, tc.status, db.PaymentUnpaid)

			got, err := env.service.Cancel(context.Background(), tc.caller, order.ID)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != db.StatusCancelled {
				t.Fatalf("expected cancelled, got %s", got.Status)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		caller    auth.Identity
		status    models.FulfillmentStatus
		requested models.FulfillmentStatus
		wantErr   error
	}{
		{name: "seller ships pending", caller: seller, status: db.StatusPending, requested: db.StatusShipped},
		{name: "seller delivers shipped", caller: seller, status: db.StatusShipped, requested: db.StatusDelivered},
		{name: "admin ships pending", caller: admin, status: db.StatusPending, requested: db.StatusShipped},
		{name: "skipping a step", caller: seller, status: db.StatusPending, requested: db.StatusDelivered, wantErr: ErrConflict},
		{name: "moving backwards", caller: seller, status: db.StatusDelivered, requested: db.StatusShipped, wantErr: ErrConflict},
		{name: "cancelled is terminal", caller: seller, status: db.StatusCancelled, requested: db.StatusShipped, wantErr: ErrConflict},
		{name: "customer cannot update", caller: customer, status: db.StatusPending, requested: db.StatusShipped, wantErr: ErrForbidden},
		{name: "cancel goes through its own endpoint", caller: seller, status: db.StatusPending, requested: db.StatusCancelled, wantErr: ErrInvalidInput},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newOrderTestEnv()
			order := env.seedOrder(t, tc.status, db.PaymentPaid)

			got, err := env.service.UpdateStatus(context.Background(), tc.caller, order.ID, tc.requested)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tc.requested {
				t.Fatalf("expected %s, got %s", tc.requested, got.Status)
			}
		})
	}
}

func TestListOrdersScoping(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	mine := env.seedOrder(t, db.StatusPending, db.PaymentUnpaid)

	other := &db.Order{
		Customer:       models.Party{Email: "other@shop.example"},
		Seller:         models.Party{Email: "another-library@shop.example"},
		BookID:         uuid.New(),
		BookName:       "TAOCP",
		UnitPriceCents: 9900,
		Quantity:       1,
		Status:         db.StatusPending,
		PaymentStatus:  db.PaymentUnpaid,
	}
	if err := env.store.Create(context.Background(), other); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	orders, err := env.service.ListOrders(context.Background(), customer, ViewCustomerOrders, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != mine.ID {
		t.Fatalf("customer view leaked foreign orders: %d returned", len(orders))
	}

	if _, err := env.service.ListOrders(context.Background(), customer, ViewAdminAll, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for admin view, got %v", err)
	}

	all, err := env.service.ListOrders(context.Background(), admin, ViewAdminAll, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin view should see everything, got %d", len(all))
	}

	if _, err := env.service.ListOrders(context.Background(), customer, ViewCustomerOrders, "other@shop.example"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign email, got %v", err)
	}

	others, err := env.service.ListOrders(context.Background(), admin, ViewCustomerOrders, "other@shop.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(others) != 1 || others[0].ID != other.ID {
		t.Fatalf("admin override returned wrong orders: %d", len(others))
	}
}

func TestListInvoices(t *testing.T) {
	t.Parallel()

	env := newOrderTestEnv()
	env.seedOrder(t, db.StatusPending, db.PaymentUnpaid)
	paid := env.seedOrder(t, db.StatusShipped, db.PaymentPaid)

	invoices, err := env.service.ListInvoices(context.Background(), customer, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("expected only paid orders, got %d invoices", len(invoices))
	}

	invoice := invoices[0]
	if invoice.OrderID != paid.ID {
		t.Errorf("wrong order projected: %s", invoice.OrderID)
	}
	if invoice.TotalPrice != 70.00 {
		t.Errorf("expected major-unit total 70.00, got %v", invoice.TotalPrice)
	}
	if invoice.UnitPrice != 35.00 {
		t.Errorf("expected major-unit price 35.00, got %v", invoice.UnitPrice)
	}
}
