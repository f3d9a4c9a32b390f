package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
	"github.com/bookcourier/bookcourier/internal/observability"
	"github.com/bookcourier/bookcourier/internal/stripe"
)

type orderStore interface {
	Create(ctx context.Context, order *db.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	List(ctx context.Context, filter db.OrderFilter) ([]*db.Order, error)
	SetCheckoutSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, transactionID string, totalCents int) error
	Cancel(ctx context.Context, orderID uuid.UUID) error
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, from, to models.FulfillmentStatus) error
}

type checkoutGateway interface {
	CreateSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.Session, error)
}

type roleResolver interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// OrderService owns the order lifecycle: creation, checkout, payment
// reconciliation and fulfillment transitions. All writes that change
// state go through conditional store updates, so concurrent callers
// race safely and the loser gets ErrConflict.
type OrderService struct {
	orders  orderStore
	gateway checkoutGateway
	roles   roleResolver
	emails  OrderEmailSender
	metrics *observability.Metrics
	logger  *slog.Logger

	successURL string
	cancelURL  string
}

type OrderServiceConfig struct {
	Orders     orderStore
	Gateway    checkoutGateway
	Roles      roleResolver
	Emails     OrderEmailSender
	Metrics    *observability.Metrics
	Logger     *slog.Logger
	SuccessURL string
	CancelURL  string
}

func NewOrderService(cfg OrderServiceConfig) *OrderService {
	return &OrderService{
		orders:     cfg.Orders,
		gateway:    cfg.Gateway,
		roles:      cfg.Roles,
		emails:     cfg.Emails,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

type CreateOrderInput struct {
	CustomerName   string
	BookID         uuid.UUID
	BookName       string
	ImageURL       string
	Seller         models.Party
	UnitPriceCents int
	Quantity       int
}

// CreateOrder records a new pending, unpaid order for the verified
// caller. The customer identity comes from the token, never the body.
func (s *OrderService) CreateOrder(ctx context.Context, identity auth.Identity, input CreateOrderInput) (*db.Order, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if input.UnitPriceCents <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(input.BookName) == "" {
		return nil, fmt.Errorf("%w: book name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Seller.Email) == "" {
		return nil, fmt.Errorf("%w: seller email is required", ErrInvalidInput)
	}

	order := &db.Order{
		Customer:       models.Party{Name: input.CustomerName, Email: identity.Email},
		Seller:         input.Seller,
		BookID:         input.BookID,
		BookName:       input.BookName,
		ImageURL:       input.ImageURL,
		UnitPriceCents: input.UnitPriceCents,
		Quantity:       input.Quantity,
		OrderDate:      time.Now().UTC().Format("2006-01-02"),
		Status:         db.StatusPending,
		PaymentStatus:  db.PaymentUnpaid,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.String("customer_email", order.Customer.Email),
		slog.String("book_name", order.BookName),
	)
	return order, nil
}

// CreateCheckout opens a hosted payment page for a pending, unpaid
// order and records the session reference on the order. Only the
// order's customer can start a checkout.
func (s *OrderService) CreateCheckout(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (string, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if identity.Email != order.Customer.Email {
		return "", fmt.Errorf("%w: only the order's customer can pay for it", ErrForbidden)
	}
	if order.PaymentStatus != db.PaymentUnpaid || order.Status != db.StatusPending {
		return "", fmt.Errorf("%w: order is not awaiting payment", ErrConflict)
	}

	sess, err := s.gateway.CreateSession(ctx, stripe.CheckoutParams{
		OrderID:        order.ID,
		BookID:         order.BookID,
		BookName:       order.BookName,
		ImageURL:       order.ImageURL,
		UnitPriceCents: int64(order.UnitPriceCents),
		Quantity:       int64(order.Quantity),
		CustomerEmail:  order.Customer.Email,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
	})
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidLineItem) {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.orders.SetCheckoutSession(ctx, order.ID, sess.ID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return "", fmt.Errorf("%w: order is not awaiting payment", ErrConflict)
		}
		return "", fmt.Errorf("failed to record checkout session: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout session created",
		slog.String("order_id", order.ID.String()),
		slog.String("session_id", sess.ID),
	)
	return sess.URL, nil
}

// ConfirmPayment reconciles a checkout session against its order. The
// order identifier is taken from the session metadata the gateway
// stamped at creation, so a confirmation can never be applied to a
// different order than the one it paid for. The unpaid → paid write is
// a compare-and-set; duplicate confirmations of the same session are
// absorbed and return the already-paid order.
func (s *OrderService) ConfirmPayment(ctx context.Context, sessionID string) (*db.Order, error) {
	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, stripe.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: checkout session", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	if sess.Status != stripe.SessionComplete {
		return nil, fmt.Errorf("%w: session status is %q", ErrPaymentIncomplete, sess.Status)
	}

	rawOrderID, ok := sess.Metadata["order_id"]
	if !ok || rawOrderID == "" {
		return nil, fmt.Errorf("%w: session carries no order reference", ErrInvalidInput)
	}
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed order reference", ErrInvalidInput)
	}

	err = s.orders.MarkPaid(ctx, orderID, sess.PaymentIntentID, int(sess.AmountTotal))
	switch {
	case err == nil:
		s.metrics.PaymentsConfirmed.Inc()
		s.logger.InfoContext(ctx, "payment confirmed",
			slog.String("order_id", orderID.String()),
			slog.String("session_id", sess.ID),
			slog.Int64("amount_total", sess.AmountTotal),
		)
	case errors.Is(err, db.ErrAlreadyPaid):
		s.metrics.PaymentsReplayed.Inc()
		s.logger.InfoContext(ctx, "duplicate payment confirmation absorbed",
			slog.String("order_id", orderID.String()),
			slog.String("session_id", sess.ID),
		)
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	default:
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	order, getErr := s.getOrder(ctx, orderID)
	if getErr != nil {
		return nil, getErr
	}

	if err == nil && s.emails != nil {
		if sendErr := s.emails.SendPaymentConfirmation(ctx, order); sendErr != nil {
			s.logger.WarnContext(ctx, "failed to send payment confirmation email",
				slog.String("order_id", order.ID.String()),
				slog.String("error", sendErr.Error()),
			)
		}
	}
	return order, nil
}

// Cancel moves an order to the terminal cancelled state. Either party
// may cancel while the order is pending or shipped; delivered orders
// are final.
func (s *OrderService) Cancel(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*db.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	isAdmin, err := s.roles.IsAdmin(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller role: %w", err)
	}
	if !canMutate(identity, order, true, isAdmin) {
		return nil, fmt.Errorf("%w: not a party to this order", ErrForbidden)
	}
	if !models.Cancellable(order.Status) {
		return nil, fmt.Errorf("%w: %s orders cannot be cancelled", ErrConflict, order.Status)
	}

	if err := s.orders.Cancel(ctx, orderID); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return nil, fmt.Errorf("%w: order state changed", ErrConflict)
		}
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", orderID.String()),
		slog.String("by", identity.Email),
	)
	return s.getOrder(ctx, orderID)
}

// UpdateStatus advances fulfillment by exactly one step. The requested
// status must be the successor of the order's current status; skipping
// a step or moving backwards is rejected. Seller-side only.
func (s *OrderService) UpdateStatus(ctx context.Context, identity auth.Identity, orderID uuid.UUID, requested models.FulfillmentStatus) (*db.Order, error) {
	if requested != db.StatusShipped && requested != db.StatusDelivered {
		return nil, fmt.Errorf("%w: status must be shipped or delivered", ErrInvalidInput)
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	isAdmin, err := s.roles.IsAdmin(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller role: %w", err)
	}
	if !canMutate(identity, order, false, isAdmin) {
		return nil, fmt.Errorf("%w: only the seller can update fulfillment", ErrForbidden)
	}

	next, ok := models.NextStatus(order.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %s orders cannot advance", ErrConflict, order.Status)
	}
	if requested != next {
		return nil, fmt.Errorf("%w: %s does not follow %s", ErrConflict, requested, order.Status)
	}

	if err := s.orders.AdvanceStatus(ctx, orderID, order.Status, requested); err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			return nil, fmt.Errorf("%w: order state changed", ErrConflict)
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID.String()),
		slog.String("status", string(requested)),
	)
	return s.getOrder(ctx, orderID)
}

// ListOrders returns the orders visible to the caller under the given
// view. targetEmail lets an admin read another user's view; everyone
// else is pinned to their own identity.
func (s *OrderService) ListOrders(ctx context.Context, identity auth.Identity, view View, targetEmail string) ([]*db.Order, error) {
	subject := identity
	needAdmin := view == ViewAdminAll

	if targetEmail != "" && !strings.EqualFold(targetEmail, identity.Email) {
		needAdmin = true
		subject = auth.Identity{Email: strings.ToLower(strings.TrimSpace(targetEmail))}
	}

	isAdmin := false
	if needAdmin {
		var err error
		isAdmin, err = s.roles.IsAdmin(ctx, identity.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve caller role: %w", err)
		}
		if !isAdmin {
			return nil, fmt.Errorf("%w: cannot read another user's orders", ErrForbidden)
		}
	}

	filter, err := FilterForView(subject, view, isAdmin)
	if err != nil {
		return nil, err
	}
	return s.orders.List(ctx, filter)
}

// ListInvoices projects the caller's paid orders into invoices, with
// amounts converted to major units.
func (s *OrderService) ListInvoices(ctx context.Context, identity auth.Identity, targetEmail string) ([]models.Invoice, error) {
	orders, err := s.ListOrders(ctx, identity, ViewInvoices, targetEmail)
	if err != nil {
		return nil, err
	}
	invoices := make([]models.Invoice, 0, len(orders))
	for _, order := range orders {
		invoices = append(invoices, models.InvoiceFromOrder(order))
	}
	return invoices, nil
}

// GetOrder returns a single order, restricted to its parties and
// admins.
func (s *OrderService) GetOrder(ctx context.Context, identity auth.Identity, orderID uuid.UUID) (*db.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if identity.Email != order.Customer.Email && identity.Email != order.Seller.Email {
		isAdmin, err := s.roles.IsAdmin(ctx, identity.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve caller role: %w", err)
		}
		if !isAdmin {
			return nil, fmt.Errorf("%w: not a party to this order", ErrForbidden)
		}
	}
	return order, nil
}

func (s *OrderService) getOrder(ctx context.Context, orderID uuid.UUID) (*db.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}
