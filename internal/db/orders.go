package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookcourier/bookcourier/internal/models"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid order status transition")

	// ErrAlreadyPaid marks a conditional payment write that lost to an
	// earlier confirmation of the same order. Callers treat it as a
	// safely absorbed replay, not a failure.
	ErrAlreadyPaid = errors.New("order already paid")
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `id, customer_name, customer_email, seller_name, seller_email,
	book_id, book_name, image_url, unit_price_cents, quantity, total_cents,
	order_date, status, payment_status, transaction_id, checkout_session_id,
	created_at, paid_at`

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	query := `
		INSERT INTO orders (customer_name, customer_email, seller_name, seller_email,
			book_id, book_name, image_url, unit_price_cents, quantity,
			order_date, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	row := s.pool.QueryRow(ctx, query,
		order.Customer.Name, order.Customer.Email,
		order.Seller.Name, order.Seller.Email,
		order.BookID, order.BookName,
		textOrNull(order.ImageURL),
		order.UnitPriceCents, order.Quantity,
		order.OrderDate, string(order.Status), string(order.PaymentStatus),
	)
	return row.Scan(&order.ID, &order.CreatedAt)
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	return scanOrder(s.pool.QueryRow(ctx, query, orderID))
}

// OrderFilter is the predicate the access policy produces for read
// views. Zero-value fields are not applied.
type OrderFilter struct {
	CustomerEmail string
	SellerEmail   string
	PaidOnly      bool
}

func (s *OrderStore) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders`, orderColumns)
	var (
		conditions []string
		args       []any
	)
	if filter.CustomerEmail != "" {
		args = append(args, filter.CustomerEmail)
		conditions = append(conditions, fmt.Sprintf("customer_email = $%d", len(args)))
	}
	if filter.SellerEmail != "" {
		args = append(args, filter.SellerEmail)
		conditions = append(conditions, fmt.Sprintf("seller_email = $%d", len(args)))
	}
	if filter.PaidOnly {
		args = append(args, string(PaymentPaid))
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	for i, condition := range conditions {
		if i == 0 {
			query += " WHERE " + condition
		} else {
			query += " AND " + condition
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// SetCheckoutSession records the provider session reference for a
// checkout attempt. Retried checkouts overwrite the reference; only
// one session can later reconcile, so the newest wins.
func (s *OrderStore) SetCheckoutSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	query := `
		UPDATE orders
		SET checkout_session_id = $1
		WHERE id = $2 AND status = $3 AND payment_status = $4
	`
	cmdTag, err := s.pool.Exec(ctx, query, sessionID, orderID, string(StatusPending), string(PaymentUnpaid))
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending/unpaid", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkPaid applies the unpaid → paid transition. The payment_status
// condition makes the write a compare-and-set: a duplicate
// confirmation affects zero rows and surfaces as ErrAlreadyPaid
// instead of overwriting the first transaction reference.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, transactionID string, totalCents int) error {
	query := `
		UPDATE orders
		SET payment_status = $1, transaction_id = $2, total_cents = $3, paid_at = NOW()
		WHERE id = $4 AND payment_status = $5
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(PaymentPaid), transactionID, totalCents, orderID, string(PaymentUnpaid))
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() != 0 {
		return nil
	}

	var paymentStatus string
	if err := s.pool.QueryRow(ctx, `SELECT payment_status FROM orders WHERE id = $1`, orderID).Scan(&paymentStatus); err != nil {
		return err
	}
	if models.PaymentStatus(paymentStatus) == PaymentPaid {
		return ErrAlreadyPaid
	}
	return fmt.Errorf("%w: expected unpaid", ErrInvalidStatusTransition)
}

func (s *OrderStore) Cancel(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status IN ($3, $4)
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(StatusCancelled), orderID, string(StatusPending), string(StatusShipped))
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected pending/shipped", ErrInvalidStatusTransition)
	}
	return nil
}

// AdvanceStatus moves the fulfillment status to its successor,
// conditioned on the expected prior state so concurrent updates
// cannot both win.
func (s *OrderStore) AdvanceStatus(ctx context.Context, orderID uuid.UUID, from, to models.FulfillmentStatus) error {
	query := `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(to), orderID, string(from))
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected %s", ErrInvalidStatusTransition, from)
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order             Order
		imageURL          pgtype.Text
		totalCents        pgtype.Int4
		orderDate         pgtype.Date
		transactionID     pgtype.Text
		checkoutSessionID pgtype.Text
		paidAt            pgtype.Timestamptz
		status            string
		paymentStatus     string
	)
	err := row.Scan(
		&order.ID, &order.Customer.Name, &order.Customer.Email,
		&order.Seller.Name, &order.Seller.Email,
		&order.BookID, &order.BookName, &imageURL,
		&order.UnitPriceCents, &order.Quantity, &totalCents,
		&orderDate, &status, &paymentStatus,
		&transactionID, &checkoutSessionID,
		&order.CreatedAt, &paidAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = models.FulfillmentStatus(status)
	order.PaymentStatus = models.PaymentStatus(paymentStatus)
	if imageURL.Valid {
		order.ImageURL = imageURL.String
	}
	if totalCents.Valid {
		order.TotalCents = int(totalCents.Int32)
	}
	if orderDate.Valid {
		order.OrderDate = orderDate.Time.Format("2006-01-02")
	}
	if transactionID.Valid {
		order.TransactionID = transactionID.String
	}
	if checkoutSessionID.Valid {
		order.CheckoutSessionID = checkoutSessionID.String
	}
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}
	return &order, nil
}

func textOrNull(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}
