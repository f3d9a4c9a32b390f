package services

import (
	"context"
	"fmt"

	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/email"
)

// OrderEmailSender notifies the customer after a payment reconciles.
// Sending is best effort; failures never roll back the payment.
type OrderEmailSender interface {
	SendPaymentConfirmation(ctx context.Context, order *db.Order) error
}

type orderEmailSender struct {
	provider email.Provider
}

// NewOrderEmailSender wraps the configured email provider. A nil
// provider yields a sender that silently drops everything, so callers
// never have to branch on whether email is enabled.
func NewOrderEmailSender(provider email.Provider) OrderEmailSender {
	if provider == nil {
		return noopEmailSender{}
	}
	return &orderEmailSender{provider: provider}
}

func (s *orderEmailSender) SendPaymentConfirmation(ctx context.Context, order *db.Order) error {
	total := float64(order.TotalCents) / 100
	text := fmt.Sprintf(
		"Thanks for your purchase!\n\nOrder: %s\nBook: %s\nQuantity: %d\nTotal: $%.2f\nTransaction: %s\n",
		order.ID, order.BookName, order.Quantity, total, order.TransactionID,
	)
	html := fmt.Sprintf(
		`<p>Thanks for your purchase!</p>
<ul>
  <li>Order: %s</li>
  <li>Book: %s</li>
  <li>Quantity: %d</li>
  <li>Total: $%.2f</li>
  <li>Transaction: %s</li>
</ul>`,
		order.ID, order.BookName, order.Quantity, total, order.TransactionID,
	)

	return s.provider.SendEmail(ctx, &email.Email{
		To:      order.Customer.Email,
		Subject: fmt.Sprintf("Payment received for %q", order.BookName),
		Text:    text,
		HTML:    html,
	})
}

type noopEmailSender struct{}

func (noopEmailSender) SendPaymentConfirmation(ctx context.Context, order *db.Order) error {
	return nil
}
