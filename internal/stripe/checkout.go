// Package stripe wraps the payment provider's hosted checkout flow.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"
)

var (
	ErrGatewayUnavailable = errors.New("payment provider unavailable")
	ErrInvalidLineItem    = errors.New("invalid line item")
	ErrSessionNotFound    = errors.New("checkout session not found")
)

// Session is the provider-neutral view of a checkout session that the
// order lifecycle depends on. Metadata carries the order binding.
type Session struct {
	ID              string
	URL             string
	Status          string
	PaymentIntentID string
	AmountTotal     int64
	Metadata        map[string]string
}

// SessionComplete is the provider's completion state for a session
// whose payment went through.
const SessionComplete = string(stripeapi.CheckoutSessionStatusComplete)

// CheckoutParams holds the line-item data and the order binding for a
// new hosted payment page.
type CheckoutParams struct {
	OrderID        uuid.UUID
	BookID         uuid.UUID
	BookName       string
	ImageURL       string
	UnitPriceCents int64
	Quantity       int64
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
}

type Client struct {
	client *stripeapi.Client
}

func NewClient(secretKey string) *Client {
	return &Client{client: stripeapi.NewClient(secretKey)}
}

// CreateSession requests a hosted payment page for one order. The
// order's own identifier travels in the session metadata; retrieval
// reads it back as the authoritative binding.
func (c *Client) CreateSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if params.UnitPriceCents <= 0 {
		return nil, fmt.Errorf("%w: unit price must be positive", ErrInvalidLineItem)
	}
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidLineItem)
	}

	productData := &stripeapi.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name: stripeapi.String(params.BookName),
	}
	if params.ImageURL != "" {
		productData.Images = stripeapi.StringSlice([]string{params.ImageURL})
	}

	sessionParams := &stripeapi.CheckoutSessionCreateParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL: stripeapi.String(params.SuccessURL),
		CancelURL:  stripeapi.String(params.CancelURL),
		LineItems: []*stripeapi.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:    stripeapi.String("usd"),
					ProductData: productData,
					UnitAmount:  stripeapi.Int64(params.UnitPriceCents),
				},
				Quantity: stripeapi.Int64(params.Quantity),
			},
		},
		Metadata: map[string]string{
			"order_id":       params.OrderID.String(),
			"book_id":        params.BookID.String(),
			"customer_email": params.CustomerEmail,
			"quantity":       strconv.FormatInt(params.Quantity, 10),
		},
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripeapi.String(params.CustomerEmail)
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return sessionFromAPI(sess), nil
}

// RetrieveSession fetches the current provider-side state of a
// previously created session.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrSessionNotFound)
	}

	sess, err := c.client.V1CheckoutSessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		var stripeErr *stripeapi.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripeapi.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return sessionFromAPI(sess), nil
}

func sessionFromAPI(sess *stripeapi.CheckoutSession) *Session {
	session := &Session{
		ID:          sess.ID,
		URL:         sess.URL,
		Status:      string(sess.Status),
		AmountTotal: sess.AmountTotal,
		Metadata:    sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		session.PaymentIntentID = sess.PaymentIntent.ID
	}
	return session
}
