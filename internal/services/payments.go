package services

import (
	"context"
	"fmt"
	"math"

	"stride_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentGateway creates provider-side payment intents for orders.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, o *models.Order) (PaymentIntent, error)
}

// StripeGateway uses the package-level stripe.Key set at startup.
type StripeGateway struct {
	Currency string
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{Currency: currency}
}

// MinorUnits converts an amount to the smallest currency unit.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *StripeGateway) CreateIntent(_ context.Context, o *models.Order) (PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(o.Total)),
		Currency: stripe.String(g.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		ReceiptEmail: stripe.String(o.Customer.Email),
		Metadata: map[string]string{
			"order_id": o.ID.Hex(),
			"user_id":  o.User.Hex(),
		},
	}
	// One intent per order even if the client retries.
	params.SetIdempotencyKey("order-" + o.ID.Hex())

	intent, err := paymentintent.New(params)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("stripe payment intent: %w", err)
	}
	return PaymentIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
