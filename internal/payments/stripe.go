package payments

import (
	"context"
	"math"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/example/ride-booking/internal/models"
)

// StripeClient holds a booking's fare with a manual-capture PaymentIntent,
// captures it on trip completion and cancels it on booking cancellation.
type StripeClient struct {
	currency string
}

// NewStripeClient sets the package-level stripe key.
func NewStripeClient(apiKey, currency string) *StripeClient {
	stripe.Key = apiKey
	if currency == "" {
		currency = "php"
	}
	return &StripeClient{currency: currency}
}

// Hold returns the PaymentIntent ID holding b's fare.
func (s *StripeClient) Hold(ctx context.Context, b models.Booking) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(b.Fare)),
		Currency: stripe.String(s.currency),
	}
	params.Context = ctx
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("booking_id", b.ID)
	params.AddMetadata("client_id", b.ClientID)
	params.AddMetadata("vehicle", b.Vehicle)
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := paymentintent.Capture(paymentIntentID, params)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeClient) Cancel(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(paymentIntentID, params)
	return err
}

// MinorUnits converts a fare to centavos, rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Noop is used when no payment provider is configured.
type Noop struct{}

func (Noop) Hold(context.Context, models.Booking) (string, error) { return "", nil }
func (Noop) Capture(context.Context, string) error                { return nil }
func (Noop) Cancel(context.Context, string) error                 { return nil }
