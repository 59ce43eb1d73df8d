package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// Notifier tells interested parties about a booking status change.
type Notifier interface {
	Notify(ctx context.Context, ev models.BookingEvent) error
}

// Webhook posts booking events to the driver app backend.
type Webhook struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhook(endpoint string) *Webhook {
	return &Webhook{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

type webhookPayload struct {
	Event     string  `json:"event"`
	BookingID string  `json:"booking_id"`
	DriverID  string  `json:"driver_id"`
	Pickup    string  `json:"pickup"`
	Dropoff   string  `json:"dropoff"`
	PickupAt  string  `json:"pickup_time"`
	Fare      float64 `json:"fare"`
}

func (w *Webhook) Notify(ctx context.Context, ev models.BookingEvent) error {
	b, err := json.Marshal(webhookPayload{
		Event:     ev.Type,
		BookingID: ev.Booking.ID,
		DriverID:  ev.Booking.Driver.ID,
		Pickup:    ev.Booking.Pickup,
		Dropoff:   ev.Booking.Dropoff,
		PickupAt:  ev.Booking.PickupTime,
		Fare:      ev.Booking.Fare,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("driver webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("driver webhook: status %d", resp.StatusCode)
	}
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi struct {
	Notifiers []Notifier
	Logger    *slog.Logger
}

func (m Multi) Notify(ctx context.Context, ev models.BookingEvent) error {
	var errs []error
	for _, n := range m.Notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			if m.Logger != nil {
				m.Logger.Warn("booking notification failed", "booking_id", ev.Booking.ID, "event", ev.Type, "error", err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
