package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
)

// Confirm books the computed route: it assigns a driver, prices the trip,
// holds the fare and persists the booking.
//
// A store failure does not undo the confirmation. The booking is returned
// with Persisted false together with a *bookingstore.PersistenceError, and
// Sync saves it later.
func (s *Session) Confirm(ctx context.Context) (models.Booking, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.confirmed {
		s.mu.Unlock()
		return models.Booking{}, ErrAlreadyConfirmed
	}
	if s.route == nil || s.route.DistanceKm <= 0 {
		s.mu.Unlock()
		return models.Booking{}, ErrNoRoute
	}
	if s.mode == models.Scheduled && s.pickupTime == "" {
		s.mu.Unlock()
		return models.Booking{}, ErrPickupTimeRequired
	}
	driver, err := s.deps.Drivers.AssignRandomAvailable()
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("no driver for booking", "error", err)
		return models.Booking{}, err
	}
	now := s.deps.Now()
	b := models.Booking{
		ID:           s.deps.NewID(),
		ClientID:     s.user.ID,
		ClientName:   s.user.Name,
		Pickup:       s.pickup.Label,
		Dropoff:      s.dropoff.Label,
		PickupCoord:  s.pickup.Coord,
		DropoffCoord: s.dropoff.Coord,
		Type:         s.mode,
		Fare:         s.deps.Fares.Fare(s.route.DistanceKm, s.vehicle),
		Status:       models.Confirmed,
		Driver:       driver,
		Vehicle:      s.vehicle,
		DistanceKm:   s.route.DistanceKm,
		DurationMin:  s.route.DurationMin,
		ConfirmedAt:  now,
		UpdatedAt:    now,
	}
	b.PickupTime, b.DropoffTime = tripTimes(b.Type, now, s.pickupTime, b.DurationMin)
	s.confirmed = true
	gen := s.gen
	s.mu.Unlock()

	if s.deps.Payments != nil {
		ref, err := s.deps.Payments.Hold(ctx, b)
		if err != nil {
			s.abortConfirm(gen, driver.ID)
			s.logger.Error("fare hold failed", "booking_id", b.ID, "error", err)
			return models.Booking{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		b.PaymentRef = ref
	}

	s.mu.Lock()
	stored := b
	s.bookings = append(s.bookings, &stored)
	s.byID[b.ID] = &stored
	s.mu.Unlock()

	observability.BookingsConfirmed.Inc()
	s.logger.Info("booking confirmed", "booking_id", b.ID, "driver_id", driver.ID, "fare", b.Fare, "type", b.Type)

	perr := s.persist(ctx, b)
	b, _ = s.Booking(b.ID)
	s.emit(ctx, models.EventConfirmed, b)
	return b, perr
}

func (s *Session) abortConfirm(gen uint64, driverID string) {
	if err := s.deps.Drivers.Release(driverID); err != nil {
		s.logger.Error("driver release failed", "driver_id", driverID, "error", err)
	}
	s.mu.Lock()
	if s.gen == gen {
		s.confirmed = false
	}
	s.mu.Unlock()
}

// persist adds b to the store and records the outcome. A row already
// stored under b's id, left by an add that landed but reported failure,
// is brought up to b's status. Callers hold persistMu.
func (s *Session) persist(ctx context.Context, b models.Booking) error {
	err := s.deps.Store.Add(ctx, b)
	if errors.Is(err, bookingstore.ErrDuplicateID) {
		err = s.reconcile(ctx, b)
	}
	s.mu.Lock()
	if cur, ok := s.byID[b.ID]; ok && err == nil {
		cur.Persisted = true
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("booking not saved", "booking_id", b.ID, "error", err)
	}
	return err
}

func (s *Session) reconcile(ctx context.Context, b models.Booking) error {
	rec, err := s.deps.Store.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	if models.BookingStatus(rec.Status) == b.Status {
		return nil
	}
	s.logger.Info("stored booking out of date", "booking_id", b.ID, "stored", rec.Status, "status", b.Status)
	return s.deps.Store.UpdateStatus(ctx, b.ID, b.Status)
}

// tripTimes formats pickup and dropoff. Instant trips start now; scheduled
// trips start at the chosen time of day, and an unparseable choice leaves
// the dropoff unknown.
func tripTimes(kind models.BookingType, now time.Time, chosen string, durationMin float64) (string, string) {
	d := time.Duration(durationMin * float64(time.Minute))
	if kind == models.Instant {
		return now.Format(InstantLayout), now.Add(d).Format(InstantLayout)
	}
	for _, layout := range []string{ScheduledLayout, "3:04 PM", InstantLayout, "15:04"} {
		if t, err := time.Parse(layout, chosen); err == nil {
			return chosen, t.Add(d).Format(layout)
		}
	}
	return chosen, UnknownTime
}

// Cancel cancels a confirmed booking within the cancel window and returns
// its driver to the pool. Cancelling a cancelled booking is a no-op.
func (s *Session) Cancel(ctx context.Context, id string) (models.Booking, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	b, err := s.Booking(id)
	if err != nil {
		return b, err
	}
	switch b.Status {
	case models.Cancelled:
		return b, nil
	case models.Completed:
		return b, ErrInvalidTransition
	}
	if s.deps.Now().Sub(b.ConfirmedAt) >= s.deps.CancelWindow {
		return b, ErrCancelWindowClosed
	}
	if b.Persisted {
		if err := s.deps.Store.UpdateStatus(ctx, id, models.Cancelled); err != nil {
			s.logger.Error("cancellation not saved", "booking_id", id, "error", err)
			return b, err
		}
	}
	b = s.setStatus(id, models.Cancelled)

	s.releaseDriver(b)
	if s.deps.Payments != nil && b.PaymentRef != "" {
		if err := s.deps.Payments.Cancel(ctx, b.PaymentRef); err != nil {
			s.logger.Error("fare hold release failed", "booking_id", id, "error", err)
		}
	}
	observability.BookingsCancelled.Inc()
	s.logger.Info("booking cancelled", "booking_id", id)
	s.emit(ctx, models.EventCancelled, b)
	return b, nil
}

// Complete ends a confirmed trip, captures the fare and frees the driver.
// Completing a completed booking is a no-op.
func (s *Session) Complete(ctx context.Context, id string) (models.Booking, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	b, err := s.Booking(id)
	if err != nil {
		return b, err
	}
	switch b.Status {
	case models.Completed:
		return b, nil
	case models.Cancelled:
		return b, ErrInvalidTransition
	}
	if b.Persisted {
		if err := s.deps.Store.UpdateStatus(ctx, id, models.Completed); err != nil {
			s.logger.Error("completion not saved", "booking_id", id, "error", err)
			return b, err
		}
	}
	b = s.setStatus(id, models.Completed)

	s.releaseDriver(b)
	if s.deps.Payments != nil && b.PaymentRef != "" {
		if err := s.deps.Payments.Capture(ctx, b.PaymentRef); err != nil {
			s.logger.Error("fare capture failed", "booking_id", id, "error", err)
		}
	}
	observability.BookingsCompleted.Inc()
	s.logger.Info("trip completed", "booking_id", id)
	s.emit(ctx, models.EventCompleted, b)
	return b, nil
}

// Sync retries every booking not yet saved and reports how many were.
func (s *Session) Sync(ctx context.Context) (int, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	var pending []models.Booking
	for _, b := range s.Bookings() {
		if !b.Persisted {
			pending = append(pending, b)
		}
	}
	saved := 0
	var errs []error
	for _, b := range pending {
		if err := s.persist(ctx, b); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	if saved > 0 {
		s.logger.Info("unsaved bookings synced", "count", saved)
	}
	return saved, errors.Join(errs...)
}

func (s *Session) setStatus(id string, status models.BookingStatus) models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.byID[id]
	cur.Status = status
	cur.UpdatedAt = s.deps.Now()
	return *cur
}

func (s *Session) releaseDriver(b models.Booking) {
	if err := s.deps.Drivers.Release(b.Driver.ID); err != nil {
		s.logger.Error("driver release failed", "driver_id", b.Driver.ID, "booking_id", b.ID, "error", err)
	}
}

func (s *Session) emit(ctx context.Context, kind string, b models.Booking) {
	ev := models.BookingEvent{Type: kind, Booking: b, At: s.deps.Now()}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("booking event not published", "booking_id", b.ID, "event", kind, "error", err)
		}
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(ctx, ev); err != nil {
			s.logger.Warn("booking notification failed", "booking_id", b.ID, "event", kind, "error", err)
		}
	}
}
