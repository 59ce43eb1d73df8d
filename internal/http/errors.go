package httpapi

import (
	"errors"
	"net/http"

	"github.com/example/ride-booking/internal/booking"
	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/drivers"
	"github.com/example/ride-booking/internal/routing"
	"github.com/example/ride-booking/internal/session"
	"github.com/example/ride-booking/internal/users"
	"github.com/example/ride-booking/internal/validation"
)

// classify maps a domain error to a status code and a client-safe message.
func classify(err error) (int, string) {
	var (
		ve *validation.Error
		re *routing.RouteError
		pe *bookingstore.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized, users.ErrInvalidCredentials.Error()
	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, session.ErrUnauthenticated.Error()
	case errors.Is(err, routing.ErrSameLocation):
		return http.StatusBadRequest, routing.ErrSameLocation.Error()
	case errors.As(err, &re):
		return http.StatusBadGateway, re.Error()
	case errors.Is(err, routing.ErrLocationUnavailable):
		return http.StatusBadGateway, routing.ErrLocationUnavailable.Error()
	case errors.Is(err, drivers.ErrNoDriversAvailable):
		return http.StatusServiceUnavailable, drivers.ErrNoDriversAvailable.Error()
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, bookingstore.ErrNotFound):
		return http.StatusNotFound, "booking not found"
	case errors.Is(err, booking.ErrNoRoute),
		errors.Is(err, booking.ErrLocationsIncomplete),
		errors.Is(err, booking.ErrCancelWindowClosed),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrAlreadyConfirmed),
		errors.Is(err, booking.ErrSuperseded):
		return http.StatusConflict, err.Error()
	case errors.Is(err, booking.ErrPaymentFailed):
		return http.StatusPaymentRequired, booking.ErrPaymentFailed.Error()
	case errors.As(err, &pe):
		return http.StatusServiceUnavailable, "booking database unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
