package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
)

const (
	// MinQueryLen is the shortest query sent to the geocoder.
	MinQueryLen = 3
	// MaxSuggestions caps autocomplete results.
	MaxSuggestions = 5
)

var (
	ErrSameLocation        = errors.New("pickup and dropoff locations cannot be the same")
	ErrNoRoute             = errors.New("no route found between these locations")
	ErrLocationUnavailable = errors.New("could not determine current location")
)

// RouteError is the single failure type of a route resolution.
type RouteError struct {
	Cause string
	Err   error
}

func (e *RouteError) Error() string {
	if e.Err == nil {
		return "route: " + e.Cause
	}
	return fmt.Sprintf("route: %s: %v", e.Cause, e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

// Resolver turns a pickup/dropoff pair into a route.
type Resolver interface {
	Resolve(ctx context.Context, from, to models.Coord) (models.Route, error)
}

// Geocoder returns autocomplete candidates for free text.
type Geocoder interface {
	Suggest(ctx context.Context, query string) ([]models.Suggestion, error)
}

// Locator returns the caller's approximate position.
type Locator interface {
	Locate(ctx context.Context) (models.Coord, error)
}

// CheckDistinct rejects a pickup equal to the dropoff.
func CheckDistinct(from, to models.Coord) error {
	if from == to {
		return &RouteError{Cause: "invalid locations", Err: ErrSameLocation}
	}
	return nil
}

// Instrumented records metrics around another Resolver.
type Instrumented struct {
	Next Resolver
}

func (i Instrumented) Resolve(ctx context.Context, from, to models.Coord) (models.Route, error) {
	start := time.Now()
	r, err := i.Next.Resolve(ctx, from, to)
	observability.RouteLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RouteRequests.WithLabelValues("error").Inc()
		return r, err
	}
	observability.RouteRequests.WithLabelValues("ok").Inc()
	return r, nil
}
