package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/fare"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
	"github.com/example/ride-booking/internal/routing"
	"github.com/example/ride-booking/internal/validation"
)

type State string

const (
	Idle              State = "idle"
	LocationsSelected State = "locations_selected"
	RouteComputed     State = "route_computed"
	Confirmed         State = "confirmed"
)

type Field string

const (
	Pickup  Field = "pickup"
	Dropoff Field = "dropoff"
)

const (
	DefaultCancelWindow = 120 * time.Second
	DefaultVehicle      = "Car"

	// InstantLayout formats instant pickup and dropoff timestamps.
	InstantLayout = "2006-01-02 03:04 PM"
	// ScheduledLayout is the time-of-day a scheduled pickup is chosen in.
	ScheduledLayout = "03:04 PM"
	// UnknownTime is stored when a scheduled pickup time cannot be parsed.
	UnknownTime = "Unknown"

	CurrentLocationLabel    = "Current Location"
	CurrentLocationOptLabel = "Use My Current Location"
)

type ValidationError = validation.Error

var (
	ErrNoRoute             = errors.New("please calculate a route first")
	ErrLocationsIncomplete = errors.New("pickup and dropoff must both be set")
	ErrCancelWindowClosed  = errors.New("cancellation window has closed")
	ErrBookingNotFound     = errors.New("booking not found in this session")
	ErrInvalidTransition   = errors.New("booking cannot make this transition")
	ErrAlreadyConfirmed    = errors.New("this trip is already booked")
	ErrSuperseded          = errors.New("locations changed while the route was computed")
	ErrPaymentFailed       = errors.New("fare could not be held")

	ErrPickupTimeRequired = validation.New("pickup_time", "select a pickup time for a scheduled booking")
)

// DriverPool is the subset of drivers.Pool a session needs.
type DriverPool interface {
	AssignRandomAvailable() (models.Driver, error)
	Release(id string) error
	AvailableCount() int
	Nearby(lat, lon float64, limit int) []models.Driver
}

// Store persists bookings.
type Store interface {
	Add(ctx context.Context, b models.Booking) error
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	GetByID(ctx context.Context, id string) (bookingstore.Record, error)
}

// Payments holds a fare at confirmation and settles it later.
type Payments interface {
	Hold(ctx context.Context, b models.Booking) (string, error)
	Capture(ctx context.Context, ref string) error
	Cancel(ctx context.Context, ref string) error
}

type Publisher interface {
	Publish(ctx context.Context, ev models.BookingEvent) error
}

type Notifier interface {
	Notify(ctx context.Context, ev models.BookingEvent) error
}

// Deps are the collaborators shared by every session of a process. Fares,
// Drivers, Router and Store are required.
type Deps struct {
	Fares     *fare.Calculator
	Drivers   DriverPool
	Router    routing.Resolver
	Geocoder  routing.Geocoder
	Locator   routing.Locator
	Store     Store
	Payments  Payments
	Publisher Publisher
	Notifier  Notifier

	CancelWindow time.Duration
	Now          func() time.Time
	NewID        func() string
	Logger       *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Fares == nil {
		d.Fares = fare.NewCalculator(nil)
	}
	if d.CancelWindow <= 0 {
		d.CancelWindow = DefaultCancelWindow
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.New().String() }
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Session is one user's booking workflow: a draft trip moving through
// Idle, LocationsSelected, RouteComputed and Confirmed, plus the bookings
// confirmed so far.
//
// mu guards state. routeMu keeps one route request in flight and persistMu
// one booking-store operation.
type Session struct {
	user   models.User
	deps   Deps
	logger *slog.Logger

	mu          sync.Mutex
	pickup      *models.Location
	dropoff     *models.Location
	route       *models.Route
	mode        models.BookingType
	vehicle     string
	pickupTime  string
	confirmed   bool
	gen         uint64
	cancelRoute context.CancelFunc

	bookings []*models.Booking
	byID     map[string]*models.Booking

	routeMu   sync.Mutex
	persistMu sync.Mutex
}

func New(user models.User, deps Deps) *Session {
	deps = deps.withDefaults()
	return &Session{
		user:    user,
		deps:    deps,
		logger:  deps.Logger.With("client_id", user.ID),
		mode:    models.Instant,
		vehicle: DefaultVehicle,
		byID:    make(map[string]*models.Booking),
	}
}

func (s *Session) User() models.User { return s.user }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.confirmed:
		return Confirmed
	case s.route != nil:
		return RouteComputed
	case s.pickup != nil && s.dropoff != nil:
		return LocationsSelected
	default:
		return Idle
	}
}

// Draft is a read-only view of the trip being prepared.
type Draft struct {
	State      State              `json:"state"`
	Pickup     *models.Location   `json:"pickup,omitempty"`
	Dropoff    *models.Location   `json:"dropoff,omitempty"`
	Route      *models.Route      `json:"route,omitempty"`
	Mode       models.BookingType `json:"mode"`
	Vehicle    string             `json:"vehicle"`
	PickupTime string             `json:"pickup_time,omitempty"`
	Fare       float64            `json:"fare"`
}

func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := Draft{
		State:      s.stateLocked(),
		Mode:       s.mode,
		Vehicle:    s.vehicle,
		PickupTime: s.pickupTime,
	}
	if s.pickup != nil {
		p := *s.pickup
		d.Pickup = &p
	}
	if s.dropoff != nil {
		p := *s.dropoff
		d.Dropoff = &p
	}
	if s.route != nil {
		r := *s.route
		d.Route = &r
		d.Fare = s.deps.Fares.Fare(r.DistanceKm, s.vehicle)
	}
	return d
}

// SetLocation sets one end of the trip. Once both ends are set the route
// is computed; its error is returned but the location stays selected.
func (s *Session) SetLocation(ctx context.Context, field Field, loc models.Location) error {
	loc.Label = strings.TrimSpace(loc.Label)
	if loc.Label == "" {
		loc.Label = loc.Coord.String()
	}
	s.mu.Lock()
	switch field {
	case Pickup:
		s.pickup = &loc
	case Dropoff:
		s.dropoff = &loc
	default:
		s.mu.Unlock()
		return validation.New("field", "must be pickup or dropoff")
	}
	s.invalidateLocked()
	both := s.pickup != nil && s.dropoff != nil
	s.mu.Unlock()

	if !both {
		return nil
	}
	_, err := s.ComputeRoute(ctx)
	return err
}

// UseCurrentLocation sets field to the IP-derived position.
func (s *Session) UseCurrentLocation(ctx context.Context, field Field) error {
	if s.deps.Locator == nil {
		return routing.ErrLocationUnavailable
	}
	c, err := s.deps.Locator.Locate(ctx)
	if err != nil {
		s.logger.Warn("current location lookup failed", "error", err)
		return err
	}
	return s.SetLocation(ctx, field, models.Location{Label: CurrentLocationLabel, Coord: c})
}

// Click places a map marker. The first click sets the pickup, the second
// the dropoff and the third starts over with a new pickup.
func (s *Session) Click(ctx context.Context, c models.Coord) (Field, error) {
	loc := models.Location{Label: c.String(), Coord: c}
	s.mu.Lock()
	if s.pickup == nil || s.dropoff != nil {
		s.pickup = &loc
		s.dropoff = nil
		s.invalidateLocked()
		s.mu.Unlock()
		return Pickup, nil
	}
	s.mu.Unlock()
	return Dropoff, s.SetLocation(ctx, Dropoff, loc)
}

// Reset clears the draft trip.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pickup, s.dropoff = nil, nil
	s.pickupTime = ""
	s.mode = models.Instant
	s.invalidateLocked()
}

func (s *Session) invalidateLocked() {
	s.gen++
	s.route = nil
	s.confirmed = false
	if s.cancelRoute != nil {
		s.cancelRoute()
		s.cancelRoute = nil
	}
}

// ComputeRoute resolves the selected locations. A newer request cancels
// an older one, and a result for locations that changed meanwhile is
// dropped with ErrSuperseded.
func (s *Session) ComputeRoute(ctx context.Context) (models.Route, error) {
	s.mu.Lock()
	if s.pickup == nil || s.dropoff == nil {
		s.mu.Unlock()
		return models.Route{}, ErrLocationsIncomplete
	}
	from, to, gen := s.pickup.Coord, s.dropoff.Coord, s.gen
	if s.cancelRoute != nil {
		s.cancelRoute()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancelRoute = cancel
	s.mu.Unlock()
	defer cancel()

	if err := routing.CheckDistinct(from, to); err != nil {
		return models.Route{}, err
	}

	s.routeMu.Lock()
	defer s.routeMu.Unlock()
	r, err := s.deps.Router.Resolve(ctx, from, to)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return models.Route{}, ErrSuperseded
	}
	if err != nil {
		s.logger.Warn("route calculation failed", "error", err)
		return models.Route{}, err
	}
	s.route = &r
	s.confirmed = false
	return r, nil
}

// Options are trip settings changed together. Nil fields are left alone.
type Options struct {
	Mode       *models.BookingType
	Vehicle    *string
	PickupTime *string
}

// SetOptions applies every given option, or none of them if any is
// invalid. A pickup time is kept as entered; one that does not parse
// still books, with an unknown dropoff time.
func (s *Session) SetOptions(o Options) error {
	if o.Mode != nil && *o.Mode != models.Instant && *o.Mode != models.Scheduled {
		return validation.New("mode", "must be Instant or Scheduled")
	}
	if o.Vehicle != nil {
		if _, ok := s.deps.Fares.Rate(*o.Vehicle); !ok {
			return validation.New("vehicle", "unknown vehicle type")
		}
	}
	var pickupTime string
	if o.PickupTime != nil {
		if pickupTime = strings.TrimSpace(*o.PickupTime); pickupTime == "" {
			return validation.New("pickup_time", "required")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Mode != nil {
		s.mode = *o.Mode
	}
	if o.Vehicle != nil {
		s.vehicle = *o.Vehicle
	}
	if o.PickupTime != nil {
		s.pickupTime = pickupTime
	}
	s.confirmed = false
	return nil
}

// SetMode switches between instant and scheduled booking.
func (s *Session) SetMode(mode models.BookingType) error {
	return s.SetOptions(Options{Mode: &mode})
}

func (s *Session) SetVehicle(vehicle string) error {
	return s.SetOptions(Options{Vehicle: &vehicle})
}

func (s *Session) SelectPickupTime(t string) error {
	return s.SetOptions(Options{PickupTime: &t})
}

// Fare is the estimate for the computed route and selected vehicle.
func (s *Session) Fare() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.route == nil {
		return 0, ErrNoRoute
	}
	return s.deps.Fares.Fare(s.route.DistanceKm, s.vehicle), nil
}

// Summary is the availability check shown before confirming.
type Summary struct {
	Pickup           string             `json:"pickup"`
	Dropoff          string             `json:"dropoff"`
	DistanceKm       float64            `json:"distance_km"`
	DurationMin      float64            `json:"duration_min"`
	Vehicle          string             `json:"vehicle"`
	Fare             float64            `json:"fare"`
	Type             models.BookingType `json:"type"`
	PickupTime       string             `json:"pickup_time,omitempty"`
	AvailableDrivers int                `json:"available_drivers"`
	NearestDrivers   []models.Driver    `json:"nearest_drivers"`
}

// nearestShown is how many free drivers a summary lists.
const nearestShown = 3

func (s *Session) Summary() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pickup == nil || s.dropoff == nil {
		return Summary{}, ErrLocationsIncomplete
	}
	if s.route == nil {
		return Summary{}, ErrNoRoute
	}
	if s.mode == models.Scheduled && s.pickupTime == "" {
		return Summary{}, ErrPickupTimeRequired
	}
	sum := Summary{
		Pickup:           s.pickup.Label,
		Dropoff:          s.dropoff.Label,
		Vehicle:          s.vehicle,
		Type:             s.mode,
		AvailableDrivers: s.deps.Drivers.AvailableCount(),
		NearestDrivers:   s.deps.Drivers.Nearby(s.pickup.Coord.Lat, s.pickup.Coord.Lon, nearestShown),
	}
	if s.mode == models.Scheduled {
		sum.PickupTime = s.pickupTime
	}
	sum.DistanceKm = s.route.DistanceKm
	sum.DurationMin = s.route.DurationMin
	sum.Fare = s.deps.Fares.Fare(s.route.DistanceKm, s.vehicle)
	return sum, nil
}

// Suggest returns autocomplete candidates for a location field, always
// led by the current-location entry. Queries shorter than
// routing.MinQueryLen only get that entry.
func (s *Session) Suggest(ctx context.Context, query string) ([]models.Suggestion, error) {
	out := []models.Suggestion{{Label: CurrentLocationOptLabel, CurrentLocation: true}}
	query = strings.TrimSpace(query)
	if s.deps.Geocoder == nil || len([]rune(query)) < routing.MinQueryLen {
		return out, nil
	}
	observability.Suggestions.Inc()
	found, err := s.deps.Geocoder.Suggest(ctx, query)
	if err != nil {
		s.logger.Warn("location suggestion failed", "error", err)
		return out, err
	}
	return append(out, found...), nil
}

// Bookings returns the session's bookings in confirmation order.
func (s *Session) Bookings() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	return out
}

func (s *Session) Booking(id string) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return models.Booking{}, ErrBookingNotFound
	}
	return *b, nil
}

// Open reports whether the session still holds a booking that needs it:
// one whose trip is in progress or that has not been saved.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.Status == models.Confirmed || !b.Persisted {
			return true
		}
	}
	return false
}

// Close abandons any route request in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRoute != nil {
		s.cancelRoute()
		s.cancelRoute = nil
	}
}
