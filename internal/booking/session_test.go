package booking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/drivers"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/routing"
	"github.com/example/ride-booking/internal/validation"
)

var (
	rizal  = models.Location{Label: "Rizal Park", Coord: models.Coord{Lat: 14.5826, Lon: 120.9787}}
	makati = models.Location{Label: "Ayala Triangle", Coord: models.Coord{Lat: 14.5567, Lon: 121.0244}}
)

type fakeRouter struct {
	mu    sync.Mutex
	route models.Route
	err   error
	calls int
}

func (f *fakeRouter) Resolve(ctx context.Context, from, to models.Coord) (models.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Route{}, f.err
	}
	return f.route, nil
}

type fakeStore struct {
	mu        sync.Mutex
	added     map[string]models.Booking
	statuses  map[string]models.BookingStatus
	failAdd   bool
	failWrite bool
	// lostAck stores the booking but still reports a failed add.
	lostAck bool
}

var errStoreDown = errors.New("quota exceeded")

func newFakeStore() *fakeStore {
	return &fakeStore{added: map[string]models.Booking{}, statuses: map[string]models.BookingStatus{}}
}

func (f *fakeStore) Add(_ context.Context, b models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd {
		return &bookingstore.PersistenceError{Op: "add", Err: errStoreDown}
	}
	if _, ok := f.added[b.ID]; ok {
		return bookingstore.ErrDuplicateID
	}
	f.added[b.ID] = b
	f.statuses[b.ID] = b.Status
	if f.lostAck {
		return &bookingstore.PersistenceError{Op: "add", Err: errStoreDown}
	}
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (bookingstore.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[id]
	if !ok {
		return bookingstore.Record{}, bookingstore.ErrNotFound
	}
	return bookingstore.Record{BookingID: id, Status: string(st)}, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status models.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return &bookingstore.PersistenceError{Op: "update_status", Err: errStoreDown}
	}
	if _, ok := f.statuses[id]; !ok {
		return bookingstore.ErrNotFound
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeStore) status(id string) models.BookingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

type fakePayments struct {
	holdErr   error
	held      []string
	cancelled []string
	captured  []string
}

func (f *fakePayments) Hold(_ context.Context, b models.Booking) (string, error) {
	if f.holdErr != nil {
		return "", f.holdErr
	}
	ref := "pi_" + b.ID
	f.held = append(f.held, ref)
	return ref, nil
}

func (f *fakePayments) Capture(_ context.Context, ref string) error {
	f.captured = append(f.captured, ref)
	return nil
}

func (f *fakePayments) Cancel(_ context.Context, ref string) error {
	f.cancelled = append(f.cancelled, ref)
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (e *eventLog) Publish(_ context.Context, ev models.BookingEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *eventLog) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeLocator struct {
	c   models.Coord
	err error
}

func (f fakeLocator) Locate(context.Context) (models.Coord, error) { return f.c, f.err }

type fakeGeocoder struct {
	got []string
}

func (f *fakeGeocoder) Suggest(_ context.Context, q string) ([]models.Suggestion, error) {
	f.got = append(f.got, q)
	return []models.Suggestion{{Label: q + " Station"}}, nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	s        *Session
	router   *fakeRouter
	store    *fakeStore
	pool     *drivers.Pool
	payments *fakePayments
	events   *eventLog
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		router:   &fakeRouter{route: models.Route{DistanceKm: 1, DurationMin: 12}},
		store:    newFakeStore(),
		pool:     drivers.NewPool(rand.New(rand.NewSource(7)), drivers.DefaultDrivers()...),
		payments: &fakePayments{},
		events:   &eventLog{},
		clock:    &clock{t: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
	}
	n := 0
	f.s = New(models.User{ID: "c-1", Name: "Ana Cruz"}, Deps{
		Drivers:   f.pool,
		Router:    f.router,
		Geocoder:  &fakeGeocoder{},
		Locator:   fakeLocator{c: models.Coord{Lat: 14.6, Lon: 121}},
		Store:     f.store,
		Payments:  f.payments,
		Publisher: f.events,
		Now:       f.clock.Now,
		NewID: func() string {
			n++
			return fmt.Sprintf("b-%d", n)
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) route(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := f.s.SetLocation(ctx, Pickup, rizal); err != nil {
		t.Fatal(err)
	}
	if err := f.s.SetLocation(ctx, Dropoff, makati); err != nil {
		t.Fatal(err)
	}
	if st := f.s.State(); st != RouteComputed {
		t.Fatalf("expected route computed, got %s", st)
	}
}

func TestStateTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if f.s.State() != Idle {
		t.Fatalf("new session should be idle")
	}
	if err := f.s.SetLocation(ctx, Pickup, rizal); err != nil {
		t.Fatal(err)
	}
	if f.s.State() != Idle || f.router.calls != 0 {
		t.Fatalf("one location must not route")
	}

	f.router.err = &routing.RouteError{Cause: "routing service unreachable", Err: errors.New("dial tcp")}
	err := f.s.SetLocation(ctx, Dropoff, makati)
	var re *routing.RouteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RouteError, got %v", err)
	}
	if f.s.State() != LocationsSelected {
		t.Fatalf("failed routing should stay in LocationsSelected, got %s", f.s.State())
	}

	f.router.err = nil
	if _, err := f.s.ComputeRoute(ctx); err != nil {
		t.Fatal(err)
	}
	if f.s.State() != RouteComputed {
		t.Fatalf("expected RouteComputed, got %s", f.s.State())
	}
	if _, err := f.s.Confirm(ctx); err != nil {
		t.Fatal(err)
	}
	if f.s.State() != Confirmed {
		t.Fatalf("expected Confirmed, got %s", f.s.State())
	}
	if _, err := f.s.Confirm(ctx); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("second confirm of the same trip: %v", err)
	}
}

func TestSameLocationNeverCallsRouter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.s.SetLocation(ctx, Pickup, rizal)
	err := f.s.SetLocation(ctx, Dropoff, rizal)
	if !errors.Is(err, routing.ErrSameLocation) {
		t.Fatalf("expected ErrSameLocation, got %v", err)
	}
	if f.router.calls != 0 {
		t.Fatalf("router called %d times", f.router.calls)
	}
}

func TestConfirmRequiresRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.s.Confirm(ctx); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}

	f.router.route = models.Route{DistanceKm: 0}
	f.route(t)
	if _, err := f.s.Confirm(ctx); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("zero distance: expected ErrNoRoute, got %v", err)
	}
	if len(f.s.Bookings()) != 0 || f.pool.AvailableCount() != 5 {
		t.Fatal("rejected confirmation must not create a booking or take a driver")
	}
}

func TestScheduledRequiresPickupTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t)
	if err := f.s.SetMode(models.Scheduled); err != nil {
		t.Fatal(err)
	}
	_, err := f.s.Confirm(ctx)
	var ve *validation.Error
	if !errors.Is(err, ErrPickupTimeRequired) || !errors.As(err, &ve) {
		t.Fatalf("expected pickup time validation error, got %v", err)
	}
	if _, err := f.s.Summary(); !errors.Is(err, ErrPickupTimeRequired) {
		t.Fatalf("summary should also require the time, got %v", err)
	}

	if err := f.s.SelectPickupTime("03:30 PM"); err != nil {
		t.Fatal(err)
	}
	b, err := f.s.Confirm(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b.PickupTime != "03:30 PM" || b.DropoffTime != "03:42 PM" {
		t.Fatalf("unexpected times %q -> %q", b.PickupTime, b.DropoffTime)
	}
}

func TestInstantNeverRequiresPickupTime(t *testing.T) {
	f := newFixture(t)
	f.route(t)
	b, err := f.s.Confirm(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != models.Instant || b.PickupTime != "2025-03-01 09:30 AM" || b.DropoffTime != "2025-03-01 09:42 AM" {
		t.Fatalf("unexpected instant booking %+v", b)
	}
}

func TestTripTimesUnparseableScheduledTime(t *testing.T) {
	p, d := tripTimes(models.Scheduled, time.Time{}, "after lunch", 10)
	if p != "after lunch" || d != UnknownTime {
		t.Fatalf("got %q -> %q", p, d)
	}
	_, d = tripTimes(models.Scheduled, time.Time{}, "11:55 PM", 10)
	if d != "12:05 AM" {
		t.Fatalf("expected wrap past midnight, got %q", d)
	}
}

func TestConfirmBooking(t *testing.T) {
	f := newFixture(t)
	f.route(t)
	if err := f.s.SetVehicle("Van"); err != nil {
		t.Fatal(err)
	}
	b, err := f.s.Confirm(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.Fare != 75 {
		t.Fatalf("1 km by Van should cost 55+4*5, got %v", b.Fare)
	}
	if b.ID != "b-1" || b.ClientID != "c-1" || b.ClientName != "Ana Cruz" || b.Status != models.Confirmed {
		t.Fatalf("unexpected booking %+v", b)
	}
	if b.Pickup != "Rizal Park" || b.Dropoff != "Ayala Triangle" || b.Vehicle != "Van" || b.DistanceKm != 1 {
		t.Fatalf("unexpected trip fields %+v", b)
	}
	if !b.Persisted || f.store.status("b-1") != models.Confirmed {
		t.Fatal("booking should be persisted")
	}
	if b.PaymentRef != "pi_b-1" {
		t.Fatalf("fare should be held, ref %q", b.PaymentRef)
	}
	if d, ok := f.pool.Get(b.Driver.ID); !ok || d.Available {
		t.Fatalf("assigned driver must be unavailable")
	}
	if got := f.events.types(); len(got) != 1 || got[0] != models.EventConfirmed {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestSetVehicleRejectsUnknown(t *testing.T) {
	f := newFixture(t)
	var ve *validation.Error
	if err := f.s.SetVehicle("Hovercraft"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := f.s.SetMode("Later"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmWithoutDrivers(t *testing.T) {
	f := newFixture(t)
	for f.pool.AvailableCount() > 0 {
		if _, err := f.pool.AssignRandomAvailable(); err != nil {
			t.Fatal(err)
		}
	}
	f.route(t)
	_, err := f.s.Confirm(context.Background())
	if !errors.Is(err, drivers.ErrNoDriversAvailable) {
		t.Fatalf("expected ErrNoDriversAvailable, got %v", err)
	}
	if f.s.State() != RouteComputed || len(f.s.Bookings()) != 0 {
		t.Fatal("failed confirmation must leave the draft untouched")
	}
}

func TestPaymentFailureReleasesDriver(t *testing.T) {
	f := newFixture(t)
	f.payments.holdErr = errors.New("card declined")
	f.route(t)
	if _, err := f.s.Confirm(context.Background()); !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	if f.pool.AvailableCount() != 5 {
		t.Fatal("driver should be returned to the pool")
	}
	if f.s.State() != RouteComputed {
		t.Fatalf("draft should be bookable again, got %s", f.s.State())
	}
}

func TestPersistenceFailureKeepsLocalBookingUntilSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.failAdd = true
	f.route(t)
	b, err := f.s.Confirm(ctx)
	var pe *bookingstore.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if b.ID == "" || b.Persisted {
		t.Fatalf("booking should exist locally and be unsaved: %+v", b)
	}
	if len(f.s.Bookings()) != 1 {
		t.Fatal("confirmation must not be rolled back")
	}

	if n, err := f.s.Sync(ctx); err == nil || n != 0 {
		t.Fatalf("sync against a failing store: n=%d err=%v", n, err)
	}
	f.store.failAdd = false
	n, err := f.s.Sync(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sync: n=%d err=%v", n, err)
	}
	got, _ := f.s.Booking(b.ID)
	if !got.Persisted || f.store.status(b.ID) != models.Confirmed {
		t.Fatalf("booking should now be saved: %+v", got)
	}
	if n, _ := f.s.Sync(ctx); n != 0 {
		t.Fatalf("nothing left to sync, got %d", n)
	}
}

func TestSyncBringsStoredCopyUpToDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.lostAck = true
	f.route(t)
	b, err := f.s.Confirm(ctx)
	if err == nil || b.Persisted {
		t.Fatalf("expected an unsaved booking, got %+v %v", b, err)
	}
	if _, err := f.s.Cancel(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if f.store.status(b.ID) != models.Confirmed {
		t.Fatalf("store should still hold the first write, got %s", f.store.status(b.ID))
	}

	f.store.lostAck = false
	n, err := f.s.Sync(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sync: n=%d err=%v", n, err)
	}
	if f.store.status(b.ID) != models.Cancelled {
		t.Fatalf("stored status should follow the cancellation, got %s", f.store.status(b.ID))
	}
	if got, _ := f.s.Booking(b.ID); !got.Persisted {
		t.Fatal("booking should be marked saved")
	}
	if f.s.Open() {
		t.Fatal("a saved cancelled booking leaves nothing open")
	}
}

func TestCancelWithinWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t)
	b, err := f.s.Confirm(ctx)
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(119 * time.Second)
	got, err := f.s.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.Cancelled || f.store.status(b.ID) != models.Cancelled {
		t.Fatalf("expected cancelled locally and in store")
	}
	if f.pool.AvailableCount() != 5 {
		t.Fatal("driver should be released on cancel")
	}
	if len(f.payments.cancelled) != 1 {
		t.Fatal("fare hold should be released")
	}

	again, err := f.s.Cancel(ctx, b.ID)
	if err != nil || again.Status != models.Cancelled {
		t.Fatalf("repeated cancel should be a no-op success, got %v", err)
	}
	if len(f.payments.cancelled) != 1 || len(f.events.types()) != 2 {
		t.Fatal("repeated cancel must not act twice")
	}
	if _, err := f.s.Complete(ctx, b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelled trip cannot complete, got %v", err)
	}
}

func TestCancelAfterWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t)
	b, err := f.s.Confirm(ctx)
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(120 * time.Second)
	if _, err := f.s.Cancel(ctx, b.ID); !errors.Is(err, ErrCancelWindowClosed) {
		t.Fatalf("expected ErrCancelWindowClosed, got %v", err)
	}
	if got, _ := f.s.Booking(b.ID); got.Status != models.Confirmed {
		t.Fatalf("status should be unchanged, got %s", got.Status)
	}
}

func TestCancelStoreFailureLeavesBookingConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t)
	b, _ := f.s.Confirm(ctx)
	f.store.failWrite = true
	if _, err := f.s.Cancel(ctx, b.ID); err == nil {
		t.Fatal("expected store error")
	}
	if got, _ := f.s.Booking(b.ID); got.Status != models.Confirmed {
		t.Fatalf("local copy must be untouched, got %s", got.Status)
	}
	if f.pool.AvailableCount() != 4 {
		t.Fatal("driver stays assigned when cancellation fails")
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	f := newFixture(t)
	if _, err := f.s.Cancel(context.Background(), "nope"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestCompleteReleasesDriverAndCaptures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t)
	b, _ := f.s.Confirm(ctx)
	f.clock.Advance(time.Hour)
	got, err := f.s.Complete(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.Completed || f.store.status(b.ID) != models.Completed {
		t.Fatal("expected completed")
	}
	if f.pool.AvailableCount() != 5 || len(f.payments.captured) != 1 {
		t.Fatal("driver should be free and fare captured")
	}
	if _, err := f.s.Cancel(ctx, b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed trip cannot be cancelled, got %v", err)
	}
}

func TestClickCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := models.Coord{Lat: 14.5995, Lon: 120.9842}
	b := models.Coord{Lat: 14.5547, Lon: 121.0244}
	c := models.Coord{Lat: 14.6760, Lon: 121.0437}

	if field, err := f.s.Click(ctx, a); err != nil || field != Pickup {
		t.Fatalf("first click: %s %v", field, err)
	}
	if field, err := f.s.Click(ctx, b); err != nil || field != Dropoff {
		t.Fatalf("second click: %s %v", field, err)
	}
	d := f.s.Draft()
	if d.State != RouteComputed || d.Pickup.Label != "14.5995, 120.9842" || d.Dropoff.Label != "14.5547, 121.0244" {
		t.Fatalf("unexpected draft %+v", d)
	}
	if field, _ := f.s.Click(ctx, c); field != Pickup {
		t.Fatalf("third click should start over")
	}
	d = f.s.Draft()
	if d.State != Idle || d.Dropoff != nil || d.Route != nil || d.Pickup.Coord != c {
		t.Fatalf("unexpected draft after reset %+v", d)
	}
}

func TestUseCurrentLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.s.UseCurrentLocation(ctx, Pickup); err != nil {
		t.Fatal(err)
	}
	if d := f.s.Draft(); d.Pickup.Label != CurrentLocationLabel {
		t.Fatalf("unexpected pickup %+v", d.Pickup)
	}

	f.s.deps.Locator = fakeLocator{err: routing.ErrLocationUnavailable}
	if err := f.s.UseCurrentLocation(ctx, Dropoff); !errors.Is(err, routing.ErrLocationUnavailable) {
		t.Fatalf("expected location unavailable, got %v", err)
	}
	if d := f.s.Draft(); d.Dropoff != nil {
		t.Fatal("failed lookup must not set a location")
	}
}

func TestSuggestLeadsWithCurrentLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	got, err := f.s.Suggest(ctx, "ma")
	if err != nil || len(got) != 1 || !got[0].CurrentLocation {
		t.Fatalf("short query: %+v %v", got, err)
	}
	got, err = f.s.Suggest(ctx, "Makati")
	if err != nil || len(got) != 2 || !got[0].CurrentLocation || got[1].Label != "Makati Station" {
		t.Fatalf("unexpected suggestions %+v %v", got, err)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	if _, err := f.s.Summary(); !errors.Is(err, ErrLocationsIncomplete) {
		t.Fatalf("expected ErrLocationsIncomplete, got %v", err)
	}
	ctx := context.Background()
	f.router.err = errors.New("router offline")
	_ = f.s.SetLocation(ctx, Pickup, rizal)
	_ = f.s.SetLocation(ctx, Dropoff, makati)
	if _, err := f.s.Summary(); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute without a route, got %v", err)
	}
	f.router.err = nil
	f.route(t)
	sum, err := f.s.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if sum.Fare != 60 || sum.AvailableDrivers != 5 || sum.DurationMin != 12 || sum.Vehicle != DefaultVehicle {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(sum.NearestDrivers) != 3 {
		t.Fatalf("expected 3 nearest drivers, got %d", len(sum.NearestDrivers))
	}
}

func TestLocationChangeDropsRouteAndConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t)
	if _, err := f.s.Confirm(ctx); err != nil {
		t.Fatal(err)
	}
	f.router.err = errors.New("offline")
	_ = f.s.SetLocation(ctx, Dropoff, models.Location{Label: "QC", Coord: models.Coord{Lat: 14.676, Lon: 121.0437}})
	if f.s.State() != LocationsSelected {
		t.Fatalf("expected LocationsSelected, got %s", f.s.State())
	}
	if _, err := f.s.Fare(); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestLogLinesCarryClientOnce(t *testing.T) {
	var buf bytes.Buffer
	s := New(models.User{ID: "c-9", Name: "Ben"}, Deps{
		Drivers: drivers.NewPool(nil, drivers.DefaultDrivers()...),
		Router:  &fakeRouter{route: models.Route{DistanceKm: 1, DurationMin: 5}},
		Store:   newFakeStore(),
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})
	ctx := context.Background()
	if err := s.SetLocation(ctx, Pickup, rizal); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLocation(ctx, Dropoff, makati); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Confirm(ctx); err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Count(line, "client_id=") != 1 {
			t.Fatalf("expected one client_id per line, got %q", line)
		}
	}
}
