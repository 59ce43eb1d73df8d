package bookingstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
	"github.com/example/ride-booking/internal/rowstore"
)

const (
	ColBookingID   = "Booking ID"
	ColClientID    = "Client ID"
	ColClientName  = "Client Name"
	ColPickup      = "Pickup Location"
	ColDropoff     = "Destination"
	ColVehicle     = "Vehicle Type"
	ColDriverName  = "Driver Name"
	ColDistance    = "Distance (km)"
	ColFare        = "Fare (₱)"
	ColType        = "Booking Type"
	ColPickupTime  = "Pickup Time"
	ColDropoffTime = "Dropoff Time"
	ColStatus      = "Status"
	ColLastUpdated = "Last Updated"

	TimestampLayout = "2006-01-02 15:04:05"
	// NoDropoffTime fills the dropoff column when none was computed.
	NoDropoffTime = "ASAP"
)

var Columns = []string{
	ColBookingID, ColClientID, ColClientName, ColPickup, ColDropoff, ColVehicle,
	ColDriverName, ColDistance, ColFare, ColType, ColPickupTime, ColDropoffTime,
	ColStatus, ColLastUpdated,
}

var (
	ErrNotFound    = errors.New("booking not found")
	ErrDuplicateID = errors.New("booking id already exists")
)

// PersistenceError is a failure of the backing row store. Prior state is
// left untouched.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Record is one stored booking row.
type Record struct {
	BookingID   string  `json:"booking_id"`
	ClientID    string  `json:"client_id"`
	ClientName  string  `json:"client_name"`
	Pickup      string  `json:"pickup"`
	Dropoff     string  `json:"dropoff"`
	Vehicle     string  `json:"vehicle"`
	DriverName  string  `json:"driver_name"`
	DistanceKm  float64 `json:"distance_km"`
	Fare        float64 `json:"fare"`
	Type        string  `json:"type"`
	PickupTime  string  `json:"pickup_time"`
	DropoffTime string  `json:"dropoff_time"`
	Status      string  `json:"status"`
	LastUpdated string  `json:"last_updated"`
}

// RecordFromBooking is the row Add writes for b, without LastUpdated.
func RecordFromBooking(b models.Booking) Record {
	dropoff := b.DropoffTime
	if dropoff == "" {
		dropoff = NoDropoffTime
	}
	return Record{
		BookingID:   b.ID,
		ClientID:    b.ClientID,
		ClientName:  b.ClientName,
		Pickup:      b.Pickup,
		Dropoff:     b.Dropoff,
		Vehicle:     b.Vehicle,
		DriverName:  b.Driver.Name,
		DistanceKm:  b.DistanceKm,
		Fare:        b.Fare,
		Type:        string(b.Type),
		PickupTime:  b.PickupTime,
		DropoffTime: dropoff,
		Status:      string(b.Status),
	}
}

// Booking is the stored view of a booking. Fields not kept in the store,
// such as coordinates and the driver's rating, are zero.
func (r Record) Booking() models.Booking {
	return models.Booking{
		ID:          r.BookingID,
		ClientID:    r.ClientID,
		ClientName:  r.ClientName,
		Pickup:      r.Pickup,
		Dropoff:     r.Dropoff,
		Type:        models.BookingType(r.Type),
		PickupTime:  r.PickupTime,
		DropoffTime: r.DropoffTime,
		Fare:        r.Fare,
		Status:      models.BookingStatus(r.Status),
		Driver:      models.Driver{Name: r.DriverName},
		Vehicle:     r.Vehicle,
		DistanceKm:  r.DistanceKm,
		Persisted:   true,
	}
}

func (r Record) row() []string {
	return []string{
		r.BookingID, r.ClientID, r.ClientName, r.Pickup, r.Dropoff, r.Vehicle,
		r.DriverName, formatFloat(r.DistanceKm), formatFloat(r.Fare), r.Type,
		r.PickupTime, r.DropoffTime, r.Status, r.LastUpdated,
	}
}

func recordFrom(m rowstore.Record) Record {
	return Record{
		BookingID:   m[ColBookingID],
		ClientID:    m[ColClientID],
		ClientName:  m[ColClientName],
		Pickup:      m[ColPickup],
		Dropoff:     m[ColDropoff],
		Vehicle:     m[ColVehicle],
		DriverName:  m[ColDriverName],
		DistanceKm:  parseFloat(m[ColDistance]),
		Fare:        parseFloat(m[ColFare]),
		Type:        m[ColType],
		PickupTime:  m[ColPickupTime],
		DropoffTime: m[ColDropoffTime],
		Status:      m[ColStatus],
		LastUpdated: m[ColLastUpdated],
	}
}

// Store is the Booking Store: one remote round-trip per call, no caching.
type Store struct {
	table  rowstore.Table
	logger *slog.Logger
	now    func() time.Time
}

// New initializes the header row if it is absent or mismatched.
func New(ctx context.Context, table rowstore.Table, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := table.EnsureHeader(ctx, Columns); err != nil {
		return nil, &PersistenceError{Op: "init", Err: err}
	}
	return &Store{table: table, logger: logger, now: time.Now}, nil
}

// Add appends b. Ids already present are rejected with ErrDuplicateID.
func (s *Store) Add(ctx context.Context, b models.Booking) error {
	if _, err := s.GetByID(ctx, b.ID); err == nil {
		return ErrDuplicateID
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	r := RecordFromBooking(b)
	r.LastUpdated = s.now().Format(TimestampLayout)
	if err := s.table.Append(ctx, r.row()); err != nil {
		return s.fail("add", err, "booking_id", b.ID)
	}
	s.logger.Debug("booking stored", "booking_id", b.ID, "client_id", b.ClientID)
	return nil
}

// UpdateStatus rewrites status and last-updated of the first row with id.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	rows, err := s.records(ctx, "update_status")
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r.BookingID != id {
			continue
		}
		err := s.table.UpdateCells(ctx, i, map[string]string{
			ColStatus:      string(status),
			ColLastUpdated: s.now().Format(TimestampLayout),
		})
		if err != nil {
			return s.fail("update_status", err, "booking_id", id)
		}
		return nil
	}
	s.logger.Warn("booking not found for status update", "booking_id", id)
	return ErrNotFound
}

func (s *Store) GetAll(ctx context.Context) ([]Record, error) {
	return s.records(ctx, "get_all")
}

func (s *Store) GetByID(ctx context.Context, id string) (Record, error) {
	rows, err := s.records(ctx, "get_by_id")
	if err != nil {
		return Record{}, err
	}
	for _, r := range rows {
		if r.BookingID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// ListByClient returns a client's bookings in stored order.
func (s *Store) ListByClient(ctx context.Context, clientID string) ([]Record, error) {
	rows, err := s.records(ctx, "list_by_client")
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range rows {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) records(ctx context.Context, op string) ([]Record, error) {
	header, err := s.table.Header(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	rows, err := s.table.Rows(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	raw := rowstore.Records(header, rows)
	out := make([]Record, 0, len(raw))
	for _, m := range raw {
		out = append(out, recordFrom(m))
	}
	return out, nil
}

func (s *Store) fail(op string, err error, attrs ...any) error {
	observability.PersistenceErrors.WithLabelValues(op).Inc()
	s.logger.Error("booking store failure", append([]any{"op", op, "error", err}, attrs...)...)
	return &PersistenceError{Op: op, Err: err}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
