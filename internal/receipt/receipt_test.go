package receipt

import (
	"strings"
	"testing"

	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/models"
)

func TestStringContainsBookingDetails(t *testing.T) {
	b := models.Booking{
		ID:         "b-1",
		Status:     models.Confirmed,
		Type:       models.Instant,
		Pickup:     "Rizal Park",
		Dropoff:    "Makati",
		DistanceKm: 7.456,
		Vehicle:    "Car",
		Driver:     models.Driver{Name: "Jane Smith", Rating: 4.8},
		PickupTime: "2025-03-01 09:30 AM",
		Fare:       153.75,
		Persisted:  true,
	}
	out := String(b)
	for _, want := range []string{
		" Booking ID:     b-1",
		" Distance:       7.46 km",
		" Driver:         Jane Smith",
		" Dropoff Time:   ASAP",
		" FARE:           ₱153.75",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("receipt missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Not yet saved") {
		t.Errorf("persisted booking should not carry the unsaved notice")
	}
}

func TestStringFlagsUnsavedAndCancelled(t *testing.T) {
	out := String(models.Booking{ID: "b-2", Status: models.Cancelled})
	if !strings.Contains(out, "Not yet saved") || !strings.Contains(out, "Booking Cancelled") {
		t.Fatalf("expected unsaved and cancelled notices:\n%s", out)
	}
}

func TestHistory(t *testing.T) {
	var sb strings.Builder
	if err := History(&sb, nil); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "No booking history available\n" {
		t.Fatalf("unexpected empty history %q", sb.String())
	}
	sb.Reset()
	recs := []bookingstore.Record{{BookingID: "a", Fare: 60}, {BookingID: "b", Fare: 45}}
	if err := History(&sb, recs); err != nil {
		t.Fatal(err)
	}
	if strings.Count(sb.String(), "Booking ID:") != 2 || !strings.Contains(sb.String(), "Fare: ₱60.00") {
		t.Fatalf("unexpected history:\n%s", sb.String())
	}
}
