package receipt

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/models"
)

const width = 40

var (
	heavy = strings.Repeat("═", width)
	light = strings.Repeat("─", width)
)

// Write renders the booking receipt.
func Write(w io.Writer, b models.Booking) error {
	dropoff := b.DropoffTime
	if dropoff == "" {
		dropoff = bookingstore.NoDropoffTime
	}
	lines := []string{
		heavy,
		field("Booking ID:", b.ID),
		field("Status:", string(b.Status)),
		field("Type:", string(b.Type)),
		heavy,
		field("Pickup:", b.Pickup),
		field("Destination:", b.Dropoff),
		field("Distance:", fmt.Sprintf("%.2f km", b.DistanceKm)),
		light,
		field("Vehicle:", b.Vehicle),
		field("Driver:", b.Driver.Name),
		field("Rating:", fmt.Sprintf("%.1f", b.Driver.Rating)),
		light,
		field("Pickup Time:", b.PickupTime),
		field("Dropoff Time:", dropoff),
		heavy,
		field("FARE:", fmt.Sprintf("₱%.2f", b.Fare)),
		heavy,
	}
	if !b.Persisted {
		lines = append(lines, "", "! Not yet saved to the booking database")
	}
	if b.Status == models.Cancelled {
		lines = append(lines, "", "x Booking Cancelled")
	}
	lines = append(lines, "", "Thank you for choosing SwiftRide!")
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func String(b models.Booking) string {
	var sb strings.Builder
	_ = Write(&sb, b)
	return sb.String()
}

// History renders stored bookings, newest last.
func History(w io.Writer, records []bookingstore.Record) error {
	if len(records) == 0 {
		_, err := io.WriteString(w, "No booking history available\n")
		return err
	}
	for _, r := range records {
		_, err := fmt.Fprintf(w,
			"Booking ID: %s\nType: %s\nFrom: %s\nTo: %s\nVehicle: %s\nDriver: %s\nFare: ₱%.2f\nPickup Time: %s\nStatus: %s\n%s\n\n",
			r.BookingID, r.Type, r.Pickup, r.Dropoff, r.Vehicle, r.DriverName, r.Fare, r.PickupTime, r.Status, strings.Repeat("-", width))
		if err != nil {
			return err
		}
	}
	return nil
}

func field(label, value string) string {
	return fmt.Sprintf(" %-15s %s", label, value)
}
