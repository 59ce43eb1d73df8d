package models

import (
	"fmt"
	"time"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coord) String() string { return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon) }

// Location is a labelled point picked by the user.
type Location struct {
	Label string `json:"label"`
	Coord Coord  `json:"coord"`
}

type Suggestion struct {
	Label           string `json:"label"`
	Coord           Coord  `json:"coord"`
	CurrentLocation bool   `json:"current_location,omitempty"`
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	Email        string `json:"email"`
	PasscodeHash string `json:"-"`
	Address      string `json:"address"`
}

type Driver struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    float64   `json:"rating"` // 0..5
	Vehicle   string    `json:"vehicle_type"`
	Available bool      `json:"available"`
	Loc       Coord     `json:"location"`
	Updated   time.Time `json:"updated"`
}

type Route struct {
	Polyline    []Coord `json:"polyline"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

type BookingType string

const (
	Instant   BookingType = "Instant"
	Scheduled BookingType = "Scheduled"
)

type BookingStatus string

const (
	Confirmed BookingStatus = "Confirmed"
	Cancelled BookingStatus = "Cancelled"
	Completed BookingStatus = "Completed"
)

type Booking struct {
	ID           string        `json:"id"`
	ClientID     string        `json:"client_id"`
	ClientName   string        `json:"client_name"`
	Pickup       string        `json:"pickup"`
	Dropoff      string        `json:"dropoff"`
	PickupCoord  Coord         `json:"pickup_coord"`
	DropoffCoord Coord         `json:"dropoff_coord"`
	Type         BookingType   `json:"type"`
	PickupTime   string        `json:"pickup_time"`
	DropoffTime  string        `json:"dropoff_time,omitempty"`
	Fare         float64       `json:"fare"`
	Status       BookingStatus `json:"status"`
	Driver       Driver        `json:"driver"` // snapshot taken at assignment
	Vehicle      string        `json:"vehicle"`
	DistanceKm   float64       `json:"distance_km"`
	DurationMin  float64       `json:"duration_min"`
	ConfirmedAt  time.Time     `json:"confirmed_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Persisted    bool          `json:"persisted"`
	PaymentRef   string        `json:"-"`
}

const (
	EventConfirmed = "confirmed"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

// BookingEvent is published on every booking status change.
type BookingEvent struct {
	Type    string    `json:"type"`
	Booking Booking   `json:"booking"`
	At      time.Time `json:"at"`
}
