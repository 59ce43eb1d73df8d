package drivers

import "github.com/example/ride-booking/internal/models"

// DefaultDrivers is the fleet a fresh process starts with, parked around
// Manila.
func DefaultDrivers() []models.Driver {
	return []models.Driver{
		{ID: "1", Name: "John Doe", Rating: 4.5, Vehicle: "Sedan", Available: true, Loc: models.Coord{Lat: 14.5995, Lon: 120.9842}},
		{ID: "2", Name: "Jane Smith", Rating: 4.8, Vehicle: "SUV", Available: true, Loc: models.Coord{Lat: 14.6000, Lon: 120.9850}},
		{ID: "3", Name: "Mike Johnson", Rating: 4.2, Vehicle: "Van", Available: true, Loc: models.Coord{Lat: 14.5980, Lon: 120.9830}},
		{ID: "4", Name: "Sarah Williams", Rating: 4.7, Vehicle: "Luxury Sedan", Available: true, Loc: models.Coord{Lat: 14.6010, Lon: 120.9860}},
		{ID: "5", Name: "David Brown", Rating: 4.3, Vehicle: "Minivan", Available: true, Loc: models.Coord{Lat: 14.5975, Lon: 120.9825}},
	}
}
