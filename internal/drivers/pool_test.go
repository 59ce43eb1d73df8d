package drivers

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/example/ride-booking/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestAssignRandomAvailableIsUniform(t *testing.T) {
	p := NewPool(rand.New(rand.NewSource(42)), DefaultDrivers()...)
	counts := map[string]int{}
	const trials = 1000
	for i := 0; i < trials; i++ {
		d, err := p.AssignRandomAvailable()
		if err != nil {
			t.Fatalf("trial %d: %v", i, err)
		}
		counts[d.ID]++
		if err := p.Release(d.ID); err != nil {
			t.Fatalf("release: %v", err)
		}
	}
	if len(counts) != 5 {
		t.Fatalf("expected all 5 drivers picked, got %v", counts)
	}
	for id, n := range counts {
		if n < 120 || n > 280 {
			t.Errorf("driver %s picked %d times out of %d", id, n, trials)
		}
	}
}

func TestAssignedDriverIsExcludedUntilReleased(t *testing.T) {
	p := NewPool(rand.New(rand.NewSource(1)),
		models.Driver{ID: "a", Available: true},
		models.Driver{ID: "b", Available: true},
	)
	first, err := p.AssignRandomAvailable()
	if err != nil {
		t.Fatal(err)
	}
	if first.Available {
		t.Fatalf("snapshot should be marked unavailable")
	}
	if got, _ := p.Get(first.ID); got.Available {
		t.Fatalf("pool copy should be marked unavailable")
	}
	second, err := p.AssignRandomAvailable()
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatalf("driver %s assigned twice", first.ID)
	}
	if _, err := p.AssignRandomAvailable(); !errors.Is(err, ErrNoDriversAvailable) {
		t.Fatalf("expected ErrNoDriversAvailable, got %v", err)
	}
	if err := p.Release(first.ID); err != nil {
		t.Fatal(err)
	}
	third, err := p.AssignRandomAvailable()
	if err != nil {
		t.Fatal(err)
	}
	if third.ID != first.ID {
		t.Fatalf("expected released driver %s, got %s", first.ID, third.ID)
	}
}

func TestReleaseUnknownDriver(t *testing.T) {
	p := NewPool(nil)
	if err := p.Release("ghost"); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestNearbyOrdersByDistanceAndSkipsBusy(t *testing.T) {
	p := NewPool(nil,
		models.Driver{ID: "far", Available: true, Loc: models.Coord{Lat: 1, Lon: 1}},
		models.Driver{ID: "near", Available: true, Loc: models.Coord{Lat: 0.001, Lon: 0}},
		models.Driver{ID: "busy", Available: false, Loc: models.Coord{Lat: 0, Lon: 0}},
	)
	got := p.Nearby(0, 0, 5)
	if len(got) != 2 || got[0].ID != "near" || got[1].ID != "far" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got := p.Nearby(0, 0, 1); len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}
