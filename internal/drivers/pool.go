package drivers

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
)

var (
	ErrNoDriversAvailable = errors.New("no drivers available at this time")
	ErrUnknownDriver      = errors.New("unknown driver")
)

// Pool holds the drivers of one booking service and their availability.
// Assignment and release are serialized so concurrent sessions never get the
// same driver.
type Pool struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	ids     []string
	drivers map[string]models.Driver
}

// NewPool builds a pool seeded with drivers. A nil rnd uses a time seed.
func NewPool(rnd *rand.Rand, seed ...models.Driver) *Pool {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := &Pool{rnd: rnd, drivers: make(map[string]models.Driver)}
	for _, d := range seed {
		p.upsertLocked(d)
	}
	p.report()
	return p
}

func (p *Pool) upsertLocked(d models.Driver) {
	d.Updated = time.Now()
	if _, ok := p.drivers[d.ID]; !ok {
		p.ids = append(p.ids, d.ID)
		sort.Strings(p.ids)
	}
	p.drivers[d.ID] = d
}

// AssignRandomAvailable picks uniformly among available drivers and marks
// the pick unavailable. The returned value is a snapshot.
func (p *Pool) AssignRandomAvailable() (models.Driver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	free := make([]string, 0, len(p.ids))
	for _, id := range p.ids {
		if p.drivers[id].Available {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		return models.Driver{}, ErrNoDriversAvailable
	}
	d := p.drivers[free[p.rnd.Intn(len(free))]]
	d.Available = false
	d.Updated = time.Now()
	p.drivers[d.ID] = d
	p.report()
	return d, nil
}

// Release returns a driver to the pool after a trip ends or is cancelled.
func (p *Pool) Release(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[id]
	if !ok {
		return ErrUnknownDriver
	}
	d.Available = true
	d.Updated = time.Now()
	p.drivers[id] = d
	p.report()
	return nil
}

func (p *Pool) Get(id string) (models.Driver, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[id]
	return d, ok
}

// Available lists free drivers ordered by id.
func (p *Pool) Available() []models.Driver {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Driver, 0, len(p.ids))
	for _, id := range p.ids {
		if d := p.drivers[id]; d.Available {
			out = append(out, d)
		}
	}
	return out
}

func (p *Pool) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableLocked()
}

func (p *Pool) availableLocked() int {
	n := 0
	for _, d := range p.drivers {
		if d.Available {
			n++
		}
	}
	return n
}

// Nearby returns up to limit available drivers closest to (lat, lon).
func (p *Pool) Nearby(lat, lon float64, limit int) []models.Driver {
	cands := p.Available()
	sort.SliceStable(cands, func(i, j int) bool {
		return Haversine(lat, lon, cands[i].Loc.Lat, cands[i].Loc.Lon) < Haversine(lat, lon, cands[j].Loc.Lat, cands[j].Loc.Lon)
	})
	if limit > 0 && limit < len(cands) {
		cands = cands[:limit]
	}
	return cands
}

// must hold p.mu
func (p *Pool) report() {
	observability.DriversAvailable.Set(float64(p.availableLocked()))
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
