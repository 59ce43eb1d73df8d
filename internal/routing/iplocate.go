package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/ride-booking/internal/models"
)

const DefaultIPInfoEndpoint = "https://ipinfo.io/json"

// IPLocator asks an ipinfo-style service for the caller's position.
type IPLocator struct {
	Endpoint string
	Client   *http.Client
}

func NewIPLocator(endpoint string, timeout time.Duration) *IPLocator {
	if endpoint == "" {
		endpoint = DefaultIPInfoEndpoint
	}
	return &IPLocator{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// Locate parses the "loc" field ("lat,lon"). Every failure maps to
// ErrLocationUnavailable.
func (l *IPLocator) Locate(ctx context.Context) (models.Coord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Endpoint, http.NoBody)
	if err != nil {
		return models.Coord{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return models.Coord{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	defer resp.Body.Close()
	var out struct {
		Loc string `json:"loc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Coord{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	c, err := parseLoc(out.Loc)
	if err != nil {
		return models.Coord{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	return c, nil
}

func parseLoc(s string) (models.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return models.Coord{}, fmt.Errorf("bad loc %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coord{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coord{}, err
	}
	return models.Coord{Lat: lat, Lon: lon}, nil
}
