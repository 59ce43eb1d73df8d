package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{Endpoint: strings.TrimRight(endpoint, "/"), Client: &http.Client{Timeout: timeout}}
}

// Resolve queries OSRM /route between points with full GeoJSON geometry.
func (o *OSRMClient) Resolve(ctx context.Context, from, to models.Coord) (models.Route, error) {
	if err := CheckDistinct(from, to); err != nil {
		return models.Route{}, err
	}
	// /route/v1/driving/{lon1},{lat1};{lon2},{lat2}
	url := fmt.Sprintf("%s/route/v1/driving/%s;%s?overview=full&geometries=geojson", o.Endpoint, lonLat(from), lonLat(to))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return models.Route{}, &RouteError{Cause: "bad request", Err: err}
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return models.Route{}, &RouteError{Cause: "failed to connect to routing service", Err: err}
	}
	defer resp.Body.Close()
	var out struct {
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Route{}, &RouteError{Cause: "malformed response", Err: err}
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return models.Route{}, &RouteError{Cause: "osrm " + out.Code, Err: ErrNoRoute}
	}
	r := out.Routes[0]
	poly, err := polyline(r.Geometry.Coordinates)
	if err != nil {
		return models.Route{}, &RouteError{Cause: "malformed route geometry", Err: err}
	}
	return models.Route{Polyline: poly, DistanceKm: r.Distance / 1000, DurationMin: r.Duration / 60}, nil
}
