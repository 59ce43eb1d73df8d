package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/ride-booking/internal/models"
)

const DefaultORSEndpoint = "https://api.openrouteservice.org"

// ORSClient talks to OpenRouteService for directions and autocomplete.
type ORSClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewORSClient(endpoint, apiKey string, timeout time.Duration) *ORSClient {
	if endpoint == "" {
		endpoint = DefaultORSEndpoint
	}
	return &ORSClient{Endpoint: strings.TrimRight(endpoint, "/"), APIKey: apiKey, Client: &http.Client{Timeout: timeout}}
}

type orsFeature struct {
	Geometry struct {
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Label    string `json:"label"`
		Segments []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"segments"`
	} `json:"properties"`
}

type orsCollection struct {
	Features []orsFeature `json:"features"`
}

// Resolve queries /v2/directions/driving-car. Coordinates go out as lon,lat.
func (o *ORSClient) Resolve(ctx context.Context, from, to models.Coord) (models.Route, error) {
	if err := CheckDistinct(from, to); err != nil {
		return models.Route{}, err
	}
	q := url.Values{}
	q.Set("api_key", o.APIKey)
	q.Set("start", lonLat(from))
	q.Set("end", lonLat(to))
	var out orsCollection
	if err := o.get(ctx, "/v2/directions/driving-car", q, &out); err != nil {
		return models.Route{}, &RouteError{Cause: "failed to connect to routing service", Err: err}
	}
	if len(out.Features) == 0 {
		return models.Route{}, &RouteError{Cause: "no route", Err: ErrNoRoute}
	}
	f := out.Features[0]
	var line [][]float64
	if err := json.Unmarshal(f.Geometry.Coordinates, &line); err != nil {
		return models.Route{}, &RouteError{Cause: "malformed route geometry", Err: err}
	}
	if len(f.Properties.Segments) == 0 {
		return models.Route{}, &RouteError{Cause: "malformed route", Err: fmt.Errorf("route has no segments")}
	}
	poly, err := polyline(line)
	if err != nil {
		return models.Route{}, &RouteError{Cause: "malformed route geometry", Err: err}
	}
	seg := f.Properties.Segments[0]
	return models.Route{Polyline: poly, DistanceKm: seg.Distance / 1000, DurationMin: seg.Duration / 60}, nil
}

// Suggest queries /geocode/autocomplete. Short queries return nothing and
// never reach the service.
func (o *ORSClient) Suggest(ctx context.Context, query string) ([]models.Suggestion, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLen {
		return nil, nil
	}
	q := url.Values{}
	q.Set("api_key", o.APIKey)
	q.Set("text", query)
	q.Set("size", strconv.Itoa(MaxSuggestions))
	var out orsCollection
	if err := o.get(ctx, "/geocode/autocomplete", q, &out); err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	res := make([]models.Suggestion, 0, len(out.Features))
	for _, f := range out.Features {
		var pt []float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &pt); err != nil || len(pt) < 2 {
			continue
		}
		res = append(res, models.Suggestion{Label: f.Properties.Label, Coord: models.Coord{Lat: pt[1], Lon: pt[0]}})
		if len(res) == MaxSuggestions {
			break
		}
	}
	return res, nil
}

func (o *ORSClient) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.Endpoint+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", o.APIKey)
	req.Header.Set("Accept", "application/json, application/geo+json")
	resp, err := o.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func lonLat(c models.Coord) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

// polyline flips [lon, lat] pairs into coordinates.
func polyline(pairs [][]float64) ([]models.Coord, error) {
	out := make([]models.Coord, 0, len(pairs))
	for i, p := range pairs {
		if len(p) < 2 {
			return nil, fmt.Errorf("point %d has %d values", i, len(p))
		}
		out = append(out, models.Coord{Lat: p[1], Lon: p[0]})
	}
	return out, nil
}
