package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tripfolio/tripfolio-api/internal/model"
	"github.com/tripfolio/tripfolio-api/util"
)

const defaultBaseURL = "https://maps.googleapis.com"

// GoogleMapsClient handles communication with Google Maps APIs
type GoogleMapsClient struct {
	APIKey  string
	BaseURL string // overridable for tests
	Client  *http.Client
}

// NewGoogleMapsClient creates a new client instance
// apiKey should be loaded securely (e.g., from environment variable)
func NewGoogleMapsClient(apiKey string) *GoogleMapsClient {
	if apiKey == "" {
		log.Println("Warning: Google Maps API Key is empty.")
	}
	return &GoogleMapsClient{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Directions Structures ---

// DirectionsResponse is the top-level response of the Directions API
type DirectionsResponse struct {
	Routes       []DirectionsRoute `json:"routes"`
	Status       string            `json:"status"` // e.g. "OK", "ZERO_RESULTS", "NOT_FOUND", "OVER_QUERY_LIMIT", "REQUEST_DENIED"
	ErrorMessage string            `json:"error_message,omitempty"`
}

// DirectionsRoute is one computed route alternative
type DirectionsRoute struct {
	Summary          string   `json:"summary"`
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
	WaypointOrder    []int    `json:"waypoint_order"`
}

// Leg is the stretch between two consecutive stops
type Leg struct {
	Distance      TextValue `json:"distance"` // Value in meters
	Duration      TextValue `json:"duration"` // Value in seconds
	StartAddress  string    `json:"start_address"`
	EndAddress    string    `json:"end_address"`
	StartLocation LatLng    `json:"start_location"`
	EndLocation   LatLng    `json:"end_location"`
}

// TextValue pairs a human-readable rendering with the raw value
type TextValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// Polyline is an encoded path shape
type Polyline struct {
	Points string `json:"points"`
}

// LatLng represents latitude and longitude
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// --- Geocoding Structures ---

// GeocodeResponse is the top-level response of the Geocoding API
type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
	Status  string          `json:"status"`
}

// GeocodeResult is one resolved address
type GeocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	PlaceID          string `json:"place_id"`
	Geometry         struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
}

// --- Client Methods ---

// GetDirections requests a driving route through the given points, in the
// order given. Waypoint optimization is deliberately not requested: stops
// are visited as entered. A response status other than "OK" is returned as
// an error naming that status; the caller decides how to surface it.
func (gc *GoogleMapsClient) GetDirections(ctx context.Context, origin, destination string, waypoints []string) (*DirectionsResponse, error) {
	if gc.APIKey == "" {
		return nil, fmt.Errorf("google maps API key is not set")
	}
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("origin and destination are required")
	}

	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", "driving")
	params.Set("key", gc.APIKey)
	if len(waypoints) > 0 {
		params.Set("waypoints", strings.Join(waypoints, "|"))
	}

	fullURL := fmt.Sprintf("%s/maps/api/directions/json?%s", gc.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Directions request: %w", err)
	}

	resp, err := gc.Client.Do(req)
	if err != nil {
		log.Printf("Error making Directions request: %v\n", err)
		return nil, fmt.Errorf("failed to execute Directions request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Directions response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("Directions request failed with status %d: %s\n", resp.StatusCode, string(bodyBytes))
		return nil, fmt.Errorf("google maps error: status code %d", resp.StatusCode)
	}

	var directions DirectionsResponse
	if err := json.Unmarshal(bodyBytes, &directions); err != nil {
		log.Printf("Error decoding Directions response: %v\nBody: %s\n", err, string(bodyBytes))
		return nil, fmt.Errorf("failed to decode Directions response: %w", err)
	}

	if directions.Status != "OK" {
		log.Printf("Google Directions API returned status: %s\n", directions.Status)
		return nil, fmt.Errorf("directions API error: %s", directions.Status)
	}
	if len(directions.Routes) == 0 {
		return nil, fmt.Errorf("directions API error: no routes returned")
	}

	return &directions, nil
}

// DrivingRoute satisfies the planner's directions adapter: it turns an
// ordered waypoint set into a decoded path with totals.
func (gc *GoogleMapsClient) DrivingRoute(ctx context.Context, origin, destination model.Waypoint, stops []model.Waypoint) (model.Path, error) {
	via := make([]string, len(stops))
	for i, stop := range stops {
		via[i] = formatLatLng(stop.Lat, stop.Lng)
	}

	directions, err := gc.GetDirections(ctx,
		formatLatLng(origin.Lat, origin.Lng),
		formatLatLng(destination.Lat, destination.Lng),
		via,
	)
	if err != nil {
		return model.Path{}, err
	}

	route := directions.Routes[0]
	decoded, err := util.DecodePolyLines(route.OverviewPolyline.Points)
	if err != nil {
		return model.Path{}, err
	}

	path := model.Path{Points: make([]model.Coordinate, len(decoded))}
	for i, pair := range decoded {
		path.Points[i] = model.Coordinate{Lat: pair[0], Lng: pair[1]}
	}
	for _, leg := range route.Legs {
		path.DistanceMeters += leg.Distance.Value
		path.DurationSeconds += leg.Duration.Value
	}
	return path, nil
}

// ReverseGeocode resolves a coordinate to its nearest formatted address,
// used to label waypoints created from bare map clicks.
func (gc *GoogleMapsClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	if gc.APIKey == "" {
		return nil, fmt.Errorf("google maps API key is not set")
	}

	params := url.Values{}
	params.Set("latlng", formatLatLng(lat, lng))
	params.Set("key", gc.APIKey)

	fullURL := fmt.Sprintf("%s/maps/api/geocode/json?%s", gc.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Geocode request: %w", err)
	}

	resp, err := gc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Geocode request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Geocode response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google maps error: status code %d", resp.StatusCode)
	}

	var geocode GeocodeResponse
	if err := json.Unmarshal(bodyBytes, &geocode); err != nil {
		return nil, fmt.Errorf("failed to decode Geocode response: %w", err)
	}

	if geocode.Status != "OK" {
		return nil, fmt.Errorf("geocode API error: %s", geocode.Status)
	}
	if len(geocode.Results) == 0 {
		return nil, fmt.Errorf("geocode API error: no results")
	}

	return &geocode.Results[0], nil
}

func formatLatLng(lat, lng float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lng)
}
