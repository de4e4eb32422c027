package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tripfolio/tripfolio-api/internal/model"
	"github.com/tripfolio/tripfolio-api/util"
	"github.com/tripfolio/tripfolio-api/util/tracing"
	"github.com/tripfolio/tripfolio-api/util/values"
)

func (api *API) DirectionsRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodPost, "/", Handler(api.ComputeDirections))

	return mux
}

// DirectionsRequest carries the ordered waypoint set to route through.
type DirectionsRequest struct {
	Origin                *model.Waypoint  `json:"origin" validate:"required"`
	Destination           *model.Waypoint  `json:"destination" validate:"required"`
	IntermediateWaypoints []model.Waypoint `json:"intermediateWaypoints"`
}

// ComputeDirections recomputes the driving path for the editing client.
// One request per call, no retries; an upstream failure names the provider
// status and the client clears its rendered path.
func (api *API) ComputeDirections(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req DirectionsRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "origin and destination are required", values.BadRequestBody, &tc)
	}
	if limit := api.maxIntermediates(); len(req.IntermediateWaypoints) > limit {
		return respondWithError(nil,
			fmt.Sprintf("a route can have at most %d intermediate waypoints", limit),
			values.BadRequestBody, &tc)
	}

	path, err := api.Maps.DrivingRoute(r.Context(), *req.Origin, *req.Destination, req.IntermediateWaypoints)
	if err != nil {
		return respondWithError(err, err.Error(), values.SystemErr, &tc)
	}

	return &ServerResponse{
		Message:    "Directions computed successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       path,
	}
}

func (api *API) GeocodeRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/reverse", Handler(api.ReverseGeocodeHandler))

	return mux
}

// ReverseGeocodeHandler labels a clicked map point with its nearest address.
func (api *API) ReverseGeocodeHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)
	queryParams := r.URL.Query()

	latStr := queryParams.Get("point.lat")
	lngStr := queryParams.Get("point.lng")
	if latStr == "" || lngStr == "" {
		return respondWithError(nil, "Missing 'point.lat' or 'point.lng' query parameters", values.BadRequestBody, &tc)
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return respondWithError(nil, "Invalid latitude or longitude format", values.BadRequestBody, &tc)
	}

	result, err := api.Maps.ReverseGeocode(r.Context(), lat, lng)
	if err != nil {
		return respondWithError(err, "Failed to reverse geocode point", values.SystemErr, &tc)
	}

	return &ServerResponse{
		Message:    "Point reverse geocoded successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data: map[string]interface{}{
			"address":  result.FormattedAddress,
			"place_id": result.PlaceID,
			"lat":      result.Geometry.Location.Lat,
			"lng":      result.Geometry.Location.Lng,
		},
	}
}
