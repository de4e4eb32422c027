package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tripfolio/tripfolio-api/internal/model"
	"github.com/tripfolio/tripfolio-api/internal/planner"
	"github.com/tripfolio/tripfolio-api/util"
	"github.com/tripfolio/tripfolio-api/util/tracing"
	"github.com/tripfolio/tripfolio-api/util/values"
)

// maxIntermediates is the deployment-configured intermediate stop cap,
// falling back to the planner default when unset.
func (api *API) maxIntermediates() int {
	if api.Config != nil && api.Config.MaxIntermediates > 0 {
		return api.Config.MaxIntermediates
	}
	return planner.DefaultMaxIntermediates
}

func (api *API) RouteRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodPost, "/", Handler(api.SaveRoute))
	mux.Method(http.MethodGet, "/{routeID}", Handler(api.GetRoute))
	mux.Method(http.MethodPut, "/{routeID}", Handler(api.UpdateRoute))
	mux.Method(http.MethodDelete, "/{routeID}", Handler(api.DeleteRoute))

	return mux
}

// SaveRoute upserts the full route document under its client-generated id.
// 201 on first save of an id, 200 on every save after that.
func (api *API) SaveRoute(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.SaveRouteRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "missing required route fields", values.BadRequestBody, &tc)
	}
	if limit := api.maxIntermediates(); len(req.IntermediateWaypoints) > limit {
		return respondWithError(nil,
			fmt.Sprintf("a route can have at most %d intermediate waypoints", limit),
			values.BadRequestBody, &tc)
	}

	route := model.Route{
		ID:                    req.ID,
		Name:                  req.Name,
		Origin:                req.Origin,
		Destination:           req.Destination,
		IntermediateWaypoints: req.IntermediateWaypoints,
		Photos:                model.NormalizePhotos(req.Photos),
	}
	for _, photo := range route.Photos {
		if err := photo.Validate(); err != nil {
			return respondWithError(err, "invalid photo in route document", values.Unprocessable, &tc)
		}
	}

	// The creator is recorded when the caller identified itself; saving
	// anonymously is allowed.
	if userID, err := util.GetUserIDFromContext(r.Context()); err == nil {
		route.CreatorID = userID
	}

	created, err := api.UpsertRouteRepo(r.Context(), route)
	if err != nil {
		if isStorageQuotaErr(err) {
			return respondWithError(err, "storage quota exceeded, route not saved", values.Error, &tc)
		}
		return respondWithError(err, "failed to save route", values.Error, &tc)
	}

	status := values.Success
	message := "Route updated successfully"
	if created {
		status = values.Created
		message = "Route created successfully"
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data: model.SaveRouteResponse{
			ID:       route.ID,
			ShareURL: fmt.Sprintf("%s/view/%s", api.Config.BaseURL, route.ID),
			Created:  created,
		},
	}
}

func (api *API) GetRoute(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	routeID := chi.URLParam(r, "routeID")
	route, err := api.GetRouteRepo(r.Context(), routeID)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return respondWithError(nil, "route not found", values.NotFound, &tc)
		}
		return respondWithError(err, "failed to get route", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Route retrieved successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       route,
	}
}

// UpdateRoute applies a partial update. Waypoint changes go through the
// planner so the same slot and cap rules hold as during editing.
func (api *API) UpdateRoute(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	routeID := chi.URLParam(r, "routeID")

	var req model.UpdateRouteRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	route, err := api.GetRouteRepo(r.Context(), routeID)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return respondWithError(nil, "route not found", values.NotFound, &tc)
		}
		return respondWithError(err, "failed to get route", values.Error, &tc)
	}

	p := planner.FromDocument(route).WithMaxIntermediates(api.maxIntermediates())
	if req.Name != nil && util.NotBlank(*req.Name) {
		route.Name = *req.Name
	}
	if req.Origin != nil {
		p.SetOrigin(*req.Origin)
	}
	if req.Destination != nil {
		p.SetDestination(*req.Destination)
	}
	if req.IntermediateWaypoints != nil {
		if err := p.ReplaceIntermediates(*req.IntermediateWaypoints); err != nil {
			if errors.Is(err, planner.ErrWaypointLimit) {
				return respondWithError(err, "intermediate waypoint limit reached", values.BadRequestBody, &tc)
			}
			return respondWithError(err, "failed to apply waypoint update", values.Error, &tc)
		}
	}

	updated := p.Document()
	updated.Name = route.Name
	if updated.Origin == nil || updated.Destination == nil {
		return respondWithError(nil, "a route needs both an origin and a destination", values.BadRequestBody, &tc)
	}

	if _, err := api.UpsertRouteRepo(r.Context(), updated); err != nil {
		return respondWithError(err, "failed to update route", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Route updated successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       updated,
	}
}

func (api *API) DeleteRoute(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	routeID := chi.URLParam(r, "routeID")
	if err := api.DeleteRouteRepo(r.Context(), routeID); err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return respondWithError(nil, "route not found", values.NotFound, &tc)
		}
		return respondWithError(err, "failed to delete route", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Route deleted successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}
