package model

import "time"

// Coordinate is a decimal-degree latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Waypoint is a named geographic point on a route. A route has at most one
// origin and one destination plus an ordered list of intermediate stops.
type Waypoint struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Name    string  `json:"name,omitempty"`
	Address string  `json:"address,omitempty"`
}

func (w Waypoint) Coordinate() Coordinate {
	return Coordinate{Lat: w.Lat, Lng: w.Lng}
}

// Route is the persisted route document, keyed by a client-generated id and
// upserted as a whole on save.
type Route struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Origin                *Waypoint  `json:"origin"`
	Destination           *Waypoint  `json:"destination"`
	IntermediateWaypoints []Waypoint `json:"intermediateWaypoints"`
	Photos                []Photo    `json:"photos"`
	CreatorID             string     `json:"creatorId,omitempty"`
	CreatedAt             time.Time  `json:"createdAt,omitempty"`
	UpdatedAt             time.Time  `json:"updatedAt,omitempty"`
}

// Path is a computed driving path through a route's waypoints.
type Path struct {
	Points          []Coordinate `json:"points"`
	DistanceMeters  int          `json:"distance_meters"`
	DurationSeconds int          `json:"duration_seconds"`
}

// SaveRouteRequest is the body of POST /api/routes. The id is generated by
// the client on first save and reused afterwards, which is what makes the
// save an upsert.
type SaveRouteRequest struct {
	ID                    string     `json:"id" validate:"required"`
	Name                  string     `json:"name" validate:"required,min=1,max=100"`
	Origin                *Waypoint  `json:"origin" validate:"required"`
	Destination           *Waypoint  `json:"destination" validate:"required"`
	IntermediateWaypoints []Waypoint `json:"intermediateWaypoints" validate:"dive"`
	Photos                []Photo    `json:"photos" validate:"dive"`
}

// UpdateRouteRequest is the body of PUT /api/routes/{routeID}. Nil fields
// are left untouched.
type UpdateRouteRequest struct {
	Name                  *string     `json:"name,omitempty"`
	Origin                *Waypoint   `json:"origin,omitempty"`
	Destination           *Waypoint   `json:"destination,omitempty"`
	IntermediateWaypoints *[]Waypoint `json:"intermediateWaypoints,omitempty"`
}

// SaveRouteResponse confirms the id the share link is built from.
type SaveRouteResponse struct {
	ID       string `json:"id"`
	ShareURL string `json:"share_url"`
	Created  bool   `json:"created"`
}
