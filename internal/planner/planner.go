// Package planner owns the in-progress route document. Every mutation of the
// waypoint and photo collections goes through a Planner method so the
// document invariants hold at the mutation boundary: single origin and
// destination slots, a capped ordered list of intermediate stops, and photo
// deletion cascades that only ever take waypoint-located photos with them.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tripfolio/tripfolio-api/internal/model"
)

// DefaultMaxIntermediates caps the intermediate stop list.
const DefaultMaxIntermediates = 8

var (
	// ErrWaypointLimit is returned when the intermediate list is full.
	ErrWaypointLimit = errors.New("intermediate waypoint limit reached")
	// ErrWaypointNotFound is returned when an id matches no waypoint.
	ErrWaypointNotFound = errors.New("waypoint not found")
	// ErrEndpointsMissing is returned by operations that need a complete
	// origin/destination pair.
	ErrEndpointsMissing = errors.New("route needs both an origin and a destination")
)

// DirectionsAdapter computes a driving path through an ordered waypoint set.
// Implemented by the Google Maps client; stubbed in tests.
type DirectionsAdapter interface {
	DrivingRoute(ctx context.Context, origin, destination model.Waypoint, stops []model.Waypoint) (model.Path, error)
}

// Planner wraps a route document and keeps the computed path consistent
// with it. The zero value is not usable; construct with New or FromDocument.
type Planner struct {
	mu               sync.Mutex
	doc              model.Route
	maxIntermediates int

	// pathSeq increments on every waypoint mutation. A directions response
	// is applied only if the sequence it was issued under is still current,
	// so a stale response can never overwrite a newer path.
	pathSeq uint64
	path    *model.Path

	// savedID holds the id confirmed by the last successful save. Cleared
	// when an endpoint changes, forcing the next save to re-upsert.
	savedID string
}

// New starts an empty route with the given id and name.
func New(id, name string) *Planner {
	return FromDocument(model.Route{ID: id, Name: name})
}

// FromDocument wraps an existing route document, e.g. one loaded from
// storage. Photos are normalized for legacy documents.
func FromDocument(doc model.Route) *Planner {
	doc.Photos = model.NormalizePhotos(doc.Photos)
	return &Planner{
		doc:              doc,
		maxIntermediates: DefaultMaxIntermediates,
	}
}

// WithMaxIntermediates overrides the intermediate stop cap.
func (p *Planner) WithMaxIntermediates(n int) *Planner {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.maxIntermediates = n
	}
	return p
}

// Document returns a copy of the current route document.
func (p *Planner) Document() model.Route {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Planner) snapshotLocked() model.Route {
	doc := p.doc
	doc.IntermediateWaypoints = append([]model.Waypoint(nil), p.doc.IntermediateWaypoints...)
	doc.Photos = append([]model.Photo(nil), p.doc.Photos...)
	if p.doc.Origin != nil {
		origin := *p.doc.Origin
		doc.Origin = &origin
	}
	if p.doc.Destination != nil {
		destination := *p.doc.Destination
		doc.Destination = &destination
	}
	return doc
}

// SetOrigin replaces the origin slot and invalidates the saved-route
// confirmation, so the next save re-upserts the document.
func (p *Planner) SetOrigin(wp model.Waypoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Origin = &wp
	p.savedID = ""
	p.pathSeq++
}

// SetDestination replaces the destination slot.
func (p *Planner) SetDestination(wp model.Waypoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Destination = &wp
	p.savedID = ""
	p.pathSeq++
}

// AddIntermediate appends a stop. Returns ErrWaypointLimit once the cap is
// reached; the list is left untouched in that case. A stop without a name
// gets a sequence-based default.
func (p *Planner) AddIntermediate(wp model.Waypoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.doc.IntermediateWaypoints) >= p.maxIntermediates {
		return fmt.Errorf("%w (max %d)", ErrWaypointLimit, p.maxIntermediates)
	}
	if wp.Name == "" {
		wp.Name = fmt.Sprintf("Stop %d", len(p.doc.IntermediateWaypoints)+1)
	}
	p.doc.IntermediateWaypoints = append(p.doc.IntermediateWaypoints, wp)
	p.pathSeq++
	return nil
}

// ReplaceIntermediates swaps in a new ordered stop list, subject to the same
// cap as AddIntermediate. Photos linked to stops that are not part of the new
// list are cascade-deleted under the usual rule; photos of surviving stops
// are kept even when the stops merely moved position.
func (p *Planner) ReplaceIntermediates(stops []model.Waypoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(stops) > p.maxIntermediates {
		return fmt.Errorf("%w (max %d)", ErrWaypointLimit, p.maxIntermediates)
	}

	surviving := make(map[string]bool, len(stops))
	for i := range stops {
		if stops[i].Name == "" {
			stops[i].Name = fmt.Sprintf("Stop %d", i+1)
		}
		surviving[stops[i].ID] = true
	}

	removed := make(map[string]bool)
	for _, wp := range p.doc.IntermediateWaypoints {
		if !surviving[wp.ID] {
			removed[wp.ID] = true
		}
	}

	kept := p.doc.Photos[:0]
	for _, photo := range p.doc.Photos {
		if removed[photo.WaypointID] && photo.LocationSource == model.LocationSourceWaypoint {
			continue
		}
		kept = append(kept, photo)
	}
	p.doc.Photos = kept

	p.doc.IntermediateWaypoints = append([]model.Waypoint(nil), stops...)
	p.pathSeq++
	return nil
}

// HandleMapClick places a clicked point: it fills the origin slot first,
// then the destination, and only then appends an intermediate stop.
func (p *Planner) HandleMapClick(wp model.Waypoint) error {
	p.mu.Lock()
	originSet := p.doc.Origin != nil
	destinationSet := p.doc.Destination != nil
	p.mu.Unlock()

	switch {
	case !originSet:
		p.SetOrigin(wp)
		return nil
	case !destinationSet:
		p.SetDestination(wp)
		return nil
	default:
		return p.AddIntermediate(wp)
	}
}

// RemoveWaypoint clears the origin or destination slot when the id matches
// one of them, otherwise removes the matching intermediate stop. Photos
// linked to the removed waypoint are cascade-deleted, but only those whose
// coordinate actually came from it: exif-located photos keep their own
// position and survive even if their stored waypoint id coincides.
func (p *Planner) RemoveWaypoint(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := false
	switch {
	case p.doc.Origin != nil && p.doc.Origin.ID == id:
		p.doc.Origin = nil
		p.savedID = ""
		removed = true
	case p.doc.Destination != nil && p.doc.Destination.ID == id:
		p.doc.Destination = nil
		p.savedID = ""
		removed = true
	default:
		for i, wp := range p.doc.IntermediateWaypoints {
			if wp.ID == id {
				p.doc.IntermediateWaypoints = append(
					p.doc.IntermediateWaypoints[:i],
					p.doc.IntermediateWaypoints[i+1:]...,
				)
				removed = true
				break
			}
		}
	}
	if !removed {
		return ErrWaypointNotFound
	}

	kept := p.doc.Photos[:0]
	for _, photo := range p.doc.Photos {
		if photo.WaypointID == id && photo.LocationSource == model.LocationSourceWaypoint {
			continue
		}
		kept = append(kept, photo)
	}
	p.doc.Photos = kept

	p.pathSeq++
	return nil
}

// Waypoint looks up any waypoint (origin, destination or intermediate) by id.
func (p *Planner) Waypoint(id string) (model.Waypoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc.Origin != nil && p.doc.Origin.ID == id {
		return *p.doc.Origin, true
	}
	if p.doc.Destination != nil && p.doc.Destination.ID == id {
		return *p.doc.Destination, true
	}
	for _, wp := range p.doc.IntermediateWaypoints {
		if wp.ID == id {
			return wp, true
		}
	}
	return model.Waypoint{}, false
}

// Persistable reports whether the document can be saved yet: both endpoint
// slots must be set.
func (p *Planner) Persistable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Origin != nil && p.doc.Destination != nil
}

// ConfirmSaved records the id a successful save was confirmed under.
func (p *Planner) ConfirmSaved(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.savedID = id
}

// SavedID returns the last confirmed saved id, or "" when the document has
// changed since (or was never saved).
func (p *Planner) SavedID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.savedID
}

// Path returns the currently rendered path, or nil when none is computed.
func (p *Planner) Path() *model.Path {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == nil {
		return nil
	}
	path := *p.path
	path.Points = append([]model.Coordinate(nil), p.path.Points...)
	return &path
}

// RecomputePath issues exactly one directions request for the current
// waypoint set and applies the result. With an endpoint missing the path is
// cleared and no request is made. The request is tagged with the current
// mutation sequence: if the waypoints change while the request is in flight,
// the response is discarded rather than applied out of order. On adapter
// failure the stale path is cleared and the error is returned for the caller
// to surface.
func (p *Planner) RecomputePath(ctx context.Context, adapter DirectionsAdapter) (bool, error) {
	p.mu.Lock()
	if p.doc.Origin == nil || p.doc.Destination == nil {
		p.path = nil
		p.mu.Unlock()
		return false, nil
	}
	seq := p.pathSeq
	origin := *p.doc.Origin
	destination := *p.doc.Destination
	stops := append([]model.Waypoint(nil), p.doc.IntermediateWaypoints...)
	p.mu.Unlock()

	path, err := adapter.DrivingRoute(ctx, origin, destination, stops)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pathSeq != seq {
		// Superseded by a newer mutation; the recompute for that mutation
		// owns the path now.
		return false, nil
	}
	if err != nil {
		p.path = nil
		return false, err
	}
	p.path = &path
	return true, nil
}
