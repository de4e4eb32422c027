package planner

import (
	"errors"
	"testing"

	"github.com/tripfolio/tripfolio-api/internal/model"
)

func plannerWithStop(t *testing.T) (*Planner, model.Waypoint) {
	t.Helper()
	p := New("route-1", "Trip")
	p.SetOrigin(wp("o", 37.7749, -122.4194))
	p.SetDestination(wp("d", 37.7588, -122.5134))
	stop := wp("stop-1", 37.8087, -122.4098)
	if err := p.AddIntermediate(stop); err != nil {
		t.Fatal(err)
	}
	stop.Name = "Stop 1"
	return p, stop
}

func TestAttachPhotoPrefersEmbeddedLocation(t *testing.T) {
	p, stop := plannerWithStop(t)

	exifLoc := model.Coordinate{Lat: 40.7128, Lng: -74.006}
	photo, err := p.AttachPhoto(PhotoUpload{
		ID:      "p1",
		URL:     "https://img/p1",
		EXIFLoc: &exifLoc,
		// A waypoint context is active, but embedded metadata wins.
		WaypointID: stop.ID,
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	if photo.LocationSource != model.LocationSourceExif {
		t.Errorf("location source = %q; want exif", photo.LocationSource)
	}
	if photo.WaypointID != "" {
		t.Errorf("exif-located photo must not be linked to a waypoint, got %q", photo.WaypointID)
	}
	if photo.Location != exifLoc {
		t.Errorf("location = %+v; want %+v", photo.Location, exifLoc)
	}
}

func TestAttachPhotoFallsBackToWaypoint(t *testing.T) {
	p, stop := plannerWithStop(t)

	photo, err := p.AttachPhoto(PhotoUpload{
		ID:         "p1",
		URL:        "https://img/p1",
		WaypointID: stop.ID,
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	if photo.LocationSource != model.LocationSourceWaypoint {
		t.Errorf("location source = %q; want waypoint", photo.LocationSource)
	}
	if photo.WaypointID != stop.ID {
		t.Errorf("waypoint link = %q; want %q", photo.WaypointID, stop.ID)
	}
	// The fallback coordinate is the waypoint's, exactly.
	if photo.Location != stop.Coordinate() {
		t.Errorf("location = %+v; want %+v", photo.Location, stop.Coordinate())
	}
}

func TestAttachPhotoRejectsUnplaceable(t *testing.T) {
	p, _ := plannerWithStop(t)

	_, err := p.AttachPhoto(PhotoUpload{ID: "p1", URL: "https://img/p1"})
	if !errors.Is(err, ErrPhotoUnplaceable) {
		t.Fatalf("expected ErrPhotoUnplaceable, got %v", err)
	}
	if got := len(p.Document().Photos); got != 0 {
		t.Fatalf("rejected photo must not be added, photo count = %d", got)
	}
}

func TestAttachPhotoUnknownWaypointContext(t *testing.T) {
	p, _ := plannerWithStop(t)

	_, err := p.AttachPhoto(PhotoUpload{ID: "p1", URL: "https://img/p1", WaypointID: "nope"})
	if !errors.Is(err, ErrWaypointNotFound) {
		t.Fatalf("expected ErrWaypointNotFound, got %v", err)
	}
}

func TestRemovePhoto(t *testing.T) {
	p, stop := plannerWithStop(t)
	if _, err := p.AttachPhoto(PhotoUpload{ID: "p1", URL: "u", WaypointID: stop.ID}); err != nil {
		t.Fatal(err)
	}

	if err := p.RemovePhoto("p1"); err != nil {
		t.Fatalf("remove photo: %v", err)
	}
	if err := p.RemovePhoto("p1"); !errors.Is(err, ErrPhotoNotFound) {
		t.Fatalf("second removal must report ErrPhotoNotFound, got %v", err)
	}
}

func TestLegacyPhotosNormalizedOnLoad(t *testing.T) {
	doc := model.Route{
		ID:   "route-1",
		Name: "Old doc",
		Photos: []model.Photo{
			{ID: "p1", URL: "u", WaypointID: "w1"}, // saved before locationSource existed
			model.NewExifPhoto("p2", "u2", "", model.Coordinate{Lat: 1, Lng: 1}),
		},
	}
	photos := FromDocument(doc).Document().Photos
	if photos[0].LocationSource != model.LocationSourceWaypoint {
		t.Errorf("legacy photo source = %q; want waypoint", photos[0].LocationSource)
	}
	if photos[1].LocationSource != model.LocationSourceExif {
		t.Errorf("exif photo source changed to %q", photos[1].LocationSource)
	}
}
