package model

import "fmt"

// Where a photo's coordinate came from. A photo located from embedded image
// metadata is independent of any waypoint; a fallback-located photo is linked
// to the waypoint that supplied its coordinate and is removed with it.
const (
	LocationSourceExif     = "exif"
	LocationSourceWaypoint = "waypoint"
)

// Photo ties an uploaded image to a coordinate on the route.
//
// Invariant: WaypointID is set if and only if LocationSource is "waypoint".
// Build photos through NewExifPhoto/NewWaypointPhoto so the pairing cannot
// drift; Validate re-checks it on documents that arrive over the wire.
type Photo struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Location       Coordinate `json:"location"`
	Description    string     `json:"description,omitempty"`
	WaypointID     string     `json:"waypointId,omitempty"`
	LocationSource string     `json:"locationSource" validate:"omitempty,locationsource"`
}

// NewExifPhoto builds a photo located from embedded image metadata.
func NewExifPhoto(id, url, description string, loc Coordinate) Photo {
	return Photo{
		ID:             id,
		URL:            url,
		Location:       loc,
		Description:    description,
		LocationSource: LocationSourceExif,
	}
}

// NewWaypointPhoto builds a photo that fell back to a waypoint's coordinate.
func NewWaypointPhoto(id, url, description string, wp Waypoint) Photo {
	return Photo{
		ID:             id,
		URL:            url,
		Location:       wp.Coordinate(),
		Description:    description,
		WaypointID:     wp.ID,
		LocationSource: LocationSourceWaypoint,
	}
}

// Validate checks the source/link pairing invariant.
func (p Photo) Validate() error {
	switch p.LocationSource {
	case LocationSourceExif:
		if p.WaypointID != "" {
			return fmt.Errorf("photo %s: exif-located photo must not reference a waypoint", p.ID)
		}
	case LocationSourceWaypoint:
		if p.WaypointID == "" {
			return fmt.Errorf("photo %s: waypoint-located photo must reference a waypoint", p.ID)
		}
	default:
		return fmt.Errorf("photo %s: unknown location source %q", p.ID, p.LocationSource)
	}
	return nil
}

// NormalizePhotos defaults the location source on photos loaded from older
// saved documents that predate the field. Legacy photos were always placed
// from a waypoint.
func NormalizePhotos(photos []Photo) []Photo {
	for i := range photos {
		if photos[i].LocationSource == "" {
			photos[i].LocationSource = LocationSourceWaypoint
		}
	}
	return photos
}
