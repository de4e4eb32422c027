package planner

import (
	"errors"
	"fmt"

	"github.com/tripfolio/tripfolio-api/internal/model"
)

var (
	// ErrPhotoUnplaceable is returned when a photo has no usable embedded
	// position and no waypoint context to fall back to.
	ErrPhotoUnplaceable = errors.New("photo has no embedded location and no waypoint context")
	// ErrPhotoNotFound is returned when an id matches no photo on the route.
	ErrPhotoNotFound = errors.New("photo not found")
)

// PhotoUpload describes one image being attached to the route: its already
// extracted embedded position (nil when the file carried no valid GPS tags)
// and the id of the waypoint the upload was initiated from, if any.
type PhotoUpload struct {
	ID          string
	URL         string
	Description string
	EXIFLoc     *model.Coordinate
	WaypointID  string
}

// AttachPhoto resolves an upload's coordinate and appends the photo to the
// route. Resolution order, first match wins:
//
//  1. a valid embedded position locates the photo independently of any
//     waypoint ("exif" source, no waypoint link);
//  2. otherwise the context waypoint's exact coordinate is used and the
//     photo is linked to it ("waypoint" source);
//  3. otherwise the photo cannot be placed and is rejected.
func (p *Planner) AttachPhoto(upload PhotoUpload) (model.Photo, error) {
	if upload.EXIFLoc != nil {
		photo := model.NewExifPhoto(upload.ID, upload.URL, upload.Description, *upload.EXIFLoc)
		return photo, p.appendPhoto(photo)
	}

	if upload.WaypointID != "" {
		wp, ok := p.Waypoint(upload.WaypointID)
		if !ok {
			return model.Photo{}, fmt.Errorf("photo context: %w", ErrWaypointNotFound)
		}
		photo := model.NewWaypointPhoto(upload.ID, upload.URL, upload.Description, wp)
		return photo, p.appendPhoto(photo)
	}

	return model.Photo{}, ErrPhotoUnplaceable
}

func (p *Planner) appendPhoto(photo model.Photo) error {
	if err := photo.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Photos = append(p.doc.Photos, photo)
	return nil
}

// RemovePhoto deletes a single photo by id.
func (p *Planner) RemovePhoto(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, photo := range p.doc.Photos {
		if photo.ID == id {
			p.doc.Photos = append(p.doc.Photos[:i], p.doc.Photos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("photo %s: %w", id, ErrPhotoNotFound)
}
