// Package exifgps reads embedded GPS positions out of image files.
//
// Coordinates are stored in EXIF as degree/minute/second rational triples
// plus a hemisphere reference tag. Anything malformed (short triple, missing
// reference, zero denominator, out-of-range result) is reported as absent
// rather than as an error, so callers can fall through to their own
// location fallback.
package exifgps

import (
	"io"

	"github.com/rwcarlsen/goexif/exif"
)

// Coordinate is a decimal-degree position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ConvertDMS converts a degree/minute/second triple and hemisphere reference
// to decimal degrees. The second return value is false when the triple does
// not have exactly three components or the reference is not one of N/S/E/W.
func ConvertDMS(triple []float64, ref string) (float64, bool) {
	if len(triple) != 3 {
		return 0, false
	}

	decimal := triple[0] + triple[1]/60 + triple[2]/3600

	switch ref {
	case "N", "E":
		return decimal, true
	case "S", "W":
		return -decimal, true
	default:
		return 0, false
	}
}

// FromImage extracts the embedded GPS position from an image stream.
// The boolean reports whether a valid position was present; a file without
// EXIF data, without GPS tags, or with malformed GPS tags yields (zero, false).
func FromImage(r io.Reader) (Coordinate, bool) {
	x, err := exif.Decode(r)
	if err != nil {
		return Coordinate{}, false
	}

	lat, ok := readAxis(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if !ok {
		return Coordinate{}, false
	}
	lng, ok := readAxis(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !ok {
		return Coordinate{}, false
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, false
	}

	return Coordinate{Lat: lat, Lng: lng}, true
}

// readAxis pulls one DMS triple and its reference tag out of decoded EXIF.
func readAxis(x *exif.Exif, valueField, refField exif.FieldName) (float64, bool) {
	tag, err := x.Get(valueField)
	if err != nil {
		return 0, false
	}

	var triple []float64
	for i := 0; i < int(tag.Count); i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		triple = append(triple, float64(num)/float64(den))
	}

	refTag, err := x.Get(refField)
	if err != nil {
		return 0, false
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return 0, false
	}

	return ConvertDMS(triple, ref)
}
