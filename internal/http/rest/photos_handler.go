package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/tripfolio/tripfolio-api/internal/db"
	"github.com/tripfolio/tripfolio-api/internal/model"
	"github.com/tripfolio/tripfolio-api/internal/planner"
	"github.com/tripfolio/tripfolio-api/util"
	"github.com/tripfolio/tripfolio-api/util/exifgps"
	"github.com/tripfolio/tripfolio-api/util/tracing"
	"github.com/tripfolio/tripfolio-api/util/values"
)

const maxUploadBytes = 32 << 20

var errUnreadableUpload = errors.New("unable to read uploaded file")

func (api *API) PhotoRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodPost, "/upload", Handler(api.UploadPhotos))
	mux.Method(http.MethodDelete, "/{routeID}/{photoID}", Handler(api.DeletePhoto))

	return mux
}

// photoResult is the per-file outcome of a multi-file upload. The unexported
// error keeps the failure kind for status classification; Error carries the
// message shown to the client.
type photoResult struct {
	Filename string       `json:"filename"`
	Photo    *model.Photo `json:"photo,omitempty"`
	Error    string       `json:"error,omitempty"`

	err error
}

// uploadSummary aggregates a batch. Files fail independently, so a mixed
// outcome is a normal response, not an error.
type uploadSummary struct {
	Uploaded int           `json:"uploaded"`
	Failed   int           `json:"failed"`
	Results  []photoResult `json:"results"`
}

// UploadPhotos attaches one or more images to a route. Per image: embedded
// GPS metadata wins; otherwise the coordinate of the waypoint the upload was
// started from; otherwise the image is rejected as unplaceable. The binary
// goes to object storage first and only the resulting reference URL is
// written into the route document.
func (api *API) UploadPhotos(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return respondWithError(err, "unable to parse upload form", values.BadRequestBody, &tc)
	}

	routeID := r.FormValue("route_id")
	if !util.NotBlank(routeID) {
		return respondWithError(nil, "missing route_id", values.BadRequestBody, &tc)
	}
	waypointID := r.FormValue("waypoint_id")
	description := r.FormValue("description")

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return respondWithError(nil, "no image file in upload", values.BadRequestBody, &tc)
	}

	route, err := api.GetRouteRepo(r.Context(), routeID)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return respondWithError(nil, "route not found", values.NotFound, &tc)
		}
		return respondWithError(err, "failed to get route", values.Error, &tc)
	}

	p := planner.FromDocument(route)

	// Files are processed independently and in parallel; one bad image must
	// not sink the rest of the batch.
	results := make([]photoResult, len(files))
	var wg sync.WaitGroup
	for i, header := range files {
		wg.Add(1)
		go func(i int, header *multipart.FileHeader) {
			defer wg.Done()
			results[i] = api.processPhotoUpload(r.Context(), p, routeID, waypointID, description, header)
		}(i, header)
	}
	wg.Wait()

	summary := uploadSummary{Results: results}
	for _, res := range results {
		if res.err == nil {
			summary.Uploaded++
		} else {
			summary.Failed++
		}
	}

	// Link under a row lock: the photo collection is re-read and extended
	// inside one transaction, so a concurrent upload to the same route
	// cannot lose photos to a stale overwrite.
	if summary.Uploaded > 0 {
		txErr := db.RunInTx(r.Context(), api.DB, func(tx pgx.Tx) error {
			current, err := api.getRoute(r.Context(), tx, routeID, true)
			if err != nil {
				return err
			}
			photos := current.Photos
			for _, res := range results {
				if res.Photo != nil {
					photos = append(photos, *res.Photo)
				}
			}
			return api.updateRoutePhotos(r.Context(), tx, routeID, photos)
		})
		if txErr != nil {
			return respondWithError(txErr, "failed to link uploaded photos to route", values.Error, &tc)
		}
	}

	if summary.Uploaded == 0 {
		status := batchFailureStatus(results)
		return &ServerResponse{
			Message:    "no photos could be added",
			Status:     status,
			StatusCode: util.StatusCode(status),
			Data:       summary,
		}
	}

	return &ServerResponse{
		Message:    fmt.Sprintf("%d photo(s) added, %d failed", summary.Uploaded, summary.Failed),
		Status:     values.Created,
		StatusCode: util.StatusCode(values.Created),
		Data:       summary,
	}
}

func (api *API) processPhotoUpload(ctx context.Context, p *planner.Planner, routeID, waypointID, description string, header *multipart.FileHeader) photoResult {
	result := photoResult{Filename: header.Filename}

	file, err := header.Open()
	if err != nil {
		return failedResult(result, errUnreadableUpload, "unable to read file")
	}
	defer file.Close()

	// Read once; the bytes are needed twice (EXIF scan, then upload).
	data, err := io.ReadAll(file)
	if err != nil {
		return failedResult(result, errUnreadableUpload, "unable to read file")
	}

	upload := planner.PhotoUpload{
		ID:          util.GenerateUUID().String(),
		Description: description,
		WaypointID:  waypointID,
	}
	if loc, ok := exifgps.FromImage(bytes.NewReader(data)); ok {
		upload.EXIFLoc = &model.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
	}

	// Decide placement before touching object storage, so an unplaceable
	// image never leaves an orphaned binary behind.
	if upload.EXIFLoc == nil {
		if upload.WaypointID == "" {
			return failedResult(result, planner.ErrPhotoUnplaceable,
				"photo has no location data and no waypoint was selected")
		}
		if _, ok := p.Waypoint(upload.WaypointID); !ok {
			return failedResult(result, planner.ErrWaypointNotFound,
				"selected waypoint no longer exists")
		}
	}

	url, err := api.Uploader.UploadImage(ctx, bytes.NewReader(data), "routes/"+routeID, upload.ID)
	if err != nil {
		log.Printf("photo upload to storage failed: %v", err)
		return failedResult(result, err, "failed to store image")
	}
	upload.URL = url

	photo, err := p.AttachPhoto(upload)
	if err != nil {
		return failedResult(result, err, "failed to attach photo")
	}

	result.Photo = &photo
	return result
}

func failedResult(result photoResult, err error, message string) photoResult {
	result.err = err
	result.Error = message
	return result
}

// batchFailureStatus classifies an all-failed batch by failure kind: every
// file unplaceable is the client's data problem (422), every file pointing at
// a vanished waypoint is a stale reference (404), anything mixed or internal
// stays a server error.
func batchFailureStatus(results []photoResult) string {
	unplaceable, dangling := true, true
	for _, res := range results {
		if !errors.Is(res.err, planner.ErrPhotoUnplaceable) {
			unplaceable = false
		}
		if !errors.Is(res.err, planner.ErrWaypointNotFound) {
			dangling = false
		}
	}
	switch {
	case unplaceable:
		return values.Unprocessable
	case dangling:
		return values.NotFound
	default:
		return values.Error
	}
}

// DeletePhoto removes a single photo from a route's collection. Removal is
// confirmed client-side; there is no undo. Read and rewrite of the photo
// collection run in one transaction under a row lock.
func (api *API) DeletePhoto(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	routeID := chi.URLParam(r, "routeID")
	photoID := chi.URLParam(r, "photoID")

	err := db.RunInTx(r.Context(), api.DB, func(tx pgx.Tx) error {
		route, err := api.getRoute(r.Context(), tx, routeID, true)
		if err != nil {
			return err
		}
		p := planner.FromDocument(route)
		if err := p.RemovePhoto(photoID); err != nil {
			return err
		}
		return api.updateRoutePhotos(r.Context(), tx, routeID, p.Document().Photos)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrRouteNotFound):
		return respondWithError(nil, "route not found", values.NotFound, &tc)
	case errors.Is(err, planner.ErrPhotoNotFound):
		return respondWithError(nil, "photo not found", values.NotFound, &tc)
	default:
		return respondWithError(err, "failed to remove photo", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Photo removed successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}
