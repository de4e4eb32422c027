package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/tripfolio/tripfolio-api/internal/model"
)

type stubUploader struct {
	url   string
	calls int32
}

func (s *stubUploader) UploadImage(_ context.Context, file io.Reader, _, _ string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	io.Copy(io.Discard, file)
	return s.url, nil
}

func uploadRequest(t *testing.T, fields map[string]string, filenames ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, name := range filenames {
		part, err := writer.CreateFormFile("image", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		// Not a real JPEG, so there is no EXIF block to read from it.
		part.Write([]byte("not-an-image"))
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/photos/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// expectPhotoLinkTx sets up the transactional link step: locked re-read of
// the route row followed by the photo rewrite.
func expectPhotoLinkTx(t *testing.T, mock pgxmock.PgxPoolIface, route model.Route) {
	t.Helper()
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(route.ID).
		WillReturnRows(pgxmock.NewRows(routeRowColumns()).AddRow(routeRowValues(t, route)...))
	mock.ExpectExec(`UPDATE routes SET photos`).
		WithArgs(route.ID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
}

func TestUploadPhotoFallsBackToWaypoint(t *testing.T) {
	api, mock := newTestAPI(t)
	uploader := &stubUploader{url: "https://cdn.example/routes/route-1/ph.jpg"}
	api.Uploader = uploader
	route := testRoute()

	mock.ExpectQuery(`SELECT id, name, COALESCE\(creator_id, ''\)`).
		WithArgs(route.ID).
		WillReturnRows(pgxmock.NewRows(routeRowColumns()).AddRow(routeRowValues(t, route)...))
	expectPhotoLinkTx(t, mock, route)

	req := uploadRequest(t, map[string]string{
		"route_id":    route.ID,
		"waypoint_id": "wp-1",
		"description": "lunch stop",
	}, "lunch.jpg")
	rec := doRequest(api, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data uploadSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Uploaded != 1 || resp.Data.Failed != 0 {
		t.Fatalf("got %d uploaded / %d failed, want 1/0", resp.Data.Uploaded, resp.Data.Failed)
	}

	photo := resp.Data.Results[0].Photo
	if photo == nil {
		t.Fatal("expected photo in result")
	}
	if photo.LocationSource != model.LocationSourceWaypoint || photo.WaypointID != "wp-1" {
		t.Fatalf("expected waypoint-sourced photo, got %+v", photo)
	}
	wp := route.IntermediateWaypoints[0]
	if photo.Location.Lat != wp.Lat || photo.Location.Lng != wp.Lng {
		t.Fatalf("photo location %+v, want waypoint coordinate", photo.Location)
	}
	if photo.URL != uploader.url {
		t.Fatalf("photo url %q, want storage reference", photo.URL)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUploadPhotoUnplaceable(t *testing.T) {
	api, mock := newTestAPI(t)
	uploader := &stubUploader{url: "https://cdn.example/ph.jpg"}
	api.Uploader = uploader
	route := testRoute()

	mock.ExpectQuery(`SELECT id, name, COALESCE\(creator_id, ''\)`).
		WithArgs(route.ID).
		WillReturnRows(pgxmock.NewRows(routeRowColumns()).AddRow(routeRowValues(t, route)...))

	// No GPS metadata and no waypoint selected: nothing to place the photo by.
	req := uploadRequest(t, map[string]string{"route_id": route.ID}, "nowhere.jpg")
	rec := doRequest(api, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want 422: %s", rec.Code, rec.Body.String())
	}
	if atomic.LoadInt32(&uploader.calls) != 0 {
		t.Fatal("unplaceable photo must not be pushed to storage")
	}
}

func TestUploadPhotoUnknownWaypoint(t *testing.T) {
	api, mock := newTestAPI(t)
	uploader := &stubUploader{url: "https://cdn.example/ph.jpg"}
	api.Uploader = uploader
	route := testRoute()

	mock.ExpectQuery(`SELECT id, name, COALESCE\(creator_id, ''\)`).
		WithArgs(route.ID).
		WillReturnRows(pgxmock.NewRows(routeRowColumns()).AddRow(routeRowValues(t, route)...))

	// A stale waypoint reference is a not-found, not a server fault.
	req := uploadRequest(t, map[string]string{
		"route_id":    route.ID,
		"waypoint_id": "wp-gone",
	}, "stale.jpg")
	rec := doRequest(api, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404: %s", rec.Code, rec.Body.String())
	}
	if atomic.LoadInt32(&uploader.calls) != 0 {
		t.Fatal("photo with a dangling waypoint must not be pushed to storage")
	}
}

func TestUploadPhotoRouteNotFound(t *testing.T) {
	api, mock := newTestAPI(t)
	api.Uploader = &stubUploader{}

	mock.ExpectQuery(`SELECT id, name, COALESCE\(creator_id, ''\)`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	req := uploadRequest(t, map[string]string{"route_id": "missing", "waypoint_id": "wp-1"}, "a.jpg")
	rec := doRequest(api, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadPhotoMissingRouteID(t *testing.T) {
	api, _ := newTestAPI(t)
	api.Uploader = &stubUploader{}

	req := uploadRequest(t, map[string]string{"waypoint_id": "wp-1"}, "a.jpg")
	rec := doRequest(api, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadMultiplePhotosPartialBatch(t *testing.T) {
	api, mock := newTestAPI(t)
	uploader := &stubUploader{url: "https://cdn.example/ph.jpg"}
	api.Uploader = uploader
	route := testRoute()

	mock.ExpectQuery(`SELECT id, name, COALESCE\(creator_id, ''\)`).
		WithArgs(route.ID).
		WillReturnRows(pgxmock.NewRows(routeRowColumns()).AddRow(routeRowValues(t, route)...))
	expectPhotoLinkTx(t, mock, route)

	req := uploadRequest(t, map[string]string{
		"route_id":    route.ID,
		"waypoint_id": "wp-1",
	}, "one.jpg", "two.jpg", "three.jpg")
	rec := doRequest(api, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data uploadSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Uploaded != 3 {
		t.Fatalf("got %d uploaded, want 3", resp.Data.Uploaded)
	}
	if got := atomic.LoadInt32(&uploader.calls); got != 3 {
		t.Fatalf("got %d storage uploads, want 3", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeletePhotoHandler(t *testing.T) {
	api, mock := newTestAPI(t)
	route := testRoute()
	route.Photos = []model.Photo{
		model.NewWaypointPhoto("ph-1", "https://cdn.example/ph-1.jpg", "", route.IntermediateWaypoints[0]),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(route.ID).
		WillReturnRows(pgxmock.NewRows(routeRowColumns()).AddRow(routeRowValues(t, route)...))
	mock.ExpectExec(`UPDATE routes SET photos`).
		WithArgs(route.ID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodDelete, "/api/photos/"+route.ID+"/ph-1", nil)
	rec := doRequest(api, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeletePhotoNotFound(t *testing.T) {
	api, mock := newTestAPI(t)
	route := testRoute()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(route.ID).
		WillReturnRows(pgxmock.NewRows(routeRowColumns()).AddRow(routeRowValues(t, route)...))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodDelete, "/api/photos/"+route.ID+"/ph-missing", nil)
	rec := doRequest(api, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404: %s", rec.Code, rec.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
