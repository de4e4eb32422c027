package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tripfolio/tripfolio-api/internal/db"
	"github.com/tripfolio/tripfolio-api/internal/model"
)

// ErrRouteNotFound distinguishes a missing route from a failing query, so
// handlers can answer 404 instead of a generic error.
var ErrRouteNotFound = errors.New("route not found")

// UpsertRouteRepo writes the full route document keyed by its
// client-generated id. Saving the same id twice updates the one stored row,
// which is what makes a retried or duplicate save harmless. The returned
// flag reports whether the row was created rather than updated.
func (api *API) UpsertRouteRepo(ctx context.Context, route model.Route) (bool, error) {
	origin, destination, stops, photos, err := marshalRouteColumns(route)
	if err != nil {
		return false, err
	}

	stmt := `
        INSERT INTO routes (id, name, creator_id, origin, destination, intermediate_waypoints, photos, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (id) DO UPDATE
        SET name = EXCLUDED.name,
            origin = EXCLUDED.origin,
            destination = EXCLUDED.destination,
            intermediate_waypoints = EXCLUDED.intermediate_waypoints,
            photos = EXCLUDED.photos,
            updated_at = NOW()
        RETURNING (xmax = 0) AS created
    `

	var created bool
	err = api.DB.QueryRow(ctx, stmt,
		route.ID,
		route.Name,
		nullable(route.CreatorID),
		origin,
		destination,
		stops,
		photos,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upserting route: %w", err)
	}
	return created, nil
}

// GetRouteRepo fetches one route document. Photos saved before the
// location-source field existed are normalized on the way out.
func (api *API) GetRouteRepo(ctx context.Context, id string) (model.Route, error) {
	return api.getRoute(ctx, api.DB, id, false)
}

// getRoute runs against the pool or a transaction. With forUpdate the row is
// locked for the rest of the transaction, which is how read-modify-write of
// the photo collection stays atomic under concurrent uploads.
func (api *API) getRoute(ctx context.Context, q db.Querier, id string, forUpdate bool) (model.Route, error) {
	stmt := `
        SELECT id, name, COALESCE(creator_id, ''), origin, destination,
               intermediate_waypoints, photos, created_at, updated_at
        FROM routes
        WHERE id = $1
    `
	if forUpdate {
		stmt += ` FOR UPDATE`
	}

	var (
		route                              model.Route
		origin, destination, stops, photos []byte
	)
	err := q.QueryRow(ctx, stmt, id).Scan(
		&route.ID,
		&route.Name,
		&route.CreatorID,
		&origin,
		&destination,
		&stops,
		&photos,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Route{}, ErrRouteNotFound
		}
		return model.Route{}, fmt.Errorf("getting route: %w", err)
	}

	if err := unmarshalRouteColumns(&route, origin, destination, stops, photos); err != nil {
		return model.Route{}, err
	}
	route.Photos = model.NormalizePhotos(route.Photos)
	return route, nil
}

// UpdateRoutePhotosRepo replaces just the photo collection, used after a
// photo upload has completed and been linked.
func (api *API) UpdateRoutePhotosRepo(ctx context.Context, id string, photos []model.Photo) error {
	return api.updateRoutePhotos(ctx, api.DB, id, photos)
}

func (api *API) updateRoutePhotos(ctx context.Context, q db.Querier, id string, photos []model.Photo) error {
	encoded, err := json.Marshal(photosOrEmpty(photos))
	if err != nil {
		return fmt.Errorf("encoding photos: %w", err)
	}

	stmt := `UPDATE routes SET photos = $2, updated_at = NOW() WHERE id = $1`
	result, err := q.Exec(ctx, stmt, id, encoded)
	if err != nil {
		return fmt.Errorf("updating route photos: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

func (api *API) DeleteRouteRepo(ctx context.Context, id string) error {
	result, err := api.DB.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting route: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

func marshalRouteColumns(route model.Route) (origin, destination, stops, photos []byte, err error) {
	if origin, err = json.Marshal(route.Origin); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding origin: %w", err)
	}
	if destination, err = json.Marshal(route.Destination); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding destination: %w", err)
	}
	waypoints := route.IntermediateWaypoints
	if waypoints == nil {
		waypoints = []model.Waypoint{}
	}
	if stops, err = json.Marshal(waypoints); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding intermediate waypoints: %w", err)
	}
	if photos, err = json.Marshal(photosOrEmpty(route.Photos)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding photos: %w", err)
	}
	return origin, destination, stops, photos, nil
}

func unmarshalRouteColumns(route *model.Route, origin, destination, stops, photos []byte) error {
	if err := json.Unmarshal(origin, &route.Origin); err != nil {
		return fmt.Errorf("decoding origin: %w", err)
	}
	if err := json.Unmarshal(destination, &route.Destination); err != nil {
		return fmt.Errorf("decoding destination: %w", err)
	}
	if err := json.Unmarshal(stops, &route.IntermediateWaypoints); err != nil {
		return fmt.Errorf("decoding intermediate waypoints: %w", err)
	}
	if err := json.Unmarshal(photos, &route.Photos); err != nil {
		return fmt.Errorf("decoding photos: %w", err)
	}
	return nil
}

func photosOrEmpty(photos []model.Photo) []model.Photo {
	if photos == nil {
		return []model.Photo{}
	}
	return photos
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isStorageQuotaErr recognizes the out-of-disk class of persistence
// failures so they can be surfaced distinctly from generic save errors.
func isStorageQuotaErr(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "53100"
}
