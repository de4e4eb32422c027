package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tripfolio/tripfolio-api/config"
	"github.com/tripfolio/tripfolio-api/internal/db"
	deps "github.com/tripfolio/tripfolio-api/internal/debs"
	googlemaps "github.com/tripfolio/tripfolio-api/internal/http/google"
	"github.com/tripfolio/tripfolio-api/util/values"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

// ImageUploader stores photo binaries and hands back a public URL.
// Satisfied by the Cloudinary client; stubbed in handler tests.
type ImageUploader interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error)
}

type API struct {
	Server   *http.Server
	Config   *config.Config
	Deps     *deps.Dependencies
	DB       db.Querier
	Maps     *googlemaps.GoogleMapsClient
	Uploader ImageUploader
}

func (api *API) Init() {
	if api.Deps != nil {
		if api.DB == nil {
			api.DB = api.Deps.Pool()
		}
		if api.Maps == nil {
			api.Maps = api.Deps.Maps
		}
		if api.Uploader == nil {
			api.Uploader = api.Deps.Cloudinary
		}
	}
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.SetUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) SetUpServerHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(RequestTracing)

	mux.Get("/",
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("tripfolio api"))
		},
	)

	mux.Route("/api", func(r chi.Router) {
		r.Use(api.OptionalAuth)
		r.Mount("/routes", api.RouteRoutes())
		r.Mount("/photos", api.PhotoRoutes())
		r.Mount("/directions", api.DirectionsRoutes())
		r.Mount("/geocode", api.GeocodeRoutes())
	})

	mux.Get("/view/{routeID}", api.ViewRouteHandler)

	return mux
}

func (a *API) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return a.Server.Shutdown(ctx)
}
