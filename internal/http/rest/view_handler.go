package rest

import (
	_ "embed"
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tripfolio/tripfolio-api/internal/model"
	"github.com/tripfolio/tripfolio-api/util"
)

//go:embed view.html
var viewTemplate string

var viewTmpl = template.Must(
	template.New("view").Funcs(util.TemplateFuncs).Parse(viewTemplate),
)

const notFoundPage = `<!DOCTYPE html>
<html><head><title>Route not found</title></head>
<body style="font-family: system-ui, sans-serif; text-align: center; margin-top: 4rem;">
<h1>Route not found</h1>
<p>This shared route does not exist or has been deleted.</p>
</body></html>`

// ViewRouteHandler renders the read-only share page for a saved route. It
// fetches a fresh copy of the document per page load; nothing is shared with
// any editing session.
func (api *API) ViewRouteHandler(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	route, err := api.GetRouteRepo(r.Context(), routeID)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(notFoundPage))
			return
		}
		log.Printf("share view: failed to load route %s: %v", routeID, err)
		http.Error(w, "failed to load route", http.StatusInternalServerError)
		return
	}

	data := struct {
		Route model.Route
	}{Route: route}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := viewTmpl.Execute(w, data); err != nil {
		log.Printf("share view: template error for route %s: %v", routeID, err)
	}
}
