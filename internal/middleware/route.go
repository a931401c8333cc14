package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routePattern returns the matched chi pattern (e.g. /tasks/{id}) so that
// labels and span names stay low-cardinality. Only valid after routing.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
