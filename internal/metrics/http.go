package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Middleware observes every request served by a chi router under the
// given server label. Routes are labeled by pattern, not raw path, so path
// parameters do not blow up cardinality.
func (r *Registry) Middleware(server string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if r == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)

			route := "unmatched"
			if rctx := chi.RouteContext(req.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = req.Method + " " + p
				}
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			r.ObserveHTTP(server, route, code, time.Since(start).Seconds())
		})
	}
}
