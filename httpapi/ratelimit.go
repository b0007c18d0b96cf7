package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrEthical07/arena/internal/rate"
	"github.com/MrEthical07/arena/middleware"
)

var errRateLimited = errors.New("request rate limited")

// rateLimit applies the per-IP window to every request under /api. Redis
// errors let the request through.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.window == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := s.window.Allow(r.Context(), middleware.ClientIP(r))
		if res.Remaining >= 0 {
			w.Header().Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("RateLimit-Reset", strconv.Itoa(int(res.ResetIn.Seconds())))
		}
		switch {
		case err == nil:
		case errors.Is(err, rate.ErrRateLimited):
			s.metrics.RateLimited("api")
			w.Header().Set("Retry-After", strconv.Itoa(int(res.ResetIn.Seconds())+1))
			s.writeError(w, r, errRateLimited)
			return
		default:
			s.logger.Warn("api rate limiter unavailable", slog.String("error", err.Error()))
		}
		next.ServeHTTP(w, r)
	})
}
