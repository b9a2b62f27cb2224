package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPMetricsMiddleware instruments every request with the Prometheus HTTP
// counters and histograms. The mux pattern matched downstream is used as
// the path label so /api/orders/{id} stays one series instead of one per
// order id.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		ObserveHTTPRequest(r.Method, routeLabel(r), strconv.Itoa(rec.status), time.Since(start))
	})
}

// routeLabel prefers the matched route pattern over the raw path to keep
// label cardinality bounded. Unmatched requests (404s) fall back to the
// raw path.
func routeLabel(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return r.URL.Path
	}
	// Patterns are registered as "METHOD /path"; the method is already its
	// own label.
	if i := strings.IndexByte(p, ' '); i >= 0 {
		return p[i+1:]
	}
	return p
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
