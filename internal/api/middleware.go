package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetplan/internal/metrics"
	"fleetplan/internal/obs"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers work through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController and the
// websocket upgrader.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// accessLog tags the request with an id, logs it and records HTTP metrics.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(obs.WithRequestID(r.Context(), reqID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				log.Error().Str("req_id", reqID).Interface("panic", p).Str("path", r.URL.Path).Msg("handler panic")
				writeProblem(rec, http.StatusInternalServerError, "Internal Server Error", "", r.URL.Path)
			}
			dur := time.Since(start)
			status := strconv.Itoa(rec.status)
			path := metricPath(r.URL.Path)
			metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(dur.Seconds())
			log.Info().
				Str("req_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("dur", dur).
				Msg("request")
		}()
		next.ServeHTTP(rec, r)
	})
}

// metricPath collapses ids so label cardinality stays bounded.
func metricPath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) >= 3 && parts[0] == "v1" && (parts[1] == "scenarios" || parts[1] == "runs") {
		if _, err := uuid.Parse(parts[2]); err == nil {
			parts[2] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}
