package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleetplan/internal/obs"
	"fleetplan/internal/opt"
	"fleetplan/internal/store"

	"github.com/rs/zerolog/log"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// maxBodyBytes bounds request bodies, inline problems included.
const maxBodyBytes = 4 << 20

// decodeJSON reads one JSON value from r.Body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, opt.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, opt.ErrInvalidProblem), errors.Is(err, opt.ErrInvalidAssignment):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("req_id", obs.RequestID(r.Context())).Str("path", r.URL.Path).Msg(title)
	}
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}
