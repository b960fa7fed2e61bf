// Package obs holds request-scoped logging helpers.
package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores id on ctx for later log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time starts an operation timer. Call the returned func (usually deferred)
// with a pointer to the operation's error to log its duration and outcome.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)
		if errp != nil && *errp != nil {
			log.Warn().Str("req_id", reqID).Str("op", name).Dur("dur", dur).Err(*errp).Msg("op failed")
			return
		}
		log.Debug().Str("req_id", reqID).Str("op", name).Dur("dur", dur).Msg("op done")
	}
}
