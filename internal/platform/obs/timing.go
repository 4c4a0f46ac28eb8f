// Package obs carries the request-scoped observability helpers shared by the
// HTTP layer and the storage adapters.
package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

// RequestIDKey carries the request id injected by the HTTP middleware so
// adapter-level log lines correlate with the request log.
const RequestIDKey ctxKey = "req_id"

// slowOpThreshold flags operations worth a second look in the logs.
const slowOpThreshold = 250 * time.Millisecond

// Time returns a deferred-style closure that logs the operation's duration and
// outcome. Use as: defer obs.Time(ctx, "create_dispatch")(&err).
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		switch {
		case errp != nil && *errp != nil:
			log.Printf("req_id=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), *errp)
		case dur >= slowOpThreshold:
			log.Printf("req_id=%s op=%s dur=%dms slow=true", reqID, name, dur.Milliseconds())
		default:
			log.Printf("req_id=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
		}
	}
}
