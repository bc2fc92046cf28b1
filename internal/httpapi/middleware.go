package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/xshopai/chat-gateway/internal/observability"
)

// WithTrace extracts or generates the trace context for a request. Trace ids
// are accepted from x-trace-id, x-correlation-id, or the trace-id field of a
// W3C traceparent header, in that order; a fresh id is generated otherwise.
// The resolved ids are echoed on the response for downstream correlation.
func WithTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("x-trace-id")
		if traceID == "" {
			traceID = r.Header.Get("x-correlation-id")
		}
		if traceID == "" {
			if parent := r.Header.Get("traceparent"); parent != "" {
				parts := strings.Split(parent, "-")
				if len(parts) >= 2 {
					traceID = parts[1]
				}
			}
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		spanID := r.Header.Get("x-span-id")
		if spanID == "" {
			spanID = strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
		}

		w.Header().Set("x-trace-id", traceID)
		w.Header().Set("x-span-id", spanID)

		ctx := observability.ContextWithTraceID(r.Context(), traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
