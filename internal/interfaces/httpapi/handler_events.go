package httpapi

import (
	"fmt"
	"net/http"

	"github.com/poolside-labs/squares-pool/internal/usecase"
)

// StreamEvents pushes pool snapshots over Server-Sent Events. Clients that
// fall behind miss intermediate frames and resync from the next one.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamEvents")
	defer span.End()

	if h.events == nil {
		writeError(ctx, w, fmt.Errorf("%w: event stream is not enabled", usecase.ErrDependencyUnavailable))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: streaming unsupported by connection", usecase.ErrDependencyUnavailable))
		return
	}

	events, cancel := h.events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
