package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tenantworks/platform/internal/broadcast"
	"github.com/tenantworks/platform/internal/middleware"
	"github.com/tenantworks/platform/pkg/logger"
	"github.com/tenantworks/platform/pkg/metrics"
)

// StreamHandler bridges broadcast channels to clients over SSE. Delivery is
// at most once: a slow or disconnected client misses events and
// resynchronizes from the persisted data on its next fetch.
type StreamHandler struct {
	publisher  *broadcast.Publisher
	authorizer *broadcast.Authorizer
	logger     *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(publisher *broadcast.Publisher, authorizer *broadcast.Authorizer, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		publisher:  publisher,
		authorizer: authorizer,
		logger:     log,
	}
}

type liveEvent struct {
	kind string
	data []byte
}

// Events handles GET /api/v1/events?channel=<name>
// The channel name follows the tenant:{id}:conversation:{id} /
// tenant:{id}:notifications convention and is authorized against the
// caller's identity before any event flows.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := middleware.GetIdentity(ctx)

	ch, err := broadcast.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.authorizer.Authorize(ctx, ch, ident)
	if err != nil {
		h.logger.Error("channel authorization failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authorization check failed")
		return
	}
	if !ok {
		// Same answer for a foreign channel and a missing one.
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok2 := w.(http.Flusher)
	if !ok2 {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	// Buffered so the NATS callback never blocks; overflow is dropped.
	events := make(chan liveEvent, 64)
	unsubscribe, err := h.publisher.Subscribe(ch, func(subject string, data []byte) {
		kind := "event"
		if strings.HasPrefix(subject, "whisper.") {
			kind = "typing"
		}
		select {
		case events <- liveEvent{kind: kind, data: data}:
		default:
		}
	})
	if err != nil {
		h.logger.Error("channel subscribe failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}
	defer unsubscribe()

	sendSSEEvent(w, flusher, "connected", map[string]string{"channel": ch.Name()})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("channel", ch.Name()))
			return

		case ev := <-events:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.kind, ev.data)
			flusher.Flush()

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
