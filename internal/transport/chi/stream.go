package chi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	dompipe "github.com/kailas-cloud/medscribe/internal/domain/pipeline"
	"github.com/kailas-cloud/medscribe/internal/logger"
)

const contentTypeNDJSON = "application/x-ndjson"

// streamEvents writes one JSON line per event and flushes after each.
// It returns when the run closes the channel or the client goes away.
func streamEvents(w http.ResponseWriter, r *http.Request, events <-chan dompipe.Event) {
	log := logger.FromContext(r.Context())
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", contentTypeNDJSON)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for ev := range events {
		if err := enc.Encode(eventToStream(ev)); err != nil {
			log.Info("stream client gone", zap.String("status", string(ev.Status)), zap.Error(err))
			drain(events)
			return
		}
		if err := rc.Flush(); err != nil {
			log.Debug("stream flush failed", zap.Error(err))
		}
	}
}

// drain consumes the rest of a run so its goroutine can exit.
// The run itself stops once the request context is cancelled.
func drain(events <-chan dompipe.Event) {
	go func() {
		for range events {
		}
	}()
}
