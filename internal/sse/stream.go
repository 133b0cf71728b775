package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/normscout/normscout-backend/internal/platform/logger"
)

// Stream writes server-sent events for one request. Unlike a broadcast hub
// it is owned by a single handler: the analysis endpoint streams progress to
// exactly the caller that started the run.
type Stream struct {
	log     *logger.Logger
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex

	heartbeat *time.Ticker
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewStream prepares w for event streaming and starts a heartbeat so
// proxies keep the connection open during long gaps between norm checks.
func NewStream(log *logger.Logger, w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	s := &Stream{
		log:       log,
		w:         w,
		flusher:   flusher,
		heartbeat: time.NewTicker(15 * time.Second),
		stop:      make(chan struct{}),
	}
	go s.heartbeatLoop()
	return s, nil
}

func (s *Stream) heartbeatLoop() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.heartbeat.C:
			s.mu.Lock()
			_, _ = fmt.Fprint(s.w, ": ping\n\n")
			s.flusher.Flush()
			s.mu.Unlock()
		}
	}
}

// Send writes one named event with a JSON payload.
func (s *Stream) Send(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal sse payload", "event", event, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "event: %s\n", event)
	_, _ = fmt.Fprintf(s.w, "data: %s\n\n", string(raw))
	s.flusher.Flush()
}

// Close stops the heartbeat. The handler still owns the connection.
func (s *Stream) Close() {
	s.stopOnce.Do(func() {
		s.heartbeat.Stop()
		close(s.stop)
	})
}
