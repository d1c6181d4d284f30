package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/kellyfolio/internal/events"
)

// handleStreamRun upgrades to a websocket and forwards every MaskSolved,
// AllocationCompleted and AllocationFailed event carrying this run's ID as a
// JSON text frame, until the client disconnects.
func (s *Server) handleStreamRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	log := zerolog.Ctx(r.Context())

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	// The connection is hijacked, so r.Context() is not cancelled when the
	// client goes away; CloseRead's context is.
	ctx := conn.CloseRead(r.Context())
	var mu sync.Mutex

	forward := func(e *events.Event) {
		id, _ := e.Data["run_id"].(string)
		if id != runID {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		payload, err := json.Marshal(e)
		if err != nil {
			return
		}
		_ = conn.Write(ctx, websocket.MessageText, payload)
	}

	maskSub := s.bus.Subscribe(events.MaskSolved, forward)
	doneSub := s.bus.Subscribe(events.AllocationCompleted, forward)
	failSub := s.bus.Subscribe(events.AllocationFailed, forward)
	defer s.bus.Unsubscribe(maskSub)
	defer s.bus.Unsubscribe(doneSub)
	defer s.bus.Unsubscribe(failSub)

	// Block until the client disconnects or the request context ends; the
	// subscriptions above do the actual forwarding work asynchronously.
	<-ctx.Done()
	_ = conn.Close(websocket.StatusNormalClosure, "run finished")
}
