package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/logger"
)

// handleEvents streams domain events over SSE. Members receive only events
// scoped to them; admins see everything on the topic. A client that stops
// reading is dropped once its buffer overflows and must reconnect.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	topic := domain.EventTopic(r.URL.Query().Get("topic"))
	switch topic {
	case domain.TopicCredit, domain.TopicInventory, domain.TopicBorrowing, domain.TopicDisbursement:
	default:
		writeError(w, domain.Errorf(domain.KindValidation, "unknown event topic %q", topic))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, domain.NewError(domain.KindValidation, "streaming is not supported on this connection"))
		return
	}

	var scope *int32
	if !claims.IsAdmin() {
		memberID := claims.UserID
		scope = &memberID
	}
	sub := s.broadcaster.Subscribe(topic, scope)
	if sub == nil {
		writeError(w, domain.NewError(domain.KindInvariantViolation, "event broadcaster is shut down"))
		return
	}
	defer s.broadcaster.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-sub.C:
			if !open {
				// Dropped as a slow consumer.
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to encode event", "eventID", event.ID, "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Topic, data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
