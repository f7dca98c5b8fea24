package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/agentmon/agentmon/internal/installapi"
)

// EventSource is the slice of the orchestration API client the event
// stream consumes.
type EventSource interface {
	Events(ctx context.Context, clusterID string) ([]installapi.Event, error)
}

// EventStream polls the orchestration API's event feed and emits each event
// at most once per process lifetime. It owns its dedup set; nothing else
// writes to it.
type EventStream struct {
	client   EventSource
	interval time.Duration
	log      logr.Logger

	seen map[string]struct{}
}

// NewEventStream creates an event stream. The interval is deliberately
// shorter than the main snapshot poll: events are latency-sensitive
// narrative, the coarse percentage is not.
func NewEventStream(client EventSource, interval time.Duration, log logr.Logger) *EventStream {
	return &EventStream{
		client:   client,
		interval: interval,
		log:      log,
		seen:     map[string]struct{}{},
	}
}

// Poll fetches the feed once and returns only events never emitted before,
// in feed order. Transient failures return an empty batch.
func (s *EventStream) Poll(ctx context.Context, clusterID string) []installapi.Event {
	events, err := s.client.Events(ctx, clusterID)
	if err != nil {
		if !errors.Is(err, installapi.ErrNoCredentials) {
			s.log.V(1).Info("event poll failed", "error", err.Error())
		}
		return nil
	}

	var fresh []installapi.Event
	for _, event := range events {
		key := event.DedupKey()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		fresh = append(fresh, event)
	}
	return fresh
}

// Run polls until the context is cancelled, passing new events to emit.
// clusterID is re-evaluated every tick; while it returns "" (no target
// cluster known yet, or credentials absent) the stream just sleeps and
// rechecks.
func (s *EventStream) Run(ctx context.Context, clusterID func() string, emit func(installapi.Event)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id := clusterID()
			if id == "" {
				continue
			}
			for _, event := range s.Poll(ctx, id) {
				emit(event)
			}
		}
	}
}
