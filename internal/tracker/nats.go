package tracker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"geo-reminder/internal/geo"
)

// Subscriber delivers raw message payloads for a subject until cancelled.
// events.NATSSubscriber implements it.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
}

// NATSSource reads fixes published by devices on a NATS subject. A payload is
// either a position object or {"error": {"code": .., "message": ..}}.
type NATSSource struct {
	sub     Subscriber
	subject string
	logger  *slog.Logger

	mu      sync.Mutex
	next    WatchID
	cancels map[WatchID]func()
}

func NewNATSSource(sub Subscriber, subject string, logger *slog.Logger) *NATSSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSource{
		sub:     sub,
		subject: subject,
		logger:  logger,
		cancels: make(map[WatchID]func()),
	}
}

type fixEnvelope struct {
	Error *AcquisitionError `json:"error"`
}

func (n *NATSSource) Watch(_ Options, onFix func(geo.Position), onError func(error)) (WatchID, error) {
	msgs, cancel, err := n.sub.Subscribe(n.subject)
	if err != nil {
		return 0, fmt.Errorf("failed to subscribe to %s: %w", n.subject, err)
	}

	n.mu.Lock()
	n.next++
	id := n.next
	n.cancels[id] = cancel
	n.mu.Unlock()

	go func() {
		for data := range msgs {
			var env fixEnvelope
			if err := json.Unmarshal(data, &env); err != nil {
				n.logger.Warn("discarding malformed position message", "subject", n.subject, "error", err)
				continue
			}
			if env.Error != nil {
				onError(env.Error)
				continue
			}
			var pos geo.Position
			if err := json.Unmarshal(data, &pos); err != nil {
				n.logger.Warn("discarding malformed position message", "subject", n.subject, "error", err)
				continue
			}
			onFix(pos)
		}
	}()
	return id, nil
}

func (n *NATSSource) ClearWatch(id WatchID) {
	n.mu.Lock()
	cancel, ok := n.cancels[id]
	delete(n.cancels, id)
	n.mu.Unlock()
	if ok {
		cancel()
	}
}
