// Package runtime holds the broadcast hub: the single place deciding what every
// live connection is told.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"treasure-hunt/contract"
	"treasure-hunt/domain/event"
	"treasure-hunt/errors"
	"treasure-hunt/observability"
)

type Hub struct {
	// Held for a whole fan-out so each connection queues events in publish order
	mu       sync.Mutex
	log      *slog.Logger
	registry contract.IRegistry
	filter   contract.RelayFilter
	metrics  *observability.Metrics
	sinks    []contract.EventSink
}

// NewHub builds a hub. A nil filter relays any well-formed JSON verbatim.
func NewHub(log *slog.Logger, registry contract.IRegistry, filter contract.RelayFilter, metrics *observability.Metrics) *Hub {
	return &Hub{log: log, registry: registry, filter: filter, metrics: metrics}
}

// AddSinks registers in-process consumers receiving every published event.
func (h *Hub) AddSinks(sinks ...contract.EventSink) *Hub {
	h.sinks = append(h.sinks, sinks...)
	return h
}

func (h *Hub) Register(conn contract.Connection) {
	if !h.registry.Register(conn) {
		h.log.Warn("Connection already registered", "connection_id", conn.ID())
		return
	}
	h.metrics.Connections.Set(float64(h.registry.Len()))
	h.log.Info("Connection registered", "connection_id", conn.ID(), "connections", h.registry.Len())
}

// Unregister removes and closes the connection. Calling it again does nothing.
func (h *Hub) Unregister(conn contract.Connection) {
	registered, ok := h.registry.Unregister(conn.ID())
	if !ok {
		return
	}
	if err := registered.Close(); err != nil {
		h.log.Debug("Closing connection failed", "connection_id", conn.ID(), "error", err)
	}
	h.metrics.Connections.Set(float64(h.registry.Len()))
	h.log.Info("Connection unregistered", "connection_id", conn.ID(), "connections", h.registry.Len())
}

// Publish serializes e and queues it on every registered connection.
// Failures stay inside the hub: the broken connection is dropped and the others still receive e.
func (h *Hub) Publish(ctx context.Context, e event.Event) {
	payload, err := event.Encode(e)
	if err != nil {
		h.log.Error("Encoding event failed", "event_type", e.Type(), "error", err)
		return
	}

	for _, sink := range h.sinks {
		if err := sink.Consume(ctx, e); err != nil {
			h.log.Warn("Sink failed to consume event", "event_type", e.Type(), "error", err)
		}
	}

	delivered := h.fanout(payload, nil)
	h.metrics.EventsPublished.WithLabelValues(string(e.Type())).Inc()
	h.log.Debug("Event published", "event_type", e.Type(), "delivered", delivered)
}

// Relay forwards a client-originated payload to every other connection,
// after the relay filter had its say.
func (h *Hub) Relay(ctx context.Context, payload []byte, from contract.Connection) {
	forwarded, err := h.relayPayload(ctx, payload)
	if err != nil {
		h.metrics.RelayedEvents.WithLabelValues("dropped").Inc()
		h.log.Warn("Client event dropped", "connection_id", from.ID(), "error", err)
		return
	}

	delivered := h.fanout(forwarded, from)
	h.metrics.RelayedEvents.WithLabelValues("relayed").Inc()
	h.log.Debug("Client event relayed", "connection_id", from.ID(), "delivered", delivered)
}

func (h *Hub) relayPayload(ctx context.Context, payload []byte) ([]byte, error) {
	if h.filter != nil {
		return h.filter.Filter(ctx, payload)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not JSON", errors.ErrInvalidRequest)
	}
	return payload, nil
}

func (h *Hub) fanout(payload []byte, except contract.Connection) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, conn := range h.registry.Connections() {
		if except != nil && conn.ID() == except.ID() {
			continue
		}
		if err := conn.Send(payload); err != nil {
			h.metrics.DeliveryFailures.Inc()
			h.log.Warn("Delivery failed, dropping connection", "connection_id", conn.ID(), "error", err)
			h.Unregister(conn)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) Len() int {
	return h.registry.Len()
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	for _, conn := range h.registry.Connections() {
		h.Unregister(conn)
	}
	h.log.Info("Hub stopped")
}
