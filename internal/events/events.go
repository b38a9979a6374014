// Package events implements the Event Bus (spec §4.8, component C8):
// an in-process publish/subscribe fan-out with a per-batch topic and a
// global "dashboard" topic, bounded per-subscriber buffers, and
// drop-oldest backpressure handling.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Type identifies the kind of event on a topic (spec §4.8).
type Type string

const (
	TypeBatchStarted        Type = "batch_started"
	TypeBatchProgress       Type = "batch_progress"
	TypeSubjectProcessed    Type = "subject_processed"
	TypeProcessingError     Type = "processing_error"
	TypeBatchCompleted      Type = "batch_completed"
	TypeBatchFailed         Type = "batch_failed"
	TypeBatchCancelled      Type = "batch_cancelled"
	TypeBackpressureWarning Type = "backpressure_warning"
)

// DashboardTopic is the global topic that mirrors every batch's events.
const DashboardTopic = "dashboard"

// BatchTopic returns the per-batch topic name for batchID.
func BatchTopic(batchID string) string { return "batch:" + batchID }

// Event is one message on a topic. Data carries the type-specific
// payload (e.g. a map[string]any of progress counters, or a
// *qctypes.ProcessingError).
type Event struct {
	Type      Type
	Topic     string
	BatchID   string
	Seq       uint64
	Timestamp time.Time
	Data      any
}

// subscriberBufferSize is the bound on each subscriber's per-topic
// channel (spec §4.8: "non-blocking on slow subscribers").
const subscriberBufferSize = 256

type subscriber struct {
	id uint64
	ch chan Event
}

// Bus is the process-wide event bus. Zero value is not usable; use New.
type Bus struct {
	mu          sync.Mutex
	nextSubID   uint64
	nextSeq     map[string]uint64
	subscribers map[string][]*subscriber

	metrics *busMetrics
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{
		nextSeq:     make(map[string]uint64),
		subscribers: make(map[string][]*subscriber),
		metrics:     newBusMetrics(),
	}
}

// Subscribe registers a new subscriber on topic and returns its ID (for
// Unsubscribe) and a receive-only channel of events.
func (b *Bus) Subscribe(topic string) (uint64, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	id := b.nextSubID
	sub := &subscriber{id: id, ch: make(chan Event, subscriberBufferSize)}
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.metrics.subscriberCount.WithLabelValues(topic).Inc()
	return id, sub.ch
}

// Unsubscribe removes subscriber id from topic, closing its channel.
// Idempotent: unsubscribing an id that is not (or no longer) present is
// a no-op (spec §4.8).
func (b *Bus) Unsubscribe(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, s := range subs {
		if s.id == id {
			close(s.ch)
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			b.metrics.subscriberCount.WithLabelValues(topic).Dec()
			return
		}
	}
}

// Publish sends ev to every subscriber of topic, assigning it the next
// sequence number for that topic. Delivery is non-blocking: a full
// subscriber channel drops its oldest pending events to make room for ev
// followed by a synthetic backpressure_warning event.
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.Lock()
	b.nextSeq[topic]++
	ev.Topic = topic
	ev.Seq = b.nextSeq[topic]
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	subs := append([]*subscriber(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	b.metrics.published.WithLabelValues(topic, string(ev.Type)).Inc()

	for _, s := range subs {
		b.deliver(s, topic, ev)
	}
}

// PublishBatchEvent publishes ev on both the batch-scoped topic and the
// global dashboard topic, in that order (spec §4.8).
func (b *Bus) PublishBatchEvent(batchID string, ev Event) {
	ev.BatchID = batchID
	b.Publish(BatchTopic(batchID), ev)
	b.Publish(DashboardTopic, ev)
}

func (b *Bus) deliver(s *subscriber, topic string, ev Event) {
	select {
	case s.ch <- ev:
		return
	default:
	}

	// Buffer full: drop the oldest queued event to make room, per spec's
	// drop-oldest backpressure policy, then emit a warning in its place.
	select {
	case <-s.ch:
		b.metrics.dropped.WithLabelValues(topic).Inc()
	default:
	}
	select {
	case s.ch <- ev:
	default:
	}

	warn := Event{
		Type:      TypeBackpressureWarning,
		Topic:     topic,
		BatchID:   ev.BatchID,
		Timestamp: time.Now(),
		Data:      fmt.Sprintf("subscriber buffer full on topic %s; oldest event dropped", topic),
	}
	select {
	case s.ch <- warn:
	default:
		// ev refilled the buffer: drop one more oldest event so the
		// warning itself fits.
		select {
		case <-s.ch:
			b.metrics.dropped.WithLabelValues(topic).Inc()
		default:
		}
		select {
		case s.ch <- warn:
		default:
		}
	}
}
