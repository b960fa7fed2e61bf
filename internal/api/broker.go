package api

import (
	"sync"

	"fleetplan/internal/metrics"
)

// Event is a run notification fanned out to stream subscribers.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Event types.
const (
	EventRunCompleted     = "run.completed"
	EventCompareCompleted = "compare.completed"
)

// TopicAll receives every event regardless of scenario.
const TopicAll = "all"

// EventBroker fans events out by topic (scenario id or TopicAll).
type EventBroker interface {
	Subscribe(topic string) chan Event
	Unsubscribe(topic string, ch chan Event)
	Publish(topic string, evt Event)
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(topic string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan Event]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[topic]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, topic)
	}
	close(ch)
}

// Publish delivers evt to every subscriber of topic; slow subscribers drop it.
func (b *Broker) Publish(topic string, evt Event) {
	metrics.RunEvents.WithLabelValues(evt.Type).Inc()
	b.mu.Lock()
	for ch := range b.subs[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// publishRun sends evt to the scenario topic (when set) and to TopicAll.
func publishRun(b EventBroker, scenarioID string, evt Event) {
	if scenarioID != "" {
		b.Publish(scenarioID, evt)
	}
	b.Publish(TopicAll, evt)
}
