package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/logger"
)

// Subscription is one long-lived consumer of domain events. Events arrive on C
// until the subscription is dropped: either by Unsubscribe or because the
// consumer fell too far behind and its buffer overflowed.
type Subscription struct {
	ID       string
	Topic    domain.EventTopic
	MemberID *int32 // scope; nil receives every event on the topic

	C  <-chan domain.Event
	ch chan domain.Event
}

func (s *Subscription) wants(e domain.Event) bool {
	if s.Topic != e.Topic {
		return false
	}
	if s.MemberID == nil || e.MemberID == nil {
		return true
	}
	return *s.MemberID == *e.MemberID
}

// Broadcaster fans domain events out to registered subscriptions. Publishing
// never blocks: each subscription has a bounded buffer, and a subscription
// whose buffer is full is closed and dropped rather than stalling the writer.
// Delivery is best-effort, at-most-once; there is no replay.
type Broadcaster struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	bufferSize int
	closed     bool
}

func NewBroadcaster(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Broadcaster{
		subs:       make(map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a new consumer for one topic, optionally scoped to a
// single member. Returns nil after Close.
func (b *Broadcaster) Subscribe(topic domain.EventTopic, memberID *int32) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}

	ch := make(chan domain.Event, b.bufferSize)
	sub := &Subscription{
		ID:       uuid.New().String(),
		Topic:    topic,
		MemberID: memberID,
		C:        ch,
		ch:       ch,
	}
	b.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call for
// already-dropped ids.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers the payload to all matching subscriptions without blocking.
func (b *Broadcaster) Publish(topic domain.EventTopic, memberID *int32, payload any) {
	event := domain.Event{
		ID:         uuid.New().String(),
		Topic:      topic,
		MemberID:   memberID,
		Payload:    payload,
		OccurredOn: time.Now(),
	}

	var overflowed []string
	b.mu.RLock()
	for id, sub := range b.subs {
		if !sub.wants(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			overflowed = append(overflowed, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range overflowed {
		logger.Warn("Dropping slow event subscriber", "subscription_id", id, "topic", topic)
		b.Unsubscribe(id)
	}
}

// Close drops every subscription. Publish becomes a no-op afterwards.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
