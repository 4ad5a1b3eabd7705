// Package events carries re-render requests from the tracker controller to
// its observers (presentation bridge, diagnostics).
package events

import (
	"sync"
	"time"
)

// EventType indicates the category of a tracker event.
type EventType string

const (
	EventStateChanged  EventType = "STATE_CHANGED"
	EventLifeChanged   EventType = "LIFE_CHANGED"
	EventPlayerAdded   EventType = "PLAYER_ADDED"
	EventPlayerRemoved EventType = "PLAYER_REMOVED"
	EventTurnAdvanced  EventType = "TURN_ADVANCED"
	EventFormatChanged EventType = "FORMAT_CHANGED"
	EventMatchReset    EventType = "MATCH_RESET"
	EventDieRolled     EventType = "DIE_ROLLED"
	EventCoinFlipped   EventType = "COIN_FLIPPED"
)

// Event describes an accepted transition.
type Event struct {
	Type        EventType
	PlayerID    int    // 0 when the event is not about one player
	Amount      int    // new life, die result, new turn...
	Data        string // intent name or coin face
	Description string
	Timestamp   time.Time
	// State is an independent copy of the full match state after the transition.
	State any
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, playerID int, description string) Event {
	return Event{
		Type:        eventType,
		PlayerID:    playerID,
		Description: description,
		Timestamp:   time.Now(),
	}
}

// Listener reacts to a published event. Listeners run synchronously on the
// publisher's goroutine.
type Listener func(Event)

// SubscriptionID identifies a subscription. The zero value is never issued.
type SubscriptionID uint64

type subscription struct {
	id       SubscriptionID
	types    map[EventType]bool // nil matches every type
	listener Listener
}

func (s subscription) matches(t EventType) bool {
	return s.types == nil || s.types[t]
}

// EventBus is a synchronous publish/subscribe hub. Listeners are invoked in
// subscription order and may subscribe or unsubscribe from inside a callback;
// such changes take effect from the next Publish.
type EventBus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID SubscriptionID
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers listener for the given types, or for every type when
// none are given. A nil listener is ignored and yields the zero ID.
func (bus *EventBus) Subscribe(listener Listener, types ...EventType) SubscriptionID {
	if listener == nil {
		return 0
	}
	var filter map[EventType]bool
	if len(types) > 0 {
		filter = make(map[EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.nextID++
	// Copy on write so a Publish in progress keeps iterating its own slice.
	subs := make([]subscription, len(bus.subs), len(bus.subs)+1)
	copy(subs, bus.subs)
	bus.subs = append(subs, subscription{id: bus.nextID, types: filter, listener: listener})
	return bus.nextID
}

// Unsubscribe removes a subscription and reports whether it existed.
func (bus *EventBus) Unsubscribe(id SubscriptionID) bool {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, s := range bus.subs {
		if s.id != id {
			continue
		}
		subs := make([]subscription, 0, len(bus.subs)-1)
		subs = append(subs, bus.subs[:i]...)
		bus.subs = append(subs, bus.subs[i+1:]...)
		return true
	}
	return false
}

// Publish delivers evt to every matching listener before returning.
func (bus *EventBus) Publish(evt Event) {
	bus.mu.RLock()
	subs := bus.subs
	bus.mu.RUnlock()

	for _, s := range subs {
		if s.matches(evt.Type) {
			s.listener(evt)
		}
	}
}

// Len returns the number of live subscriptions.
func (bus *EventBus) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}
