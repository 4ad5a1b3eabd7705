package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusFiltersByType(t *testing.T) {
	bus := NewEventBus()
	var all, typed []EventType

	bus.Subscribe(func(e Event) { all = append(all, e.Type) })
	bus.Subscribe(func(e Event) { typed = append(typed, e.Type) }, EventTurnAdvanced, EventMatchReset)

	bus.Publish(NewEvent(EventStateChanged, 0, ""))
	bus.Publish(NewEvent(EventTurnAdvanced, 0, "Turn 2"))
	bus.Publish(NewEvent(EventMatchReset, 0, "Game reset"))

	assert.Equal(t, []EventType{EventStateChanged, EventTurnAdvanced, EventMatchReset}, all)
	assert.Equal(t, []EventType{EventTurnAdvanced, EventMatchReset}, typed)
}

func TestEventBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewEventBus()
	var order []int
	for i := 1; i <= 5; i++ {
		bus.Subscribe(func(Event) { order = append(order, i) })
	}
	bus.Publish(NewEvent(EventStateChanged, 0, ""))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	id1 := bus.Subscribe(func(Event) { calls++ })
	id2 := bus.Subscribe(func(Event) { calls++ }, EventMatchReset)
	require.NotEqual(t, id1, id2)

	assert.True(t, bus.Unsubscribe(id1))
	assert.True(t, bus.Unsubscribe(id2))
	assert.False(t, bus.Unsubscribe(id2))
	assert.Zero(t, bus.Len())

	bus.Publish(NewEvent(EventMatchReset, 0, "Game reset"))
	assert.Zero(t, calls)
}

func TestEventBusNilListener(t *testing.T) {
	bus := NewEventBus()
	assert.Zero(t, bus.Subscribe(nil))
	assert.Zero(t, bus.Subscribe(nil, EventLifeChanged))
	assert.Zero(t, bus.Len())
}

func TestEventBusSubscribeDuringPublish(t *testing.T) {
	bus := NewEventBus()
	late := 0
	bus.Subscribe(func(Event) {
		bus.Subscribe(func(Event) { late++ })
	})

	bus.Publish(NewEvent(EventStateChanged, 0, ""))
	assert.Zero(t, late, "listener added mid-publish waits for the next event")
	assert.Equal(t, 2, bus.Len())

	bus.Publish(NewEvent(EventStateChanged, 0, ""))
	assert.Equal(t, 1, late)
}
