package events

import (
	"sync/atomic"
	"testing"
)

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second atomic.Int32
	bus.Subscribe(func(e Event) { first.Add(1) })
	bus.Subscribe(func(e Event) { second.Add(1) })

	bus.Publish(Event{Type: TypeCoinsAwarded, StudentID: 1, Amount: 10})
	bus.Publish(Event{Type: TypeCoinsRemoved, StudentID: 1, Amount: -5})
	bus.Flush()

	if first.Load() != 2 || second.Load() != 2 {
		t.Errorf("deliveries = %d, %d; want 2, 2", first.Load(), second.Load())
	}
}

func TestBus_FillsIDAndTimestamp(t *testing.T) {
	bus := NewBus()

	got := make(chan Event, 1)
	bus.Subscribe(func(e Event) { got <- e })

	bus.Publish(Event{Type: TypePurchaseDone})
	bus.Flush()

	e := <-got
	if e.ID == "" {
		t.Error("event ID not assigned")
	}
	if e.OccurredAt.IsZero() {
		t.Error("event timestamp not assigned")
	}
}

func TestBus_PanickingSubscriberIsContained(t *testing.T) {
	bus := NewBus()

	var delivered atomic.Int32
	bus.Subscribe(func(e Event) { panic("notifier exploded") })
	bus.Subscribe(func(e Event) { delivered.Add(1) })

	bus.Publish(Event{Type: TypeMysteryRolled})
	bus.Flush()

	if delivered.Load() != 1 {
		t.Errorf("healthy subscriber deliveries = %d, want 1", delivered.Load())
	}
}

func TestBus_PublishWithNoSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(Event{Type: TypeCoinsAwarded})
	bus.Flush()
}
