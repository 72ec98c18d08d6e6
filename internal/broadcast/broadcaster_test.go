package broadcast

import (
	"fmt"
	"testing"
	"time"

	"ridedispatch/internal/domain"
)

func TestHub_PublishReachesTopicSubscribers(t *testing.T) {
	hub := NewHub(nil)

	riderSub := hub.Subscribe("rider:r1")
	otherSub := hub.Subscribe("rider:r2")
	defer riderSub.Close()
	defer otherSub.Close()

	hub.Publish("rider:r1", domain.Event{Type: domain.EventRideAccepted, RideID: "ride-1"})

	select {
	case ev := <-riderSub.C:
		if ev.Type != domain.EventRideAccepted || ev.RideID != "ride-1" {
			t.Errorf("got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case ev := <-otherSub.C:
		t.Errorf("unrelated topic received %+v", ev)
	default:
	}
}

func TestHub_PerTopicOrdering(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("ride:ride-1")
	defer sub.Close()

	for i := 0; i < 5; i++ {
		hub.Publish("ride:ride-1", domain.Event{
			Type:   domain.EventRideStatusUpdated,
			RideID: "ride-1",
			Data:   map[string]any{"seq": i},
		})
	}

	for i := 0; i < 5; i++ {
		ev := <-sub.C
		if ev.Data["seq"] != i {
			t.Fatalf("event %d arrived out of order: %+v", i, ev)
		}
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("drivers")
	defer sub.Close()

	// Overflow the buffer; Publish must return promptly every time.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriptionBuffer*3; i++ {
			hub.Publish("drivers", domain.Event{Type: domain.EventRideRequested, RideID: fmt.Sprintf("ride-%d", i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	if got := len(sub.C); got != subscriptionBuffer {
		t.Errorf("buffered %d events, want %d", got, subscriptionBuffer)
	}
}

func TestHub_PublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub(nil)
	// Must not panic or block.
	hub.Publish("rider:nobody", domain.Event{Type: domain.EventRideRequested})
}

func TestSubscription_CloseIsIdempotentAndStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("ride:ride-1")

	sub.Close()
	sub.Close()

	// The channel is closed, and later publishes go nowhere.
	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel")
	}
	hub.Publish("ride:ride-1", domain.Event{Type: domain.EventRideStatusUpdated})
}

func TestHub_IndependentSubscribersEachReceive(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Subscribe("ride:ride-1")
	b := hub.Subscribe("ride:ride-1")
	defer a.Close()
	defer b.Close()

	hub.Publish("ride:ride-1", domain.Event{Type: domain.EventRideCompleted, RideID: "ride-1"})

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			if ev.Type != domain.EventRideCompleted {
				t.Errorf("got %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}
