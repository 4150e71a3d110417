package eventbus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case event := <-sub.C:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	bus := New()
	sub := bus.Subscribe("booking:abc")
	defer bus.Unsubscribe(sub)

	for i := 0; i < 10; i++ {
		bus.Publish("booking:abc", EventBookingStateChanged, fmt.Sprintf("update-%d", i))
	}

	for i := 0; i < 10; i++ {
		event := receive(t, sub)
		assert.Equal(t, EventBookingStateChanged, event.Name)
		assert.Equal(t, "booking:abc", event.Room)
		assert.Equal(t, fmt.Sprintf("update-%d", i), event.Payload)
	}
}

func TestRoomIsolation(t *testing.T) {
	bus := New()
	mine := bus.Subscribe("booking:mine")
	other := bus.Subscribe("booking:other")
	defer bus.Unsubscribe(mine)
	defer bus.Unsubscribe(other)

	bus.Publish("booking:mine", EventBookingStateChanged, "for-mine")

	event := receive(t, mine)
	assert.Equal(t, "for-mine", event.Payload)

	select {
	case leaked := <-other.C:
		t.Fatalf("subscriber received event from a room it never joined: %+v", leaked)
	default:
	}
}

func TestJoinAddsRoom(t *testing.T) {
	bus := New()
	sub := bus.Subscribe("booking:abc")
	defer bus.Unsubscribe(sub)

	bus.Publish(AdminRoom, EventBookingStateChanged, "before-join")
	select {
	case <-sub.C:
		t.Fatal("received admin event before joining the admin room")
	default:
	}

	bus.Join(sub, AdminRoom)
	assert.ElementsMatch(t, []string{"booking:abc", AdminRoom}, sub.Rooms())

	bus.Publish(AdminRoom, EventBookingStateChanged, "after-join")
	event := receive(t, sub)
	assert.Equal(t, AdminRoom, event.Room)
	assert.Equal(t, "after-join", event.Payload)
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	bus := New()
	sub := bus.Subscribe("booking:abc")

	require.Equal(t, 1, bus.SubscriberCount("booking:abc"))

	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.SubscriberCount("booking:abc"))

	// Publishing into the now-empty room must not panic or resurrect the
	// subscriber.
	bus.Publish("booking:abc", EventBookingStateChanged, "late")

	_, open := <-sub.C
	assert.False(t, open)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New()
	sub := bus.Subscribe("booking:abc")
	defer bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(sub.C)+10; i++ {
			bus.Publish("booking:abc", EventBookingStateChanged, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber buffer")
	}
	assert.Len(t, sub.C, cap(sub.C))
}

func TestSubscriberCountPerRoom(t *testing.T) {
	bus := New()
	a := bus.Subscribe("booking:abc", AdminRoom)
	b := bus.Subscribe(AdminRoom)
	defer bus.Unsubscribe(a)

	assert.Equal(t, 1, bus.SubscriberCount("booking:abc"))
	assert.Equal(t, 2, bus.SubscriberCount(AdminRoom))

	bus.Unsubscribe(b)
	assert.Equal(t, 1, bus.SubscriberCount(AdminRoom))
	assert.Equal(t, 0, bus.SubscriberCount("booking:nope"))
}
