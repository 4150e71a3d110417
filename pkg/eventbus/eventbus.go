package eventbus

import (
	"sync"
	"time"

	"github.com/safarides/safar-backend/pkg/logger"
	"go.uber.org/zap"
)

// Event names published on the bus.
const (
	EventBookingStateChanged = "booking:state_changed"
)

// AdminRoom is the room every operator console joins.
const AdminRoom = "admin"

// Event is the envelope delivered to subscribers.
type Event struct {
	Name      string      `json:"event"`
	Room      string      `json:"room"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Subscriber receives events for the rooms it has joined. Events arrive on C
// in publish order per room; a slow subscriber drops events rather than
// blocking publishers.
type Subscriber struct {
	C     chan Event
	rooms map[string]struct{}
	bus   *Bus
}

// Rooms returns the rooms this subscriber is currently in.
func (s *Subscriber) Rooms() []string {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// Bus is a single-process pub/sub with named rooms. Subscribers only receive
// events for rooms they joined. There is no persistence; a restart drops all
// subscriptions.
type Bus struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe creates a subscriber joined to the given rooms.
func (b *Bus) Subscribe(rooms ...string) *Subscriber {
	sub := &Subscriber{
		C:     make(chan Event, 64),
		rooms: make(map[string]struct{}),
		bus:   b,
	}
	b.mu.Lock()
	for _, room := range rooms {
		b.join(sub, room)
	}
	b.mu.Unlock()
	return sub
}

// Join adds the subscriber to an additional room.
func (b *Bus) Join(sub *Subscriber, room string) {
	b.mu.Lock()
	b.join(sub, room)
	b.mu.Unlock()
}

func (b *Bus) join(sub *Subscriber, room string) {
	if _, ok := b.rooms[room]; !ok {
		b.rooms[room] = make(map[*Subscriber]struct{})
	}
	b.rooms[room][sub] = struct{}{}
	sub.rooms[room] = struct{}{}
}

// Unsubscribe removes the subscriber from all rooms and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for room := range sub.rooms {
		if members, ok := b.rooms[room]; ok {
			delete(members, sub)
			if len(members) == 0 {
				delete(b.rooms, room)
			}
		}
	}
	sub.rooms = make(map[string]struct{})
	close(sub.C)
}

// Publish delivers an event to every subscriber of the room. Delivery is
// non-blocking: a subscriber whose buffer is full misses the event.
func (b *Bus) Publish(room, name string, payload interface{}) {
	event := Event{
		Name:      name,
		Room:      room,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.rooms[room] {
		select {
		case sub.C <- event:
		default:
			logger.Warn("event dropped for slow subscriber",
				zap.String("room", room),
				zap.String("event", name),
			)
		}
	}
}

// SubscriberCount returns the number of subscribers in a room.
func (b *Bus) SubscriberCount(room string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[room])
}
