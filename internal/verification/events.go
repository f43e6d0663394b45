package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// Event is published after a status transition has been persisted
type Event struct {
	PropertyID  uuid.UUID          `json:"property_id"`
	Action      workflows.Action   `json:"action"`
	From        workflows.Status   `json:"from"`
	To          workflows.Status   `json:"to"`
	PerformedBy string             `json:"performed_by"`
	Timestamp   time.Time          `json:"timestamp"`
	Timeline    workflows.Timeline `json:"timeline"`
	Entry       ActivityEntry      `json:"entry"`

	SellerName  string  `json:"-"`
	SellerEmail string  `json:"-"`
	Title       string  `json:"-"`
	FeeAmount   float64 `json:"-"`
	Reason      string  `json:"reason,omitempty"`
}

// Publisher receives transition events. Implementations must not block for
// long; the service publishes after releasing the record lock.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Broker fans events out to in-process subscribers
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
	buffer int
}

type subscription struct {
	propertyID uuid.UUID
	ch         chan Event
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{subs: make(map[int]subscription), buffer: buffer}
}

// Subscribe returns a channel of events for propertyID, or for every
// record when propertyID is uuid.Nil. cancel closes the channel.
func (b *Broker) Subscribe(propertyID uuid.UUID) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = subscription{propertyID: propertyID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers evt to matching subscribers, dropping it for any whose buffer is full
func (b *Broker) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.propertyID != uuid.Nil && s.propertyID != evt.PropertyID {
			continue
		}
		select {
		case s.ch <- evt:
		default:
		}
	}
	return nil
}

// MultiPublisher publishes to each publisher in turn and returns the first error
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, evt Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
