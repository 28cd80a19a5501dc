// Package broadcast implements the in-process pub/sub transport behind the
// realtime message path. A Hub fans events out to channel-scoped
// subscribers; the delivery contract is deliberately weak: best effort with
// per-connection arrival order and no replay. A client that was offline while
// an event was published catches up through the history endpoint, not the
// transport.
package broadcast

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Presence event names emitted by the hub itself. "here" goes to a new
// subscriber with the current member snapshot; "joined"/"left" go to the
// remaining members when the channel population changes.
const (
	EventHere   = "here"
	EventJoined = "joined"
	EventLeft   = "left"
)

var (
	// eventsPublished counts events handed to subscribers, per event name.
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_published_total",
			Help: "Total number of events delivered to subscribers.",
		},
		[]string{"event"},
	)

	// eventsDropped counts events discarded because a subscriber buffer was
	// full. Dropping is by contract: a slow consumer never blocks a publisher.
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_dropped_total",
			Help: "Total number of events dropped due to full subscriber buffers.",
		},
		[]string{"event"},
	)

	// subscriberCount gauges currently open subscriptions across all channels.
	subscriberCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_subscribers",
			Help: "Current number of open channel subscriptions.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished, eventsDropped, subscriberCount)
}

// Member identifies a subscriber on a channel; the pair is what presence
// events carry to peers.
type Member struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Event is a named payload published on a channel. Data must be
// JSON-marshalable; the SSE layer serializes it as-is.
type Event struct {
	Name string
	Data any
}

// Subscription is one member's attachment to a channel. Events arrive on C;
// Close detaches and notifies remaining members. Closing twice is safe.
type Subscription struct {
	// C delivers events for the subscribed channel.
	C <-chan Event

	hub     *Hub
	channel string
	member  Member
	ch      chan Event
	once    sync.Once
}

// Member returns the identity this subscription was opened with.
func (s *Subscription) Member() Member { return s.member }

// Close detaches the subscription and emits a "left" event to the channel's
// remaining members.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub is a channel-keyed fan-out of events to live subscribers. All methods
// are safe for concurrent use. Publishing never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	buffer int
	subs   map[string]map[*Subscription]struct{}
}

// NewHub constructs a Hub whose subscriptions buffer up to buffer events.
// Values < 1 are coerced to 1.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe attaches member to the named channel. The new subscriber
// immediately receives a "here" event with the channel's member snapshot
// (itself included); everyone already present receives "joined".
func (h *Hub) Subscribe(channelName string, m Member) *Subscription {
	sub := &Subscription{
		hub:     h,
		channel: channelName,
		member:  m,
		ch:      make(chan Event, h.buffer),
	}
	sub.C = sub.ch

	h.mu.Lock()
	peers := h.subs[channelName]
	if peers == nil {
		peers = make(map[*Subscription]struct{})
		h.subs[channelName] = peers
	}
	members := make([]Member, 0, len(peers)+1)
	for p := range peers {
		members = append(members, p.member)
	}
	members = append(members, m)
	peers[sub] = struct{}{}
	h.mu.Unlock()
	subscriberCount.Inc()

	// Snapshot for the joiner, join notice for the rest.
	sub.ch <- Event{Name: EventHere, Data: members}
	h.publishExcept(channelName, sub, Event{Name: EventJoined, Data: m})

	return sub
}

// Publish fans the event out to every subscriber of the channel. It returns
// how many subscribers received it and how many dropped it (full buffer).
// A channel with no subscribers is not an error; delivered is 0.
func (h *Hub) Publish(channelName string, e Event) (delivered, dropped int) {
	return h.publishExcept(channelName, nil, e)
}

// Members returns the current member snapshot of a channel.
func (h *Hub) Members(channelName string) []Member {
	h.mu.RLock()
	defer h.mu.RUnlock()
	peers := h.subs[channelName]
	out := make([]Member, 0, len(peers))
	for p := range peers {
		out = append(out, p.member)
	}
	return out
}

// publishExcept delivers e to all subscribers of the channel except skip.
// The read lock is held across the send loop: a subscriber's channel is only
// closed under the write lock, so no send can hit a closed channel, and the
// sends themselves never block (select/default).
func (h *Hub) publishExcept(channelName string, skip *Subscription, e Event) (delivered, dropped int) {
	h.mu.RLock()
	for p := range h.subs[channelName] {
		if p == skip {
			continue
		}
		select {
		case p.ch <- e:
			delivered++
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	eventsPublished.WithLabelValues(e.Name).Add(float64(delivered))
	if dropped > 0 {
		eventsDropped.WithLabelValues(e.Name).Add(float64(dropped))
	}
	return delivered, dropped
}

// unsubscribe removes sub and notifies the channel's remaining members.
// The channel close happens inside the write-locked section so publishers,
// which send under the read lock, can never observe a removed-but-open or
// present-but-closed subscription.
func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	peers := h.subs[sub.channel]
	if peers != nil {
		delete(peers, sub)
		if len(peers) == 0 {
			delete(h.subs, sub.channel)
		}
	}
	close(sub.ch)
	h.mu.Unlock()
	subscriberCount.Dec()

	h.publishExcept(sub.channel, nil, Event{Name: EventLeft, Data: sub.member})
}
