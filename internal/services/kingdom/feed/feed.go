// Package feed fans raid lifecycle events out to connected players.
//
// Delivery is best effort: a subscriber whose buffer is full misses the
// event. The feed never changes game state; a raid.due event only tells the
// client that resolving will now succeed.
package feed

import (
	"log"
	"sync"
	"time"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
)

// Kind names a feed event.
type Kind string

const (
	RaidStarted  Kind = "raid.started"
	RaidDue      Kind = "raid.due"
	RaidResolved Kind = "raid.resolved"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Event is one message delivered to a player's subscribers.
type Event struct {
	Kind     Kind       `json:"type"`
	PlayerID string     `json:"-"`
	RaidID   string     `json:"raid_id"`
	Map      raid.MapID `json:"map"`
	EndAt    time.Time  `json:"end_at"`
	// Success is set on raid.resolved only.
	Success *bool     `json:"success,omitempty"`
	At      time.Time `json:"at"`
}

type subscriber struct {
	ch chan Event
}

// Hub keeps per-player subscriptions and one due timer per in-progress raid.
type Hub struct {
	now    func() time.Time
	buffer int

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	timers map[string]*time.Timer
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		now:    time.Now,
		buffer: DefaultBuffer,
		subs:   make(map[string]map[*subscriber]struct{}),
		timers: make(map[string]*time.Timer),
	}
}

// Subscribe registers a receiver for playerID's events. The returned cancel
// func closes the channel and is safe to call more than once.
func (h *Hub) Subscribe(playerID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	set, ok := h.subs[playerID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[playerID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { h.unsubscribe(playerID, sub) })
	}
}

func (h *Hub) unsubscribe(playerID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[playerID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, playerID)
	}
}

// Publish delivers ev to every subscriber of ev.PlayerID without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = h.now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[ev.PlayerID] {
		select {
		case sub.ch <- ev:
		default:
			log.Printf("feed: subscriber buffer full, dropped %s for raid %s", ev.Kind, ev.RaidID)
		}
	}
}

// RaidStarted announces r and arms its due timer.
func (h *Hub) RaidStarted(r raid.Raid) {
	h.Publish(newEvent(RaidStarted, r))
	h.scheduleDue(r)
}

// RaidResolved disarms the due timer of r and announces the outcome.
func (h *Hub) RaidResolved(r raid.Raid) {
	h.mu.Lock()
	if t, ok := h.timers[r.ID]; ok {
		t.Stop()
		delete(h.timers, r.ID)
	}
	h.mu.Unlock()

	ev := newEvent(RaidResolved, r)
	if r.Outcome != nil {
		success := r.Outcome.Success
		ev.Success = &success
	}
	h.Publish(ev)
}

// Restore arms due timers for raids still in progress, typically at boot.
func (h *Hub) Restore(raids []raid.Raid) {
	for _, r := range raids {
		if r.Status == raid.InProgress {
			h.scheduleDue(r)
		}
	}
}

// Subscribers reports how many receivers playerID has.
func (h *Hub) Subscribers(playerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[playerID])
}

// Pending reports how many due timers are armed.
func (h *Hub) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.timers)
}

// Close stops every timer and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
	for playerID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, playerID)
	}
}

func (h *Hub) scheduleDue(r raid.Raid) {
	delay := max(r.EndAt.Sub(h.now()), 0)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if t, ok := h.timers[r.ID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		h.mu.Lock()
		current, ok := h.timers[r.ID]
		if ok && current == timer {
			delete(h.timers, r.ID)
		}
		h.mu.Unlock()
		if ok && current == timer {
			h.Publish(newEvent(RaidDue, r))
		}
	})
	h.timers[r.ID] = timer
}

func newEvent(kind Kind, r raid.Raid) Event {
	return Event{
		Kind:     kind,
		PlayerID: r.PlayerID,
		RaidID:   r.ID,
		Map:      r.Map,
		EndAt:    r.EndAt,
	}
}
