// Package client implements the conversation-side session: a transport
// agnostic state machine that subscribes to a pair channel, loads history
// pages, and folds live broadcast events into a render-ready message list.
//
// A Session belongs to exactly one local user and at most one selected
// conversation at a time. All state lives on the session itself; there is no
// package-level mutable state.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/tbourn/go-direct-chat/internal/broadcast"
	"github.com/tbourn/go-direct-chat/internal/channel"
	"github.com/tbourn/go-direct-chat/internal/services"
)

// State is the lifecycle position of a session's conversation.
type State int

const (
	// StateIdle: no recipient selected, no subscription.
	StateIdle State = iota
	// StateLoading: recipient selected, first history page in flight.
	StateLoading
	// StateActive: subscribed and rendered; live events apply.
	StateActive
)

// String returns a short label for logging and test failure messages.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// ErrBusy is returned by Select when a conversation is already selected.
var ErrBusy = errors.New("conversation already selected")

// HistoryPage is one fetched slice of a conversation, newest first, plus the
// paginator position needed to know when the conversation is exhausted.
type HistoryPage struct {
	Messages    []services.MessageView
	CurrentPage int
	LastPage    int
}

// HistoryFetcher loads one history page of the conversation with the given
// recipient. The HTTP client implementation calls GET /get-messages; tests
// supply fakes.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, recipientID, page int) (HistoryPage, error)
}

// Session drives one user's view of a single conversation. Methods are safe
// for concurrent use; the event pump runs on its own goroutine between
// Select and Deselect.
type Session struct {
	selfID  int
	name    string
	hub     *broadcast.Hub
	fetcher HistoryFetcher

	mu          sync.Mutex
	state       State
	recipientID int
	sub         *broadcast.Subscription
	messages    []services.MessageView // oldest first, render order
	online      map[int]string         // user id -> display name
	currentPage int
	lastPage    int
	fetching    bool // reentrancy latch for LoadOlder
	done        chan struct{}
}

// NewSession creates an idle session for the given local user.
func NewSession(selfID int, name string, hub *broadcast.Hub, fetcher HistoryFetcher) *Session {
	return &Session{
		selfID:  selfID,
		name:    name,
		hub:     hub,
		fetcher: fetcher,
		online:  make(map[int]string),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Select opens the conversation with recipientID: subscribe to the pair
// channel, load the newest history page, and go active. Returns ErrBusy if a
// conversation is already selected; on a fetch error the session unwinds back
// to idle.
func (s *Session) Select(ctx context.Context, recipientID int) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateLoading
	s.recipientID = recipientID
	sub := s.hub.Subscribe(channel.Name(s.selfID, recipientID), broadcast.Member{ID: s.selfID, Name: s.name})
	s.sub = sub
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go s.pump(sub, done)

	page, err := s.fetcher.FetchHistory(ctx, recipientID, 1)
	if err != nil {
		s.Deselect()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != sub {
		// Deselected while the fetch was in flight; drop the result.
		return nil
	}
	s.messages = reverseViews(page.Messages)
	s.currentPage = page.CurrentPage
	s.lastPage = page.LastPage
	s.state = StateActive
	return nil
}

// Deselect closes the conversation: unsubscribe, clear all conversation
// state, and return to idle. Safe to call in any state.
func (s *Session) Deselect() {
	s.mu.Lock()
	sub := s.sub
	done := s.done
	s.sub = nil
	s.done = nil
	s.state = StateIdle
	s.recipientID = 0
	s.messages = nil
	s.online = make(map[int]string)
	s.currentPage = 0
	s.lastPage = 0
	s.fetching = false
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if done != nil {
		<-done // wait for the pump to drain
	}
}

// LoadOlder fetches the next older history page and prepends it. A call while
// a fetch is already in flight is dropped, not queued; a call after the last
// page has been reached is a no-op. Returns true when a page was applied.
func (s *Session) LoadOlder(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.state != StateActive || s.fetching || s.currentPage >= s.lastPage {
		s.mu.Unlock()
		return false, nil
	}
	s.fetching = true
	sub := s.sub
	rid := s.recipientID
	next := s.currentPage + 1
	s.mu.Unlock()

	page, err := s.fetcher.FetchHistory(ctx, rid, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	if err != nil {
		return false, err
	}
	if s.sub != sub {
		// Conversation changed underneath the fetch.
		return false, nil
	}
	s.messages = append(reverseViews(page.Messages), s.messages...)
	s.currentPage = page.CurrentPage
	if page.LastPage > 0 {
		s.lastPage = page.LastPage
	}
	return true, nil
}

// Messages returns a copy of the conversation in render order, oldest first.
func (s *Session) Messages() []services.MessageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]services.MessageView, len(s.messages))
	copy(out, s.messages)
	return out
}

// Online returns a copy of the presence map (user id to display name) for
// the subscribed channel.
func (s *Session) Online() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]string, len(s.online))
	for id, name := range s.online {
		out[id] = name
	}
	return out
}

// pump folds hub events into the session until the subscription closes.
func (s *Session) pump(sub *broadcast.Subscription, done chan struct{}) {
	defer close(done)
	for e := range sub.C {
		s.apply(sub, e)
	}
}

// apply folds one event into the session state. Events from a stale
// subscription (after a Deselect raced the pump) are ignored.
func (s *Session) apply(sub *broadcast.Subscription, e broadcast.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != sub {
		return
	}

	switch e.Name {
	case broadcast.EventMessage:
		p, ok := e.Data.(broadcast.MessagePayload)
		if !ok {
			return
		}
		s.messages = append(s.messages, services.MessageView{
			ID:         p.ID,
			Message:    p.Message,
			SenderID:   p.SenderID,
			SenderName: p.Sender,
			Timestamp:  p.Timestamp,
			IsRead:     p.IsRead,
		})

	case broadcast.EventHere:
		members, ok := e.Data.([]broadcast.Member)
		if !ok {
			return
		}
		for _, m := range members {
			s.online[m.ID] = m.Name
			if m.ID != s.selfID {
				s.promoteSentToRead()
			}
		}

	case broadcast.EventJoined:
		m, ok := e.Data.(broadcast.Member)
		if !ok {
			return
		}
		s.online[m.ID] = m.Name
		if m.ID != s.selfID {
			// The peer is looking at the conversation now; show our sent
			// messages as read without waiting for the next fetch.
			s.promoteSentToRead()
		}

	case broadcast.EventLeft:
		m, ok := e.Data.(broadcast.Member)
		if !ok {
			return
		}
		delete(s.online, m.ID)
	}
}

// promoteSentToRead optimistically flips our own sent messages to read.
// The server-confirmed flags arrive with the next history fetch.
func (s *Session) promoteSentToRead() {
	for i := range s.messages {
		if s.messages[i].SenderID == s.selfID {
			s.messages[i].IsRead = true
		}
	}
}

// reverseViews flips a newest-first page into render order without mutating
// the input.
func reverseViews(in []services.MessageView) []services.MessageView {
	out := make([]services.MessageView, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
