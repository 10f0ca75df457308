package subs

import (
	"sort"
	"sync"

	"github.com/pvzzle/posledger/internal/storage"
)

// ChatSubs describes which confirmations a chat wants to hear about.
type ChatSubs struct {
	// MinLovelace, when set, matches every confirmation of at least that
	// amount. Zero matches all of them.
	MinLovelace *int64
	// Requests are ids created from the chat; they match regardless of
	// amount.
	Requests map[int64]struct{}
}

// recentLimit bounds how many forgotten request ids are remembered.
const recentLimit = 1024

type Store struct {
	mu   sync.RWMutex
	data map[int64]*ChatSubs

	// recent holds ids already forgotten, oldest first in order.
	recent map[int64]struct{}
	order  []int64
}

func NewStore() *Store {
	return &Store{
		data:   make(map[int64]*ChatSubs),
		recent: make(map[int64]struct{}),
	}
}

func (s *Store) SetMinAmount(chatID int64, lovelace int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getOrCreate(chatID)
	v := lovelace
	u.MinLovelace = &v
}

func (s *Store) ClearMinAmount(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.data[chatID]
	if u == nil {
		return
	}
	u.MinLovelace = nil
	s.cleanupIfEmpty(chatID, u)
}

// Track subscribes chatID to the confirmation of one request. It returns
// false and stores nothing when requestID was already forgotten, meaning
// its confirmation went out before the subscription.
func (s *Store) Track(chatID int64, requestID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recent[requestID]; ok {
		return false
	}

	u := s.getOrCreate(chatID)
	if u.Requests == nil {
		u.Requests = make(map[int64]struct{})
	}
	u.Requests[requestID] = struct{}{}
	return true
}

// Forget drops requestID from every chat, typically once it is confirmed.
func (s *Store) Forget(requestID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for chatID, u := range s.data {
		delete(u.Requests, requestID)
		s.cleanupIfEmpty(chatID, u)
	}
	s.remember(requestID)
}

func (s *Store) ClearAll(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, chatID)
}

// GetCopy returns a snapshot that callers may keep and modify.
func (s *Store) GetCopy(chatID int64) (ChatSubs, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.data[chatID]
	if u == nil {
		return ChatSubs{}, false
	}

	var out ChatSubs
	if u.MinLovelace != nil {
		v := *u.MinLovelace
		out.MinLovelace = &v
	}
	if len(u.Requests) > 0 {
		out.Requests = make(map[int64]struct{}, len(u.Requests))
		for id := range u.Requests {
			out.Requests[id] = struct{}{}
		}
	}
	return out, true
}

// Match returns the chats interested in the confirmation of rec, in
// ascending chat id order.
func (s *Store) Match(rec storage.PaymentRequest) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int64
	for chatID, u := range s.data {
		if u == nil {
			continue
		}

		if u.MinLovelace != nil && rec.Amount >= *u.MinLovelace {
			out = append(out, chatID)
			continue
		}

		if _, ok := u.Requests[rec.ID]; ok {
			out = append(out, chatID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) remember(requestID int64) {
	if _, ok := s.recent[requestID]; ok {
		return
	}
	s.recent[requestID] = struct{}{}
	s.order = append(s.order, requestID)
	if len(s.order) > recentLimit {
		delete(s.recent, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Store) getOrCreate(chatID int64) *ChatSubs {
	u := s.data[chatID]
	if u == nil {
		u = &ChatSubs{}
		s.data[chatID] = u
	}
	return u
}

func (s *Store) cleanupIfEmpty(chatID int64, u *ChatSubs) {
	if u == nil {
		return
	}
	if u.MinLovelace == nil && len(u.Requests) == 0 {
		delete(s.data, chatID)
	}
}
