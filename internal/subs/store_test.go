package subs

import (
	"testing"

	"github.com/pvzzle/posledger/internal/storage"
)

func TestStore_Match_MinAmount(t *testing.T) {
	s := NewStore()
	chatID := int64(42)

	s.SetMinAmount(chatID, 10_000_000)

	got := s.Match(storage.PaymentRequest{ID: 1, Amount: 20_000_000})
	if len(got) != 1 || got[0] != chatID {
		t.Fatalf("expected match for 20 ADA, got=%v", got)
	}

	got = s.Match(storage.PaymentRequest{ID: 2, Amount: 5_000_000})
	if len(got) != 0 {
		t.Fatalf("expected no match for 5 ADA, got=%v", got)
	}
}

func TestStore_Match_ZeroMatchesAll(t *testing.T) {
	s := NewStore()
	s.SetMinAmount(1, 0)

	if got := s.Match(storage.PaymentRequest{ID: 9, Amount: 1}); len(got) != 1 {
		t.Fatalf("expected match, got=%v", got)
	}
}

func TestStore_Match_TrackedRequest(t *testing.T) {
	s := NewStore()
	chatID := int64(7)

	s.Track(chatID, 3)

	got := s.Match(storage.PaymentRequest{ID: 3, Amount: 1})
	if len(got) != 1 || got[0] != chatID {
		t.Fatalf("expected match by request id, got=%v", got)
	}

	got = s.Match(storage.PaymentRequest{ID: 4, Amount: 1})
	if len(got) != 0 {
		t.Fatalf("expected no match for other request, got=%v", got)
	}

	s.Forget(3)
	if _, ok := s.GetCopy(chatID); ok {
		t.Fatal("expected chat to be cleaned up after Forget")
	}
}

func TestStore_TrackAfterForget(t *testing.T) {
	s := NewStore()

	s.Forget(5)
	if s.Track(7, 5) {
		t.Fatal("expected Track to refuse an already forgotten request")
	}
	if _, ok := s.GetCopy(7); ok {
		t.Fatal("expected no subscription left behind")
	}
	if got := s.Match(storage.PaymentRequest{ID: 5, Amount: 1}); len(got) != 0 {
		t.Fatalf("expected no match, got=%v", got)
	}

	if !s.Track(7, 6) {
		t.Fatal("expected Track to accept a pending request")
	}
}

func TestStore_ForgottenIDsAreBounded(t *testing.T) {
	s := NewStore()
	for id := int64(1); id <= recentLimit+1; id++ {
		s.Forget(id)
	}
	if len(s.recent) != recentLimit {
		t.Fatalf("expected %d remembered ids, got %d", recentLimit, len(s.recent))
	}
	if !s.Track(1, 1) {
		t.Fatal("expected the oldest id to be evicted")
	}
	if s.Track(1, recentLimit+1) {
		t.Fatal("expected the newest id to be remembered")
	}
}

func TestStore_Match_NoDuplicatesAndOrdered(t *testing.T) {
	s := NewStore()
	s.SetMinAmount(5, 0)
	s.Track(5, 1)
	s.Track(2, 1)

	got := s.Match(storage.PaymentRequest{ID: 1, Amount: 1})
	if len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Fatalf("expected [2 5], got=%v", got)
	}
}

func TestStore_ClearAndCopy(t *testing.T) {
	s := NewStore()
	chatID := int64(1)

	s.SetMinAmount(chatID, 100)
	s.Track(chatID, 8)

	cp, ok := s.GetCopy(chatID)
	if !ok || cp.MinLovelace == nil || *cp.MinLovelace != 100 {
		t.Fatalf("unexpected copy: %+v", cp)
	}
	*cp.MinLovelace = 1
	delete(cp.Requests, 8)

	again, _ := s.GetCopy(chatID)
	if *again.MinLovelace != 100 || len(again.Requests) != 1 {
		t.Fatalf("copy aliased store data: %+v", again)
	}

	s.ClearMinAmount(chatID)
	if _, ok := s.GetCopy(chatID); !ok {
		t.Fatal("tracked request should keep the chat")
	}

	s.ClearAll(chatID)
	if _, ok := s.GetCopy(chatID); ok {
		t.Fatal("expected no subs after ClearAll")
	}
}
