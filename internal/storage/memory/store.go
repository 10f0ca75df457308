package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pvzzle/posledger/internal/storage"
)

// Store keeps payment requests in process memory. Records are handed out as
// copies so callers never share state with the store.
type Store struct {
	mu     sync.RWMutex
	items  []storage.PaymentRequest
	index  map[int64]int
	lastID int64
	closed bool
}

func New() *Store {
	return &Store{index: make(map[int64]int)}
}

func (s *Store) EnsureSchema(ctx context.Context) error { return nil }

func (s *Store) Create(ctx context.Context, amount int64, createdAt time.Time) (storage.PaymentRequest, error) {
	if amount <= 0 {
		return storage.PaymentRequest{}, storage.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.PaymentRequest{}, storage.ErrClosed
	}

	s.lastID++
	rec := storage.PaymentRequest{
		ID:        s.lastID,
		Amount:    amount,
		Timestamp: createdAt.UnixMilli(),
	}
	s.index[rec.ID] = len(s.items)
	s.items = append(s.items, rec)
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id int64) (storage.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.PaymentRequest{}, storage.ErrClosed
	}
	i, ok := s.index[id]
	if !ok {
		return storage.PaymentRequest{}, storage.ErrNotFound
	}
	return s.items[i], nil
}

func (s *Store) List(ctx context.Context) ([]storage.PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	out := make([]storage.PaymentRequest, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) AttachHash(ctx context.Context, id int64, txHash string) (storage.PaymentRequest, error) {
	if txHash == "" {
		return storage.PaymentRequest{}, storage.ErrInvalidHash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.PaymentRequest{}, storage.ErrClosed
	}
	i, ok := s.index[id]
	if !ok {
		return storage.PaymentRequest{}, storage.ErrNotFound
	}
	if s.items[i].Confirmed() {
		return s.items[i], storage.ErrAlreadyConfirmed
	}
	s.items[i].TxHash = txHash
	return s.items[i], nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
