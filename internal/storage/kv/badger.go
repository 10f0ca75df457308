// Package kv stores payment requests in an embedded badger database, one
// JSON document per record.
package kv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pvzzle/posledger/internal/storage"

	"github.com/dgraph-io/badger/v4"
)

var (
	keyLastID    = []byte("meta:last_id")
	recordPrefix = []byte("req:")
)

type Badger struct {
	db *badger.DB
	// badger aborts conflicting write txns; writes are serialized instead of retried
	mu sync.Mutex
}

// Open opens (or creates) the database at path. An empty path opens an
// in-memory database.
func Open(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) EnsureSchema(ctx context.Context) error { return nil }

func (b *Badger) Create(ctx context.Context, amount int64, createdAt time.Time) (storage.PaymentRequest, error) {
	if amount <= 0 {
		return storage.PaymentRequest{}, storage.ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var rec storage.PaymentRequest
	err := b.db.Update(func(txn *badger.Txn) error {
		lastID, err := readLastID(txn)
		if err != nil {
			return err
		}

		rec = storage.PaymentRequest{
			ID:        lastID + 1,
			Amount:    amount,
			Timestamp: createdAt.UnixMilli(),
		}
		if err := putRecord(txn, rec); err != nil {
			return err
		}
		return txn.Set(keyLastID, int64ToBytes(rec.ID))
	})
	if err != nil {
		return storage.PaymentRequest{}, wrapErr(err)
	}
	return rec, nil
}

func (b *Badger) Get(ctx context.Context, id int64) (storage.PaymentRequest, error) {
	var rec storage.PaymentRequest
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return storage.PaymentRequest{}, wrapErr(err)
	}
	return rec, nil
}

func (b *Badger) List(ctx context.Context) ([]storage.PaymentRequest, error) {
	out := []storage.PaymentRequest{}
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec storage.PaymentRequest
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

func (b *Badger) AttachHash(ctx context.Context, id int64, txHash string) (storage.PaymentRequest, error) {
	if txHash == "" {
		return storage.PaymentRequest{}, storage.ErrInvalidHash
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var rec storage.PaymentRequest
	err := b.db.Update(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		if err != nil {
			return err
		}
		if rec.Confirmed() {
			return storage.ErrAlreadyConfirmed
		}
		rec.TxHash = txHash
		return putRecord(txn, rec)
	})
	if errors.Is(err, storage.ErrAlreadyConfirmed) {
		return rec, err
	}
	if err != nil {
		return storage.PaymentRequest{}, wrapErr(err)
	}
	return rec, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func readLastID(txn *badger.Txn) (int64, error) {
	item, err := txn.Get(keyLastID)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var id int64
	err = item.Value(func(val []byte) error {
		id = bytesToInt64(val)
		return nil
	})
	return id, err
}

func getRecord(txn *badger.Txn, id int64) (storage.PaymentRequest, error) {
	item, err := txn.Get(recordKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.PaymentRequest{}, storage.ErrNotFound
		}
		return storage.PaymentRequest{}, err
	}

	var rec storage.PaymentRequest
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

func putRecord(txn *badger.Txn, rec storage.PaymentRequest) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(rec.ID), val)
}

// recordKey zero-pads the id so key order equals insertion order.
func recordKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", recordPrefix, id))
}

func wrapErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return err
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%w: %v", storage.ErrClosed, err)
	default:
		return fmt.Errorf("badger: %w", err)
	}
}

func int64ToBytes(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func bytesToInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
