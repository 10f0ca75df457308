// Package payments composes the record store with the submission worker
// and confirmation observers.
package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pvzzle/posledger/internal/amount"
	"github.com/pvzzle/posledger/internal/metrics"
	"github.com/pvzzle/posledger/internal/storage"

	"go.uber.org/zap"
)

// Dispatcher hands a freshly created record to whatever obtains its
// confirmation hash. Dispatch must not block.
type Dispatcher interface {
	Dispatch(rec storage.PaymentRequest)
}

// ConfirmedFunc observes the first confirmation of a record.
type ConfirmedFunc func(rec storage.PaymentRequest)

type Service struct {
	repo    storage.Repository
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	paymentAddress string

	mu         sync.RWMutex
	dispatcher Dispatcher
	observers  []ConfirmedFunc
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithPaymentAddress enables payment URIs for records.
func WithPaymentAddress(addr string) Option { return func(s *Service) { s.paymentAddress = addr } }

func NewService(repo storage.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		log:  log.Named("payments"),
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

func (s *Service) OnConfirmed(fn ConfirmedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// ValidateAmount accepts positive lovelace amounts only.
func ValidateAmount(lovelace int64) error {
	if lovelace <= 0 {
		return fmt.Errorf("%w: amount must be a positive integer number of lovelace", storage.ErrInvalidAmount)
	}
	return nil
}

// Create stores a new unconfirmed record and hands it to the dispatcher.
// The record is returned without waiting for submission.
func (s *Service) Create(ctx context.Context, lovelace int64) (storage.PaymentRequest, error) {
	if err := ValidateAmount(lovelace); err != nil {
		return storage.PaymentRequest{}, err
	}

	rec, err := s.repo.Create(ctx, lovelace, s.now())
	if err != nil {
		return storage.PaymentRequest{}, fmt.Errorf("create payment request: %w", err)
	}
	s.metrics.RequestCreated()
	s.log.Info("payment request created",
		zap.Int64("id", rec.ID),
		zap.Int64("amount", rec.Amount),
		zap.String("ada", amount.FormatAda(rec.Amount, 6)),
	)

	s.mu.RLock()
	d := s.dispatcher
	s.mu.RUnlock()
	if d != nil {
		d.Dispatch(rec)
	}

	return rec, nil
}

func (s *Service) List(ctx context.Context) ([]storage.PaymentRequest, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (storage.PaymentRequest, error) {
	return s.repo.Get(ctx, id)
}

// Confirm attaches txHash to the record. A record that is already confirmed
// is returned unchanged without error; observers only see the first
// confirmation.
func (s *Service) Confirm(ctx context.Context, id int64, txHash, source string) (storage.PaymentRequest, error) {
	rec, err := s.repo.AttachHash(ctx, id, txHash)
	switch {
	case errors.Is(err, storage.ErrAlreadyConfirmed):
		s.log.Debug("payment request already confirmed",
			zap.Int64("id", id),
			zap.String("stored_hash", rec.TxHash),
			zap.String("ignored_hash", txHash),
			zap.String("source", source),
		)
		return rec, nil
	case err != nil:
		return storage.PaymentRequest{}, err
	}

	s.metrics.RequestConfirmed(source)
	s.log.Info("payment request confirmed",
		zap.Int64("id", rec.ID),
		zap.String("tx_hash", rec.TxHash),
		zap.String("source", source),
	)

	s.mu.RLock()
	observers := append([]ConfirmedFunc(nil), s.observers...)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(rec)
	}
	return rec, nil
}

// PaymentURI returns the wallet deep link for rec, or "" when no payment
// address is configured.
func (s *Service) PaymentURI(rec storage.PaymentRequest) string {
	if s.paymentAddress == "" {
		return ""
	}
	return PaymentURI(s.paymentAddress, rec.Amount)
}

func PaymentURI(address string, lovelace int64) string {
	return "web+cardano:" + address + "?amount=" + amount.FormatAda(lovelace, 6)
}
