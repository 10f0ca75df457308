package submit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pvzzle/posledger/internal/metrics"
	"github.com/pvzzle/posledger/internal/storage"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const confirmTimeout = 10 * time.Second

type WorkerConfig struct {
	Workers     int
	TasksBuffer int

	Recipient string

	// Timeout bounds a single submission attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed one.
	Retries        uint64
	InitialBackoff time.Duration
}

// Worker submits transfers for dispatched records on a fixed pool of
// goroutines and confirms them with the returned hash.
type Worker struct {
	submitter Submitter
	confirmer Confirmer
	log       *zap.Logger
	metrics   *metrics.Metrics

	cfg WorkerConfig

	mu     sync.RWMutex
	closed bool
	tasks  chan storage.PaymentRequest
	wg     sync.WaitGroup
}

func NewWorker(
	submitter Submitter,
	confirmer Confirmer,
	log *zap.Logger,
	m *metrics.Metrics,
	cfg WorkerConfig,
) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.TasksBuffer <= 0 {
		cfg.TasksBuffer = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}

	return &Worker{
		submitter: submitter,
		confirmer: confirmer,
		log:       log.Named("submit"),
		metrics:   m,
		cfg:       cfg,
		tasks:     make(chan storage.PaymentRequest, cfg.TasksBuffer),
	}
}

// Dispatch queues rec for submission without blocking. When the queue is
// full or the worker has stopped the record stays unconfirmed.
func (w *Worker) Dispatch(rec storage.PaymentRequest) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.log.Warn("worker stopped, request left unconfirmed", zap.Int64("id", rec.ID))
		w.metrics.Submission("dropped")
		return
	}

	select {
	case w.tasks <- rec:
	default:
		w.log.Warn("submission queue full, request left unconfirmed", zap.Int64("id", rec.ID))
		w.metrics.Submission("dropped")
	}
}

// Start runs the pool until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.startWorkers(ctx)
	<-ctx.Done()
	w.stopWorkers()
	return ctx.Err()
}

func (w *Worker) startWorkers(ctx context.Context) {
	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go func(workerID int) {
			defer w.wg.Done()

			for {
				select {
				case <-ctx.Done():
					return

				case rec, ok := <-w.tasks:
					if !ok {
						return
					}
					w.handleTask(ctx, rec)
				}
			}
		}(i)
	}
}

func (w *Worker) stopWorkers() {
	w.mu.Lock()
	w.closed = true
	close(w.tasks)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Worker) handleTask(ctx context.Context, rec storage.PaymentRequest) {
	meta := MetadataFor(rec)
	log := w.log.With(zap.Int64("id", rec.ID), zap.Int64("amount", rec.Amount))

	var (
		txHash  string
		attempt int
	)
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()

		h, err := w.submitter.SubmitTransfer(actx, w.cfg.Recipient, rec.Amount, meta)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if errors.Is(actx.Err(), context.DeadlineExceeded) {
				err = Failed("timed out", err)
			}
			log.Warn("submission attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			w.metrics.Submission("attempt_failed")
			return err
		}
		if h == "" {
			return backoff.Permanent(Failed("empty tx hash", nil))
		}
		txHash = h
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = w.cfg.InitialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, w.cfg.Retries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("submission failed, request stays unconfirmed", zap.Int("attempts", attempt), zap.Error(err))
		w.metrics.Submission("failed")
		return
	}
	w.metrics.Submission("ok")

	// the transfer is already broadcast: save its hash even during shutdown
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), confirmTimeout)
	defer cancel()
	if _, err := w.confirmer.Confirm(cctx, rec.ID, txHash, "worker"); err != nil {
		log.Error("attach hash failed", zap.String("tx_hash", txHash), zap.Error(err))
	}
}
