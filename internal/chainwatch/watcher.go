package chainwatch

import (
	"context"
	"errors"
	"time"

	"github.com/pvzzle/posledger/internal/storage"

	"go.uber.org/zap"
)

const DefaultInterval = 10 * time.Second

// Ledger is the part of the payments service the watcher drives.
type Ledger interface {
	List(ctx context.Context) ([]storage.PaymentRequest, error)
	Confirm(ctx context.Context, id int64, txHash, source string) (storage.PaymentRequest, error)
}

type WatcherConfig struct {
	Address  string
	Interval time.Duration
}

// Watcher confirms pending records by spotting matching payments on chain.
type Watcher struct {
	indexer Indexer
	ledger  Ledger
	log     *zap.Logger
	cfg     WatcherConfig
}

func NewWatcher(indexer Indexer, ledger Ledger, log *zap.Logger, cfg WatcherConfig) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Watcher{
		indexer: indexer,
		ledger:  ledger,
		log:     log.Named("watcher"),
		cfg:     cfg,
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info("watching payments", zap.String("address", w.cfg.Address), zap.Duration("interval", w.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan runs one pass over the unconfirmed records, oldest first.
// It returns the number of records it confirmed.
func (w *Watcher) Scan(ctx context.Context) int {
	items, err := w.ledger.List(ctx)
	if err != nil {
		w.log.Warn("list requests", zap.Error(err))
		return 0
	}

	known := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Confirmed() {
			known[it.TxHash] = struct{}{}
		}
	}

	confirmed := 0
	for _, rec := range storage.Pending(items) {
		if ctx.Err() != nil {
			return confirmed
		}

		hashes, err := w.indexer.FindPayments(ctx, w.cfg.Address, rec.Amount)
		if err != nil {
			w.log.Warn("indexer lookup", zap.Int64("id", rec.ID), zap.Error(err))
			continue
		}

		hash := firstUnknown(hashes, known)
		if hash == "" {
			continue
		}

		got, err := w.ledger.Confirm(ctx, rec.ID, hash, "watcher")
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.log.Warn("confirm", zap.Int64("id", rec.ID), zap.Error(err))
			}
			continue
		}
		known[got.TxHash] = struct{}{}
		if got.TxHash == hash {
			confirmed++
		}
	}
	return confirmed
}

func firstUnknown(hashes []string, known map[string]struct{}) string {
	for _, h := range hashes {
		if _, ok := known[h]; !ok {
			return h
		}
	}
	return ""
}
