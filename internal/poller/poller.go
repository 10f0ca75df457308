// Package poller keeps a view of the payment requests up to date.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pvzzle/posledger/internal/storage"

	"go.uber.org/zap"
)

const DefaultInterval = 30 * time.Second

var ErrAlreadyStarted = errors.New("poller already started")

type Fetcher interface {
	ListTransactions(ctx context.Context) ([]storage.PaymentRequest, error)
}

// View replaces its whole content on each call.
type View interface {
	Render(items []storage.PaymentRequest)
	RenderError(err error)
}

type State int

const (
	Idle State = iota
	Loading
	Rendered
	ErrorDisplayed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Rendered:
		return "rendered"
	case ErrorDisplayed:
		return "error"
	default:
		return "unknown"
	}
}

// Poller fetches on start, on every tick and on Refresh. Cycles may
// overlap; a response is applied only if no newer cycle was applied first.
type Poller struct {
	fetcher  Fetcher
	view     View
	log      *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	state   State
	seq     uint64
	applied uint64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(fetcher Fetcher, view View, log *zap.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		view:     view,
		log:      log.Named("poller"),
		interval: interval,
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start fetches once immediately and then on every interval until Stop or
// until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	runCtx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	p.launch(runCtx)

	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.launch(runCtx)
			}
		}
	}()
	return nil
}

// Refresh runs one extra cycle now. It is a no-op before Start and after
// Stop.
func (p *Poller) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil || p.ctx.Err() != nil {
		return
	}
	p.launch(p.ctx)
}

// Stop disposes the timer and waits for in-flight cycles.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	if cancel != nil {
		cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) launch(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.cycle(ctx)
	}()
}

func (p *Poller) cycle(ctx context.Context) {
	p.mu.Lock()
	p.seq++
	n := p.seq
	p.state = Loading
	p.mu.Unlock()

	items, err := p.fetcher.ListTransactions(ctx)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if n <= p.applied {
		p.log.Debug("dropping stale response", zap.Uint64("cycle", n), zap.Uint64("applied", p.applied))
		return
	}
	p.applied = n

	if err != nil {
		p.log.Warn("fetch transactions", zap.Error(err))
		p.state = ErrorDisplayed
		p.view.RenderError(err)
		return
	}
	p.state = Rendered
	p.view.Render(items)
}
