// Package api serves payment requests over HTTP+JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pvzzle/posledger/internal/metrics"
	"github.com/pvzzle/posledger/internal/storage"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Ledger is what the handlers need from the payments service.
type Ledger interface {
	Create(ctx context.Context, lovelace int64) (storage.PaymentRequest, error)
	List(ctx context.Context) ([]storage.PaymentRequest, error)
	Get(ctx context.Context, id int64) (storage.PaymentRequest, error)
	Confirm(ctx context.Context, id int64, txHash, source string) (storage.PaymentRequest, error)
	PaymentURI(rec storage.PaymentRequest) string
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	CORSMaxAge     int
}

type Server struct {
	*httprouter.Router

	log     *zap.Logger
	ledger  Ledger
	metrics *metrics.Metrics
	cfg     Config
	now     func() time.Time
}

// New builds the router. gatherer may be nil, in which case /metrics is not
// mounted.
func New(log *zap.Logger, ledger Ledger, m *metrics.Metrics, gatherer prometheus.Gatherer, cfg Config) *Server {
	s := &Server{
		Router:  httprouter.New(),
		log:     log.Named("api"),
		ledger:  ledger,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}

	for _, prefix := range []string{"", "/api"} {
		s.handle(http.MethodPost, prefix+"/transactions", s.CreateTransaction)
		s.handle(http.MethodGet, prefix+"/transactions", s.ListTransactions)
		s.handle(http.MethodGet, prefix+"/transactions/:id", s.GetTransaction)
		s.handle(http.MethodPost, prefix+"/transactions/:id/confirm", s.ConfirmTransaction)
	}
	s.handle(http.MethodGet, "/health", s.Health)

	if gatherer != nil {
		s.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// HTTPHandler returns the router wrapped with CORS.
func (s *Server) HTTPHandler() http.Handler {
	return cors.New(CORSOptions(s.cfg.AllowedOrigins, s.cfg.CORSMaxAge)).Handler(s.Router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", zap.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("stopping http server")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handle registers h with a per-request trace id, access log and metrics.
func (s *Server) handle(method, path string, h httprouter.Handle) {
	s.Handle(method, path, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		traceID := uuid.NewString()
		w.Header().Set("X-Request-Id", traceID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r, ps)

		s.metrics.HTTPRequest(path, strconv.Itoa(rec.status))
		s.log.Debug("request",
			zap.String("trace-id", traceID),
			zap.String("method", method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}
