package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/pvzzle/posledger/internal/api"
	"github.com/pvzzle/posledger/internal/bus"
	"github.com/pvzzle/posledger/internal/chainwatch"
	"github.com/pvzzle/posledger/internal/logging"
	"github.com/pvzzle/posledger/internal/metrics"
	"github.com/pvzzle/posledger/internal/payments"
	"github.com/pvzzle/posledger/internal/storage"
	"github.com/pvzzle/posledger/internal/storage/kv"
	"github.com/pvzzle/posledger/internal/storage/memory"
	"github.com/pvzzle/posledger/internal/storage/pg"
	"github.com/pvzzle/posledger/internal/submit"
	"github.com/pvzzle/posledger/internal/subs"
	"github.com/pvzzle/posledger/internal/tg"
	"github.com/pvzzle/posledger/internal/wallet"

	"github.com/ethereum/go-ethereum/ethclient"
	tgbot "github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	repo, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	svc := payments.NewService(repo, log,
		payments.WithMetrics(m),
		payments.WithPaymentAddress(cfg.PaymentAddress),
	)

	g, gctx := errgroup.WithContext(ctx)

	submitter, err := newSubmitter(gctx, cfg)
	if err != nil {
		return err
	}
	if submitter != nil {
		worker := submit.NewWorker(submitter, svc, log, m, submit.WorkerConfig{
			Workers:     cfg.SubmitWorkers,
			TasksBuffer: cfg.SubmitBuffer,
			Recipient:   cfg.SubmitRecipient,
			Timeout:     cfg.SubmitTimeout,
			Retries:     cfg.SubmitRetries,
		})
		svc.SetDispatcher(worker)
		g.Go(func() error { return worker.Start(gctx) })
	}

	if cfg.WatchMode == WatchKoios {
		watcher := chainwatch.NewWatcher(
			chainwatch.NewKoios(cfg.KoiosURL, cfg.KoiosToken),
			svc, log,
			chainwatch.WatcherConfig{Address: cfg.PaymentAddress, Interval: cfg.WatchInterval},
		)
		g.Go(func() error { return watcher.Start(gctx) })
	}

	if cfg.TelegramToken != "" {
		subStore := subs.NewStore()
		notifyCh := make(chan bus.Notification, cfg.NotifyBuffer)

		b, err := tgbot.New(cfg.TelegramToken,
			tgbot.WithWorkers(4),
			tgbot.WithNotAsyncHandlers(),
		)
		if err != nil {
			return fmt.Errorf("telegram bot init: %w", err)
		}

		tgSvc := tg.NewService(b, svc, subStore, notifyCh, log)
		svc.OnConfirmed(tg.ConfirmationHook(subStore, notifyCh, log))
		g.Go(func() error { return tgSvc.Start(gctx) })
	}

	server := api.New(log, svc, m, reg, api.Config{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		CORSMaxAge:     cfg.CORSMaxAge,
	})
	g.Go(func() error { return server.Start(gctx) })

	log.Info("started",
		zap.String("storage", cfg.StorageDriver),
		zap.String("submit", cfg.SubmitMode),
		zap.String("watch", cfg.WatchMode),
		zap.Bool("telegram", cfg.TelegramToken != ""),
	)
	return g.Wait()
}

// OpenStore opens the record store selected by cfg.StorageDriver and makes
// sure its schema exists.
func OpenStore(ctx context.Context, cfg Config) (storage.Repository, error) {
	var repo storage.Repository

	switch cfg.StorageDriver {
	case StoragePostgres:
		pgPool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool new: %w", err)
		}
		repo = pg.New(pgPool)
	case StorageBadger:
		b, err := kv.Open(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		repo = b
	default:
		repo = memory.New()
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func newSubmitter(ctx context.Context, cfg Config) (submit.Submitter, error) {
	switch cfg.SubmitMode {
	case SubmitWallet:
		return wallet.NewHTTPWallet(cfg.WalletURL, cfg.WalletAPIKey), nil
	case SubmitEVM:
		ethCl, err := ethclient.DialContext(ctx, cfg.EVMRPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial evm rpc: %w", err)
		}
		chainID, err := ethCl.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		return wallet.NewEVM(ethCl, chainID, cfg.EVMPrivateKey, big.NewInt(cfg.EVMWeiPerUnit))
	default:
		return nil, nil
	}
}
