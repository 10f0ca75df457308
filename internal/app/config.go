package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageBadger   = "badger"

	SubmitNone   = "none"
	SubmitWallet = "wallet"
	SubmitEVM    = "evm"

	WatchNone  = "none"
	WatchKoios = "koios"
)

type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSMaxAge     int      `env:"CORS_MAX_AGE"`

	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"`

	StorageDriver string `env:"STORAGE_DRIVER"`
	PostgresURL   string `env:"POSTGRES_URL"`
	BadgerPath    string `env:"BADGER_PATH"`

	// PaymentAddress receives customer payments; it is shown in payment
	// URIs and watched for incoming transfers.
	PaymentAddress string `env:"PAYMENT_ADDRESS"`

	SubmitMode      string        `env:"SUBMIT_MODE"`
	SubmitRecipient string        `env:"SUBMIT_RECIPIENT"`
	SubmitWorkers   int           `env:"SUBMIT_WORKERS"`
	SubmitBuffer    int           `env:"SUBMIT_BUFFER"`
	SubmitTimeout   time.Duration `env:"SUBMIT_TIMEOUT"`
	SubmitRetries   uint64        `env:"SUBMIT_RETRIES"`

	WalletURL    string `env:"WALLET_URL"`
	WalletAPIKey string `env:"WALLET_API_KEY"`

	EVMRPCURL     string `env:"EVM_RPC_URL"`
	EVMPrivateKey string `env:"EVM_PRIVATE_KEY"`
	EVMWeiPerUnit int64  `env:"EVM_WEI_PER_UNIT"`

	WatchMode     string        `env:"WATCH_MODE"`
	KoiosURL      string        `env:"KOIOS_URL"`
	KoiosToken    string        `env:"KOIOS_TOKEN"`
	WatchInterval time.Duration `env:"WATCH_INTERVAL"`

	TelegramToken string `env:"TELEGRAM_TOKEN"`
	NotifyBuffer  int    `env:"TELEGRAM_NOTIFY_BUFFER"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:      ":3000",
		LogLevel:      "info",
		StorageDriver: StorageMemory,
		BadgerPath:    "data/badger",
		SubmitMode:    SubmitNone,
		SubmitWorkers: 4,
		SubmitBuffer:  1024,
		SubmitTimeout: 60 * time.Second,
		EVMWeiPerUnit: 1_000_000_000_000,
		WatchMode:     WatchNone,
		WatchInterval: 10 * time.Second,
		NotifyBuffer:  4096,
	}
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: .env file not found, relying on environment variables")
	}
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	config := defaultConfig()

	if err := env.ParseWithOptions(&config, opts); err != nil {
		return Config{}, err
	}
	if config.SubmitRecipient == "" {
		config.SubmitRecipient = config.PaymentAddress
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageMemory, StorageBadger:
	case StoragePostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.SubmitMode {
	case SubmitNone:
	case SubmitWallet:
		if c.WalletURL == "" {
			errs = append(errs, errors.New("WALLET_URL is required for wallet submission"))
		}
	case SubmitEVM:
		if c.EVMRPCURL == "" || c.EVMPrivateKey == "" {
			errs = append(errs, errors.New("EVM_RPC_URL and EVM_PRIVATE_KEY are required for evm submission"))
		}
		if c.EVMWeiPerUnit <= 0 {
			errs = append(errs, errors.New("EVM_WEI_PER_UNIT must be > 0"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SUBMIT_MODE %q", c.SubmitMode))
	}
	if c.SubmitMode != SubmitNone && c.SubmitRecipient == "" {
		errs = append(errs, errors.New("SUBMIT_RECIPIENT or PAYMENT_ADDRESS is required when submitting"))
	}

	switch c.WatchMode {
	case WatchNone:
	case WatchKoios:
		if c.PaymentAddress == "" {
			errs = append(errs, errors.New("PAYMENT_ADDRESS is required for the koios watcher"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown WATCH_MODE %q", c.WatchMode))
	}

	return errors.Join(errs...)
}
