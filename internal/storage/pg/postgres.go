package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pvzzle/posledger/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (r *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS payment_requests (
  id BIGSERIAL PRIMARY KEY,
  amount BIGINT NOT NULL CHECK (amount > 0), -- lovelace
  created_at_ms BIGINT NOT NULL,
  tx_hash TEXT NULL,
  confirmed_at TIMESTAMPTZ NULL
);
`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

func (r *Postgres) Create(ctx context.Context, amount int64, createdAt time.Time) (storage.PaymentRequest, error) {
	if amount <= 0 {
		return storage.PaymentRequest{}, storage.ErrInvalidAmount
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	rec := storage.PaymentRequest{Amount: amount, Timestamp: createdAt.UnixMilli()}
	err := r.pool.QueryRow(cctx,
		`INSERT INTO payment_requests(amount, created_at_ms) VALUES ($1, $2) RETURNING id`,
		rec.Amount, rec.Timestamp,
	).Scan(&rec.ID)
	if err != nil {
		return storage.PaymentRequest{}, err
	}
	return rec, nil
}

func (r *Postgres) Get(ctx context.Context, id int64) (storage.PaymentRequest, error) {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	row := r.pool.QueryRow(cctx,
		`SELECT id, amount, created_at_ms, tx_hash FROM payment_requests WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.PaymentRequest{}, storage.ErrNotFound
	}
	return rec, err
}

func (r *Postgres) List(ctx context.Context) ([]storage.PaymentRequest, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(cctx,
		`SELECT id, amount, created_at_ms, tx_hash FROM payment_requests ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.PaymentRequest{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func (r *Postgres) AttachHash(ctx context.Context, id int64, txHash string) (storage.PaymentRequest, error) {
	if txHash == "" {
		return storage.PaymentRequest{}, storage.ErrInvalidHash
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// the IS NULL guard makes the first confirmation win under concurrency
	row := r.pool.QueryRow(cctx, `
UPDATE payment_requests
SET tx_hash = $2, confirmed_at = now()
WHERE id = $1 AND tx_hash IS NULL
RETURNING id, amount, created_at_ms, tx_hash
`, id, txHash)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return storage.PaymentRequest{}, err
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return storage.PaymentRequest{}, err
	}
	return existing, storage.ErrAlreadyConfirmed
}

func (r *Postgres) Close() error {
	r.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (storage.PaymentRequest, error) {
	var (
		rec    storage.PaymentRequest
		txHash *string
	)
	if err := row.Scan(&rec.ID, &rec.Amount, &rec.Timestamp, &txHash); err != nil {
		return storage.PaymentRequest{}, err
	}
	if txHash != nil {
		rec.TxHash = *txHash
	}
	return rec, nil
}

func (r *Postgres) String() string { return fmt.Sprintf("pgrepo(%p)", r.pool) }
