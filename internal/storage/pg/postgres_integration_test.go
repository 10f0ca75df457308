//go:build integration

package pg_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/pvzzle/posledger/internal/storage"
	"github.com/pvzzle/posledger/internal/storage/pg"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestRepo_CreateListAttach(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_PG_DSN/PG_DSN is not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := pg.New(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	_, _ = pool.Exec(ctx, "TRUNCATE payment_requests RESTART IDENTITY")

	now := time.Now().UTC()

	first, err := repo.Create(ctx, 10_000_000, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := repo.Create(ctx, 2_500_000, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got=%d then %d", first.ID, second.ID)
	}

	if _, err := repo.Create(ctx, 0, now); !errors.Is(err, storage.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got=%v", err)
	}

	rec, err := repo.AttachHash(ctx, first.ID, "abc123")
	if err != nil || rec.TxHash != "abc123" {
		t.Fatalf("AttachHash: rec=%+v err=%v", rec, err)
	}
	rec, err = repo.AttachHash(ctx, first.ID, "def456")
	if !errors.Is(err, storage.ErrAlreadyConfirmed) || rec.TxHash != "abc123" {
		t.Fatalf("expected first hash to win, rec=%+v err=%v", rec, err)
	}
	if _, err := repo.AttachHash(ctx, 9999, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 records, got=%d", len(items))
	}
	if items[0].ID != first.ID || items[0].TxHash != "abc123" || items[1].TxHash != "" {
		t.Fatalf("unexpected list: %+v", items)
	}
}
