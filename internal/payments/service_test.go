package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pvzzle/posledger/internal/amount"
	"github.com/pvzzle/posledger/internal/storage"
	"github.com/pvzzle/posledger/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	recs []storage.PaymentRequest
}

func (d *recordingDispatcher) Dispatch(rec storage.PaymentRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recs = append(d.recs, rec)
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	now := time.UnixMilli(1700000000000)
	return NewService(repo, zap.NewNop(), WithClock(func() time.Time { return now })), repo
}

func TestService_CreateFromDecimal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	lovelace, err := amount.FromAda(10.0)
	require.NoError(t, err)

	rec, err := svc.Create(ctx, lovelace)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), rec.Amount)
	assert.Equal(t, int64(1700000000000), rec.Timestamp)
	assert.Empty(t, rec.TxHash)
	assert.Equal(t, "10.00", amount.FormatAda(rec.Amount, 2))
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1)
	require.NoError(t, err)

	for _, bad := range []int64{0, -5} {
		_, err := svc.Create(ctx, bad)
		require.ErrorIs(t, err, storage.ErrInvalidAmount)
	}

	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestService_CreateDispatches(t *testing.T) {
	svc, _ := newTestService(t)
	d := &recordingDispatcher{}
	svc.SetDispatcher(d)

	rec, err := svc.Create(context.Background(), 2_000_000)
	require.NoError(t, err)

	require.Len(t, d.recs, 1)
	assert.Equal(t, rec, d.recs[0])
}

func TestService_ConfirmIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var notified []storage.PaymentRequest
	svc.OnConfirmed(func(rec storage.PaymentRequest) { notified = append(notified, rec) })

	rec, err := svc.Create(ctx, 5_000_000)
	require.NoError(t, err)

	got, err := svc.Confirm(ctx, rec.ID, "abc123", "test")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.TxHash)

	got, err = svc.Confirm(ctx, rec.ID, "def456", "test")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.TxHash)

	require.Len(t, notified, 1)
	assert.Equal(t, "abc123", notified[0].TxHash)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", items[0].TxHash)
}

func TestService_ConfirmUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Confirm(context.Background(), 77, "abc", "test")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPaymentURI(t *testing.T) {
	assert.Equal(t, "web+cardano:addr_test1xyz?amount=10.000001", PaymentURI("addr_test1xyz", 10_000_001))

	svc, _ := newTestService(t)
	assert.Empty(t, svc.PaymentURI(storage.PaymentRequest{Amount: 1}))
}
