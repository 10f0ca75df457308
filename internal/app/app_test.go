package app

import (
	"context"
	"testing"
	"time"

	"github.com/pvzzle/posledger/internal/storage/kv"
	"github.com/pvzzle/posledger/internal/storage/memory"
	"github.com/pvzzle/posledger/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_Memory(t *testing.T) {
	repo, err := OpenStore(context.Background(), defaultConfig())
	require.NoError(t, err)
	defer repo.Close()

	assert.IsType(t, &memory.Store{}, repo)

	rec, err := repo.Create(context.Background(), 10, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.ID)
}

func TestOpenStore_Badger(t *testing.T) {
	cfg := defaultConfig()
	cfg.StorageDriver = StorageBadger
	cfg.BadgerPath = t.TempDir()

	repo, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer repo.Close()

	assert.IsType(t, &kv.Badger{}, repo)
}

func TestNewSubmitter(t *testing.T) {
	cfg := defaultConfig()

	s, err := newSubmitter(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.SubmitMode = SubmitWallet
	cfg.WalletURL = "http://localhost:4000"
	s, err = newSubmitter(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &wallet.HTTPWallet{}, s)
}
