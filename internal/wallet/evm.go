package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/pvzzle/posledger/internal/submit"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Backend is the subset of *ethclient.Client the EVM submitter needs.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EVM signs plain value transfers with a local key and sends them through
// an EVM node. Metadata travels JSON-encoded in the call data.
type EVM struct {
	backend    Backend
	key        *ecdsa.PrivateKey
	from       common.Address
	signer     types.Signer
	weiPerUnit *big.Int

	// one submission at a time keeps pending nonces sequential
	mu sync.Mutex
}

func NewEVM(backend Backend, chainID *big.Int, keyHex string, weiPerUnit *big.Int) (*EVM, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if weiPerUnit == nil || weiPerUnit.Sign() <= 0 {
		return nil, fmt.Errorf("wei per unit must be > 0")
	}

	return &EVM{
		backend:    backend,
		key:        key,
		from:       crypto.PubkeyToAddress(key.PublicKey),
		signer:     types.LatestSignerForChainID(chainID),
		weiPerUnit: new(big.Int).Set(weiPerUnit),
	}, nil
}

func (e *EVM) From() common.Address { return e.from }

func (e *EVM) SubmitTransfer(ctx context.Context, recipient string, lovelace int64, metadata submit.Metadata) (string, error) {
	if !common.IsHexAddress(recipient) {
		return "", submit.Failed(fmt.Sprintf("invalid recipient %q", recipient), nil)
	}
	to := common.HexToAddress(recipient)

	var data []byte
	if len(metadata) > 0 {
		var err error
		if data, err = json.Marshal(metadata); err != nil {
			return "", submit.Failed("encode metadata", err)
		}
	}
	value := new(big.Int).Mul(big.NewInt(lovelace), e.weiPerUnit)

	e.mu.Lock()
	defer e.mu.Unlock()

	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return "", submit.Failed("pending nonce", err)
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", submit.Failed("gas price", err)
	}
	gas, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     e.from,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     data,
	})
	if err != nil {
		return "", submit.Failed("estimate gas", err)
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	tx, err := types.SignTx(unsigned, e.signer, e.key)
	if err != nil {
		return "", submit.Failed("sign", err)
	}

	if err := e.backend.SendTransaction(ctx, tx); err != nil {
		return "", submit.Failed("send transaction", err)
	}
	return tx.Hash().Hex(), nil
}
