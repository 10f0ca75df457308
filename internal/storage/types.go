package storage

import (
	"errors"
	"time"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidHash      = errors.New("invalid tx hash")
	ErrNotFound         = errors.New("payment request not found")
	ErrAlreadyConfirmed = errors.New("payment request already confirmed")
	ErrClosed           = errors.New("store closed")
)

// PaymentRequest is a requested transfer pending external confirmation.
type PaymentRequest struct {
	ID        int64  `json:"id"`
	Amount    int64  `json:"amount"`    // lovelace
	Timestamp int64  `json:"timestamp"` // ms since epoch, server assigned
	TxHash    string `json:"txHash"`    // empty until confirmed
}

func (p PaymentRequest) Confirmed() bool { return p.TxHash != "" }

func (p PaymentRequest) CreatedAt() time.Time { return time.UnixMilli(p.Timestamp) }

// Pending returns the unconfirmed records, preserving order.
func Pending(items []PaymentRequest) []PaymentRequest {
	var out []PaymentRequest
	for _, it := range items {
		if !it.Confirmed() {
			out = append(out, it)
		}
	}
	return out
}
