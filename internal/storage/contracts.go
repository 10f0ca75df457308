package storage

import (
	"context"
	"time"
)

// Repository is the record store for payment requests. Implementations
// serialize Create and AttachHash so ids stay unique and a record is
// confirmed at most once.
type Repository interface {
	EnsureSchema(ctx context.Context) error

	Create(ctx context.Context, amount int64, createdAt time.Time) (PaymentRequest, error)
	Get(ctx context.Context, id int64) (PaymentRequest, error)
	List(ctx context.Context) ([]PaymentRequest, error)

	// AttachHash sets the confirmation hash. When the record already has one
	// it returns the stored record together with ErrAlreadyConfirmed.
	AttachHash(ctx context.Context, id int64, txHash string) (PaymentRequest, error)

	Close() error
}
