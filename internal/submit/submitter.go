package submit

import (
	"context"
	"errors"
	"fmt"

	"github.com/pvzzle/posledger/internal/amount"
	"github.com/pvzzle/posledger/internal/storage"
)

// MessageLabel is the CIP-20 transaction message metadata label.
const MessageLabel = 674

var ErrSubmissionFailed = errors.New("submission failed")

// Metadata maps a metadata label to its value. It is forwarded to the
// wallet unchanged.
type Metadata map[uint64]any

// Submitter builds, signs and submits a transfer and returns its hash.
// Implementations may take seconds; they must honor ctx.
type Submitter interface {
	SubmitTransfer(ctx context.Context, recipient string, lovelace int64, metadata Metadata) (string, error)
}

// Confirmer applies a confirmation hash to a record.
type Confirmer interface {
	Confirm(ctx context.Context, id int64, txHash, source string) (storage.PaymentRequest, error)
}

// SubmissionError reports why the wallet/provider rejected a transfer.
// errors.Is(err, ErrSubmissionFailed) holds for every SubmissionError.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed: %s: %v", e.Reason, e.Err)
	}
	return "submission failed: " + e.Reason
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmissionFailed }

func Failed(reason string, err error) error {
	return &SubmissionError{Reason: reason, Err: err}
}

// MetadataFor builds the message metadata attached to the transfer of rec.
func MetadataFor(rec storage.PaymentRequest) Metadata {
	return Metadata{
		MessageLabel: map[string]any{
			"msg": []string{
				fmt.Sprintf("POS payment request #%d", rec.ID),
				fmt.Sprintf("Amount: %s ADA", amount.FormatAda(rec.Amount, 6)),
			},
		},
	}
}
