package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pvzzle/posledger/internal/submit"
)

// HTTPWallet submits transfers through an external wallet service that owns
// the keys, UTXO selection and fee calculation.
type HTTPWallet struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type transferRequest struct {
	Recipient string          `json:"recipient"`
	Amount    int64           `json:"amount"`
	Metadata  submit.Metadata `json:"metadata,omitempty"`
}

type transferResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash"`
	Error   string `json:"error"`
}

func NewHTTPWallet(baseURL, apiKey string) *HTTPWallet {
	return &HTTPWallet{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// per-attempt deadlines come from the caller's context
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (w *HTTPWallet) SubmitTransfer(ctx context.Context, recipient string, lovelace int64, metadata submit.Metadata) (string, error) {
	body, err := json.Marshal(transferRequest{
		Recipient: recipient,
		Amount:    lovelace,
		Metadata:  metadata,
	})
	if err != nil {
		return "", submit.Failed("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/transfer", bytes.NewReader(body))
	if err != nil {
		return "", submit.Failed("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", submit.Failed("wallet unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", submit.Failed("read response", err)
	}

	var out transferResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", submit.Failed(fmt.Sprintf("wallet returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}
	if resp.StatusCode/100 != 2 || out.Error != "" {
		reason := out.Error
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return "", submit.Failed(reason, nil)
	}
	if out.TxHash == "" {
		return "", submit.Failed("wallet returned no tx hash", nil)
	}
	return out.TxHash, nil
}
