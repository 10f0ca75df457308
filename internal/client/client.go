// Package client talks to the payment request API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pvzzle/posledger/internal/api"
	"github.com/pvzzle/posledger/internal/storage"
)

// APIError is a non-2xx response. Body is the raw response body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Body)
}

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

var ErrResponseTooLarge = errors.New("response body too large")

type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
	maxBody int64
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
		maxBody: maxResponseBytes,
	}
}

// CreateTransaction asks the server for a new payment request of lovelace.
func (c *Client) CreateTransaction(ctx context.Context, lovelace int64) (api.Record, error) {
	body := map[string]int64{
		"amount":    lovelace,
		"timestamp": c.now().UnixMilli(),
	}
	var out api.Record
	err := c.do(ctx, http.MethodPost, "/transactions", body, http.StatusCreated, &out)
	return out, err
}

func (c *Client) ListTransactions(ctx context.Context) ([]storage.PaymentRequest, error) {
	var out []storage.PaymentRequest
	if err := c.do(ctx, http.MethodGet, "/transactions", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (api.Record, error) {
	var out api.Record
	err := c.do(ctx, http.MethodGet, "/transactions/"+strconv.FormatInt(id, 10), nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) Confirm(ctx context.Context, id int64, txHash string) (api.Record, error) {
	var out api.Record
	err := c.do(ctx, http.MethodPost, "/transactions/"+strconv.FormatInt(id, 10)+"/confirm",
		api.ConfirmRequest{TxHash: txHash}, http.StatusOK, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		return fmt.Errorf("%s %s: %w", method, path, ErrResponseTooLarge)
	}
	if resp.StatusCode != want {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
