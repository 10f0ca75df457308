package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pvzzle/posledger/internal/api"
	"github.com/pvzzle/posledger/internal/payments"
	"github.com/pvzzle/posledger/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := payments.NewService(memory.New(), zap.NewNop(), payments.WithPaymentAddress("addr_test1"))
	srv := httptest.NewServer(api.New(zap.NewNop(), svc, nil, nil, api.Config{}).HTTPHandler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(newTestServer(t).URL + "/")

	list, err := c.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	rec, err := c.CreateTransaction(ctx, 1_250_000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.ID)
	assert.EqualValues(t, 1_250_000, rec.Amount)
	assert.Equal(t, "web+cardano:addr_test1?amount=1.250000", rec.PaymentURI)

	got, err := c.Confirm(ctx, rec.ID, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.TxHash)

	got, err = c.GetTransaction(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.TxHash)

	list, err = c.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "abc", list[0].TxHash)

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	_, err = time.Parse(time.RFC3339, h.Timestamp)
	assert.NoError(t, err)
}

func TestClient_APIErrorKeepsBody(t *testing.T) {
	c := New(newTestServer(t).URL)

	_, err := c.CreateTransaction(context.Background(), 0)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.JSONEq(t, `{"error":"amount must be a positive integer number of lovelace"}`, apiErr.Body)

	_, err = c.GetTransaction(context.Background(), 42)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestClient_Unreachable(t *testing.T) {
	srv := newTestServer(t)
	srv.Close()

	_, err := New(srv.URL).ListTransactions(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_ResponseTooLarge(t *testing.T) {
	body := `{"status":"` + strings.Repeat("x", 256) + `"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	c.maxBody = 64

	_, err := c.Health(context.Background())
	require.ErrorIs(t, err, ErrResponseTooLarge)

	c.maxBody = int64(len(body))
	_, err = c.Health(context.Background())
	require.NoError(t, err)
}
