package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pvzzle/posledger/internal/submit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPWallet_SubmitTransfer(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transfer", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"txHash":"abc123"}`))
	}))
	defer srv.Close()

	w := NewHTTPWallet(srv.URL+"/", "secret")
	meta := submit.Metadata{submit.MessageLabel: map[string]any{"msg": []string{"hi"}}}

	hash, err := w.SubmitTransfer(context.Background(), "addr_test1", 1_500_000, meta)
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	assert.Equal(t, "addr_test1", got["recipient"])
	assert.EqualValues(t, 1_500_000, got["amount"])
	assert.Contains(t, got["metadata"], "674")
}

func TestHTTPWallet_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"insufficient funds"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPWallet(srv.URL, "").SubmitTransfer(context.Background(), "addr", 1, nil)
	require.ErrorIs(t, err, submit.ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestHTTPWallet_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPWallet(srv.URL, "").SubmitTransfer(context.Background(), "addr", 1, nil)
	require.ErrorIs(t, err, submit.ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPWallet_EmptyHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	_, err := NewHTTPWallet(srv.URL, "").SubmitTransfer(context.Background(), "addr", 1, nil)
	require.ErrorIs(t, err, submit.ErrSubmissionFailed)
}

func TestHTTPWallet_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPWallet(url, "").SubmitTransfer(context.Background(), "addr", 1, nil)
	require.ErrorIs(t, err, submit.ErrSubmissionFailed)
}
