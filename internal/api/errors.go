package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pvzzle/posledger/internal/storage"
)

var (
	ErrInvalidRequest = newError("invalid request")
	ErrMissingAmount  = newError("amount is required")
	ErrInvalidAmount  = newError("amount must be a positive integer number of lovelace")
	ErrMissingHash    = newError("txHash is required")
	ErrInvalidID      = newError("invalid id")
	ErrNotFound       = newError("transaction not found")
	ErrUnavailable    = newError("store unavailable")
	ErrInternal       = newError("internal error")
)

type HTTPError struct {
	ErrorStr string `json:"error"`
}

func (e HTTPError) Error() string {
	return e.ErrorStr
}

func newError(e string) HTTPError {
	return HTTPError{
		ErrorStr: e,
	}
}

// storeError maps a ledger error to a response.
func storeError(err error) (HTTPError, int) {
	switch {
	case errors.Is(err, storage.ErrInvalidAmount):
		return ErrInvalidAmount, http.StatusBadRequest
	case errors.Is(err, storage.ErrInvalidHash):
		return ErrMissingHash, http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound, http.StatusNotFound
	case errors.Is(err, storage.ErrClosed):
		return ErrUnavailable, http.StatusServiceUnavailable
	default:
		return ErrInternal, http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, e error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf, _ := json.Marshal(e)
	_, _ = w.Write(buf)
}

func writeSuccess(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf, _ := json.Marshal(data)
	_, _ = w.Write(buf)
}
