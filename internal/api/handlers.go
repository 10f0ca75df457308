package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pvzzle/posledger/internal/storage"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxBodySize = 64 << 10

type CreateRequest struct {
	Amount json.RawMessage `json:"amount"`
	// Timestamp is accepted for compatibility; the server clock is used.
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type ConfirmRequest struct {
	TxHash string `json:"txHash"`
}

// Record is a payment request as returned to clients.
type Record struct {
	storage.PaymentRequest
	PaymentURI string `json:"paymentUri,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) CreateTransaction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := CreateRequest{}
	if err := unmarshalBody(r, &req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	lovelace, herr := parseAmount(req.Amount)
	if herr != nil {
		writeError(w, herr, http.StatusBadRequest)
		return
	}
	if len(req.Timestamp) > 0 {
		s.log.Debug("ignoring client timestamp", zap.ByteString("timestamp", req.Timestamp))
	}

	rec, err := s.ledger.Create(r.Context(), lovelace)
	if err != nil {
		s.fail(w, "create", err)
		return
	}
	writeSuccess(w, s.record(rec), http.StatusCreated)
}

func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	items, err := s.ledger.List(r.Context())
	if err != nil {
		s.fail(w, "list", err)
		return
	}

	out := make([]Record, 0, len(items))
	for _, it := range items {
		out = append(out, s.record(it))
	}
	writeSuccess(w, out, http.StatusOK)
}

func (s *Server) GetTransaction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := parseID(ps)
	if !ok {
		writeError(w, ErrInvalidID, http.StatusBadRequest)
		return
	}

	rec, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		s.fail(w, "get", err)
		return
	}
	writeSuccess(w, s.record(rec), http.StatusOK)
}

// ConfirmTransaction attaches a hash reported out of band. Confirming an
// already confirmed record returns it with the stored hash.
func (s *Server) ConfirmTransaction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := parseID(ps)
	if !ok {
		writeError(w, ErrInvalidID, http.StatusBadRequest)
		return
	}

	req := ConfirmRequest{}
	if err := unmarshalBody(r, &req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	hash := strings.TrimSpace(req.TxHash)
	if hash == "" {
		writeError(w, ErrMissingHash, http.StatusBadRequest)
		return
	}

	rec, err := s.ledger.Confirm(r.Context(), id, hash, "api")
	if err != nil {
		s.fail(w, "confirm", err)
		return
	}
	writeSuccess(w, s.record(rec), http.StatusOK)
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeSuccess(w, HealthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}, http.StatusOK)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	herr, status := storeError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("ledger error", zap.String("op", op), zap.Error(err))
	}
	writeError(w, herr, status)
}

func (s *Server) record(rec storage.PaymentRequest) Record {
	return Record{PaymentRequest: rec, PaymentURI: s.ledger.PaymentURI(rec)}
}

func unmarshalBody(r *http.Request, into any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return ErrInvalidRequest
	}
	return json.Unmarshal(body, into)
}

// parseAmount accepts a bare JSON integer only.
func parseAmount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrMissingAmount
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

func parseID(ps httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	return id, err == nil && id > 0
}
