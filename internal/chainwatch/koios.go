package chainwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultKoiosURL = "https://preprod.koios.rest/api/v1"

// Indexer looks up transactions that paid exactly lovelace to address.
type Indexer interface {
	FindPayments(ctx context.Context, address string, lovelace int64) ([]string, error)
}

// Koios queries the Koios REST API. No API key is needed for the public
// tiers; a bearer token raises the rate limit.
type Koios struct {
	baseURL string
	token   string
	client  *http.Client
}

type koiosUTxO struct {
	TxHash string `json:"tx_hash"`
	Value  string `json:"value"`
}

func NewKoios(baseURL, token string) *Koios {
	if baseURL == "" {
		baseURL = DefaultKoiosURL
	}
	return &Koios{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (k *Koios) FindPayments(ctx context.Context, address string, lovelace int64) ([]string, error) {
	body, err := json.Marshal(map[string][]string{"_addresses": {address}})
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("value", "eq."+strconv.FormatInt(lovelace, 10))
	q.Set("select", "tx_hash,value")
	endpoint := k.baseURL + "/address_utxos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if k.token != "" {
		req.Header.Set("Authorization", "Bearer "+k.token)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("koios request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("koios returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var utxos []koiosUTxO
	if err := json.NewDecoder(resp.Body).Decode(&utxos); err != nil {
		return nil, fmt.Errorf("decode koios response: %w", err)
	}

	want := strconv.FormatInt(lovelace, 10)
	seen := make(map[string]struct{}, len(utxos))
	hashes := make([]string, 0, len(utxos))
	for _, u := range utxos {
		if u.TxHash == "" || u.Value != want {
			continue
		}
		if _, dup := seen[u.TxHash]; dup {
			continue
		}
		seen[u.TxHash] = struct{}{}
		hashes = append(hashes, u.TxHash)
	}
	return hashes, nil
}
