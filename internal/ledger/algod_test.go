package ledger

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-transfers/internal/domain"
)

func newTestNode(t *testing.T, handler http.HandlerFunc) *AlgodClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewAlgodClient(srv.URL, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestAlgodClient_SuggestedParams(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/transactions/params", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"consensus-version": "future",
			"fee":               0,
			"genesis-hash":      "SGO1GKSzyE7IEPItTxCByw9x8FmnrCDexi9/cOUJOiI=",
			"genesis-id":        "testnet-v1.0",
			"last-round":        1234,
			"min-fee":           1000,
		})
	})

	params, err := c.SuggestedParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "testnet-v1.0", params.GenesisID)
	assert.Equal(t, uint64(1234), uint64(params.FirstRoundValid))
	assert.Len(t, params.GenesisHash, 32)
}

func TestAlgodClient_SubmitRaw(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/transactions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{1, 2, 3}, body)
		writeJSON(w, http.StatusOK, map[string]string{"txId": "TXID123"})
	})

	id, err := c.SubmitRaw(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "TXID123", id)
}

func TestAlgodClient_SubmitRaw_Rejected(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "TransactionPool.Remember: transaction ABC: overspend",
		})
	})

	_, err := c.SubmitRaw(context.Background(), []byte{1})
	var rejection *domain.RejectionError
	require.True(t, stderrors.As(err, &rejection), "got %v", err)
	assert.Contains(t, rejection.Reason, "overspend")
}

func TestAlgodClient_PendingInfo_NotFound(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "txn not found"})
	})

	_, err := c.PendingInfo(context.Background(), "UNKNOWN")
	assert.ErrorIs(t, err, domain.ErrLedgerNotFound)
}

func TestAlgodClient_Rounds(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/status":
			writeJSON(w, http.StatusOK, map[string]interface{}{"last-round": 100})
		case "/v2/status/wait-for-block-after/100":
			writeJSON(w, http.StatusOK, map[string]interface{}{"last-round": 101})
		default:
			http.NotFound(w, r)
		}
	})

	current, err := c.CurrentRound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), current)

	next, err := c.WaitForRoundAdvance(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), next)
}

func TestAlgodClient_ServerErrorIsNotNotFound(t *testing.T) {
	c := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})

	_, err := c.CurrentRound(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLedgerNotFound)
}

func TestParseHTTPError(t *testing.T) {
	code, body, ok := parseHTTPError(stderrors.New(`HTTP 400: {"message":"overspend"}`))
	require.True(t, ok)
	assert.Equal(t, 400, code)
	assert.Equal(t, "overspend", body)

	code, body, ok = parseHTTPError(stderrors.New("HTTP 404: txn not found"))
	require.True(t, ok)
	assert.Equal(t, 404, code)
	assert.Equal(t, "txn not found", body)

	_, _, ok = parseHTTPError(stderrors.New("dial tcp: connection refused"))
	assert.False(t, ok)
}
