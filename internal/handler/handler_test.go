package handler

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-transfers/internal/domain"
	"algo-transfers/internal/ledger"
	"algo-transfers/internal/ledger/ledgertest"
	"algo-transfers/internal/repository"
	"algo-transfers/internal/service"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// brokenInsertStore accepts everything except new records.
type brokenInsertStore struct {
	domain.TransactionStore
}

func (brokenInsertStore) Insert(context.Context, *domain.Transaction) error {
	return stderrors.New("connection reset by peer")
}

type fixture struct {
	ledger    *ledgertest.Ledger
	router    *mux.Router
	mnemonic  string
	sender    string
	recipient string
}

func newFixture(t *testing.T, store domain.TransactionStore, defaultMnemonic bool) *fixture {
	t.Helper()

	account := crypto.GenerateAccount()
	phrase, err := mnemonic.FromPrivateKey(account.PrivateKey)
	require.NoError(t, err)

	f := &fixture{
		ledger:    ledgertest.New(),
		mnemonic:  phrase,
		sender:    account.Address.String(),
		recipient: crypto.GenerateAccount().Address.String(),
	}
	if store == nil {
		store = repository.NewMemoryStore(discardLogger)
	}

	fallback := ""
	if defaultMnemonic {
		fallback = phrase
	}
	resolve := func(m string) (domain.Signer, error) {
		s, err := ledger.NewMnemonicSigner(m)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	txService := service.NewTransactionService(f.ledger, store, nil, discardLogger, service.Options{ConfirmationRounds: 3})
	accountService := service.NewAccountService(f.ledger, 0, discardLogger)
	th := NewTransactionHandler(txService, resolve, fallback, 3, 20)
	ah := NewAccountHandler(accountService)

	r := mux.NewRouter()
	r.HandleFunc("/transactions", th.Submit).Methods("POST")
	r.HandleFunc("/transactions", th.List).Methods("GET")
	r.HandleFunc("/transactions/reconcile", th.Reconcile).Methods("POST")
	r.HandleFunc("/transactions/{transaction_id}", th.Get).Methods("GET")
	r.HandleFunc("/transactions/{transaction_id}/status", th.Status).Methods("GET")
	r.HandleFunc("/transactions/{transaction_id}/wait", th.Wait).Methods("POST")
	r.HandleFunc("/accounts/{address}", ah.GetAccount).Methods("GET")
	f.router = r
	return f
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *Error          `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func (f *fixture) submit(t *testing.T, extra map[string]interface{}) SubmitResponse {
	t.Helper()
	body := map[string]interface{}{
		"recipient": f.recipient,
		"amount":    "1.5",
		"note":      "rent",
		"mnemonic":  f.mnemonic,
	}
	for k, v := range extra {
		body[k] = v
	}
	code, env := f.do(t, http.MethodPost, "/transactions", body)
	require.Equal(t, http.StatusCreated, code, "error: %+v", env.Error)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func TestSubmit_RecordsPendingTransaction(t *testing.T) {
	f := newFixture(t, nil, false)

	resp := f.submit(t, nil)

	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.Nil(t, resp.ConfirmedRound)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, f.sender, resp.Transaction.Sender)
	assert.Equal(t, f.recipient, resp.Transaction.Recipient)
	assert.Equal(t, "1.5", resp.Transaction.Amount)
	assert.Equal(t, uint64(1_500_000), resp.Transaction.MicroAlgos)
	assert.Equal(t, "rent", resp.Transaction.Note)
	assert.Equal(t, []string{resp.TransactionID}, f.ledger.Submitted())
}

func TestSubmit_NumericAmountAndDefaultMnemonic(t *testing.T) {
	f := newFixture(t, nil, true)

	code, env := f.do(t, http.MethodPost, "/transactions", map[string]interface{}{
		"recipient": f.recipient,
		"amount":    0.000001,
	})
	require.Equal(t, http.StatusCreated, code, "error: %+v", env.Error)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, uint64(1), resp.Transaction.MicroAlgos)
	assert.Equal(t, f.sender, resp.Transaction.Sender)
}

func TestSubmit_WaitForConfirmation(t *testing.T) {
	f := newFixture(t, nil, false)

	resp := f.submit(t, map[string]interface{}{"wait_for_confirmation": true})

	assert.Equal(t, domain.StatusConfirmed, resp.Status)
	require.NotNil(t, resp.ConfirmedRound)
	assert.Equal(t, uint64(1001), *resp.ConfirmedRound)
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]interface{}
		reject   string
		wantCode int
		wantErr  string
	}{
		{
			name:     "malformed amount",
			body:     map[string]interface{}{"amount": "one"},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_amount",
		},
		{
			name:     "NaN amount",
			body:     map[string]interface{}{"amount": "NaN"},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_amount",
		},
		{
			name:     "boolean amount",
			body:     map[string]interface{}{"amount": true},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_amount",
		},
		{
			name:     "missing amount",
			body:     map[string]interface{}{"amount": nil},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_amount",
		},
		{
			name:     "out of range number",
			body:     map[string]interface{}{"amount": json.RawMessage("1e400")},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_amount",
		},
		{
			name:     "zero amount",
			body:     map[string]interface{}{"amount": "0"},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_amount",
		},
		{
			name:     "bad recipient",
			body:     map[string]interface{}{"recipient": "not-an-address"},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_recipient",
		},
		{
			name:     "no credential",
			body:     map[string]interface{}{"mnemonic": ""},
			wantCode: http.StatusBadRequest,
			wantErr:  "missing_credential",
		},
		{
			name:     "bad recipient without credential",
			body:     map[string]interface{}{"recipient": "not-an-address", "mnemonic": ""},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_recipient",
		},
		{
			name:     "bad mnemonic",
			body:     map[string]interface{}{"mnemonic": "abandon abandon"},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_credential",
		},
		{
			name:     "rejected by node",
			reject:   "overspend",
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "rejected_by_network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, false)
			if tt.reject != "" {
				f.ledger.RejectSubmissions(tt.reject)
			}
			body := map[string]interface{}{
				"recipient": f.recipient,
				"amount":    "1",
				"mnemonic":  f.mnemonic,
			}
			for k, v := range tt.body {
				body[k] = v
			}

			code, env := f.do(t, http.MethodPost, "/transactions", body)

			assert.Equal(t, tt.wantCode, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestSubmit_InvalidBody(t *testing.T) {
	f := newFixture(t, nil, false)
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_input")
}

func TestSubmit_PersistenceInconsistencyKeepsID(t *testing.T) {
	f := newFixture(t, brokenInsertStore{TransactionStore: repository.NewMemoryStore(discardLogger)}, false)

	code, env := f.do(t, http.MethodPost, "/transactions", map[string]interface{}{
		"recipient": f.recipient,
		"amount":    "2",
		"mnemonic":  f.mnemonic,
	})

	assert.Equal(t, http.StatusInternalServerError, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "persistence_inconsistency", env.Error.Category)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, f.ledger.Submitted(), 1)
	assert.Equal(t, f.ledger.Submitted()[0], resp.TransactionID)
}

func TestStatusAndGet(t *testing.T) {
	f := newFixture(t, nil, false)
	resp := f.submit(t, nil)

	code, env := f.do(t, http.MethodGet, "/transactions/"+resp.TransactionID+"/status", nil)
	require.Equal(t, http.StatusOK, code)
	var status service.StatusResult
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, domain.StatusPending, status.Status)

	f.ledger.Advance()

	code, env = f.do(t, http.MethodGet, "/transactions/"+resp.TransactionID+"/status", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, domain.StatusConfirmed, status.Status)
	require.NotNil(t, status.ConfirmedRound)
	assert.Equal(t, uint64(1001), *status.ConfirmedRound)

	code, env = f.do(t, http.MethodGet, "/transactions/"+resp.TransactionID, nil)
	require.Equal(t, http.StatusOK, code)
	var tx TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, domain.StatusConfirmed, tx.Status)
}

func TestGet_Unknown(t *testing.T) {
	f := newFixture(t, nil, false)

	for _, path := range []string{"/transactions/NOPE", "/transactions/NOPE/status"} {
		code, env := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, code, path)
		require.NotNil(t, env.Error)
		assert.Equal(t, "transaction_not_found", env.Error.Code)
	}
}

func TestWait(t *testing.T) {
	t.Run("confirms within bound", func(t *testing.T) {
		f := newFixture(t, nil, false)
		resp := f.submit(t, nil)

		code, env := f.do(t, http.MethodPost, "/transactions/"+resp.TransactionID+"/wait?max_rounds=2", nil)

		require.Equal(t, http.StatusOK, code)
		var status service.StatusResult
		require.NoError(t, json.Unmarshal(env.Data, &status))
		assert.Equal(t, domain.StatusConfirmed, status.Status)
	})

	t.Run("timeout answers accepted with pending status", func(t *testing.T) {
		f := newFixture(t, nil, false)
		f.ledger.ConfirmAfter(0)
		resp := f.submit(t, nil)

		code, env := f.do(t, http.MethodPost, "/transactions/"+resp.TransactionID+"/wait?max_rounds=1", nil)

		assert.Equal(t, http.StatusAccepted, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "confirmation_timeout", env.Error.Code)
		var status service.StatusResult
		require.NoError(t, json.Unmarshal(env.Data, &status))
		assert.Equal(t, domain.StatusPending, status.Status)
	})

	t.Run("request ends before confirmation", func(t *testing.T) {
		f := newFixture(t, nil, false)
		f.ledger.ConfirmAfter(0)
		f.ledger.AutoAdvance(false)
		resp := f.submit(t, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/transactions/"+resp.TransactionID+"/wait", http.NoBody).WithContext(ctx)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.NotNil(t, env.Error)
		assert.Equal(t, "confirmation_timeout", env.Error.Code)
		var status service.StatusResult
		require.NoError(t, json.Unmarshal(env.Data, &status))
		assert.Equal(t, resp.TransactionID, status.ID)
		assert.Equal(t, domain.StatusPending, status.Status)
	})

	t.Run("max_rounds above limit", func(t *testing.T) {
		f := newFixture(t, nil, false)
		resp := f.submit(t, nil)

		code, env := f.do(t, http.MethodPost, "/transactions/"+resp.TransactionID+"/wait?max_rounds=21", nil)

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid_input", env.Error.Code)
		assert.Zero(t, f.ledger.Calls(ledgertest.MethodPendingInfo))
	})

	t.Run("bad max_rounds", func(t *testing.T) {
		f := newFixture(t, nil, false)

		code, env := f.do(t, http.MethodPost, "/transactions/X/wait?max_rounds=-1", nil)

		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid_input", env.Error.Code)
	})
}

func TestReconcileAndList(t *testing.T) {
	f := newFixture(t, nil, false)

	code, env := f.do(t, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	first := f.submit(t, nil)
	second := f.submit(t, map[string]interface{}{"amount": "2"})
	f.ledger.Fail(second.TransactionID, "fee too low")
	f.ledger.Advance()

	code, env = f.do(t, http.MethodPost, "/transactions/reconcile", nil)
	require.Equal(t, http.StatusOK, code)
	var summary service.ReconcileSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, service.ReconcileSummary{Checked: 2, Confirmed: 1, Failed: 1}, summary)

	code, env = f.do(t, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, code)
	var list []TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)

	byID := map[string]TransactionResponse{}
	for _, tx := range list {
		byID[tx.ID] = tx
	}
	assert.Equal(t, domain.StatusConfirmed, byID[first.TransactionID].Status)
	assert.Equal(t, domain.StatusFailed, byID[second.TransactionID].Status)
	assert.Equal(t, "fee too low", byID[second.TransactionID].FailureReason)
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t, nil, false)
	f.ledger.SetAccount(domain.AccountInfo{
		Address:    f.sender,
		Amount:     2_500_000,
		MinBalance: 100_000,
		Status:     "Online",
	})

	code, env := f.do(t, http.MethodGet, "/accounts/"+f.sender, nil)
	require.Equal(t, http.StatusOK, code)
	var account AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, f.sender, account.Address)
	assert.Equal(t, "2.5", account.Balance)
	assert.Equal(t, "0.1", account.MinBalance)
	assert.Equal(t, uint64(2_500_000), account.MicroAlgos)
	assert.Equal(t, "Online", account.Status)

	code, env = f.do(t, http.MethodGet, "/accounts/not-an-address", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_address", env.Error.Code)
}
