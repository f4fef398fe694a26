package handler

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"algo-transfers/internal/builder"
	"algo-transfers/internal/domain"
	"algo-transfers/internal/errors"
	"algo-transfers/internal/service"
)

// SignerResolver turns a mnemonic from a request into a signer.
type SignerResolver func(mnemonic string) (domain.Signer, error)

type TransactionHandler struct {
	transactionService *service.TransactionService
	resolveSigner      SignerResolver
	defaultMnemonic    string
	defaultRounds      uint64
	maxRounds          uint64
}

func NewTransactionHandler(
	transactionService *service.TransactionService,
	resolveSigner SignerResolver,
	defaultMnemonic string,
	defaultRounds uint64,
	maxRounds uint64,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		resolveSigner:      resolveSigner,
		defaultMnemonic:    defaultMnemonic,
		defaultRounds:      defaultRounds,
		maxRounds:          maxRounds,
	}
}

type SubmitRequest struct {
	Sender              string          `json:"sender,omitempty"`
	Recipient           string          `json:"recipient"`
	Amount              json.RawMessage `json:"amount"`
	Note                string          `json:"note,omitempty"`
	Mnemonic            string          `json:"mnemonic,omitempty"`
	WaitForConfirmation *bool           `json:"wait_for_confirmation,omitempty"`
}

type TransactionResponse struct {
	ID             string        `json:"id"`
	Sender         string        `json:"sender"`
	Recipient      string        `json:"recipient"`
	Amount         string        `json:"amount"`
	MicroAlgos     uint64        `json:"micro_algos"`
	Note           string        `json:"note,omitempty"`
	Status         domain.Status `json:"status"`
	ConfirmedRound *uint64       `json:"confirmed_round,omitempty"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type SubmitResponse struct {
	TransactionID  string               `json:"transaction_id"`
	Status         domain.Status        `json:"status"`
	ConfirmedRound *uint64              `json:"confirmed_round,omitempty"`
	Transaction    *TransactionResponse `json:"transaction,omitempty"`
}

func toTransactionResponse(tx *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:             tx.ID,
		Sender:         tx.Sender,
		Recipient:      tx.Recipient,
		Amount:         builder.FromBaseUnits(tx.Amount).String(),
		MicroAlgos:     tx.Amount,
		Note:           string(tx.Note),
		Status:         tx.Status,
		ConfirmedRound: tx.ConfirmedRound,
		FailureReason:  tx.FailureReason,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}

func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.InvalidInput, "invalid request body", err))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	mnemonic := req.Mnemonic
	if mnemonic == "" {
		mnemonic = h.defaultMnemonic
	}
	var signer domain.Signer
	if mnemonic != "" {
		signer, err = h.resolveSigner(mnemonic)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	result, err := h.transactionService.Submit(r.Context(), &service.SubmitRequest{
		Sender:              req.Sender,
		Recipient:           req.Recipient,
		Amount:              amount,
		Note:                []byte(req.Note),
		Signer:              signer,
		WaitForConfirmation: req.WaitForConfirmation,
	})
	if err != nil {
		appErr, ok := errors.As(err)
		if ok && result != nil {
			writeResult(w, toSubmitResponse(result), appErr)
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubmitResponse(result))
}

// parseAmount accepts the amount either as a decimal string or as a bare
// JSON number. Anything else is an invalid amount.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Decimal{}, errors.NewAppError(errors.InvalidAmount, "amount is required")
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return decimal.Decimal{}, errors.Wrap(errors.InvalidAmount, "invalid amount format", err)
		}
		return builder.ParseAmount(s)
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return decimal.Decimal{}, errors.Wrap(errors.InvalidAmount, "amount must be a string or a number", err)
	}
	return builder.AmountFromFloat(f)
}

func toSubmitResponse(result *service.SubmitResult) SubmitResponse {
	return SubmitResponse{
		TransactionID:  result.ID,
		Status:         result.Transaction.Status,
		ConfirmedRound: result.Transaction.ConfirmedRound,
		Transaction:    toTransactionResponse(result.Transaction),
	}
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactionService.ListTransactions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := make([]*TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.transactionService.GetTransaction(r.Context(), mux.Vars(r)["transaction_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *TransactionHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.transactionService.CheckStatus(r.Context(), mux.Vars(r)["transaction_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Wait blocks for up to max_rounds rounds (default from config, capped by
// maxRounds) and answers 202 with the pending status when the bound runs out
// or the request ends first.
func (h *TransactionHandler) Wait(w http.ResponseWriter, r *http.Request) {
	rounds := h.defaultRounds
	if v := r.URL.Query().Get("max_rounds"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, errors.Wrap(errors.InvalidInput, "max_rounds must be a non-negative integer", err))
			return
		}
		if parsed > h.maxRounds {
			writeError(w, errors.NewAppErrorf(errors.InvalidInput, "max_rounds must not exceed %d", h.maxRounds))
			return
		}
		rounds = parsed
	}

	status, err := h.transactionService.AwaitConfirmation(r.Context(), mux.Vars(r)["transaction_id"], rounds)
	if err != nil {
		if status != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)) {
			writeResult(w, status, errors.Wrap(errors.ConfirmationTimeout, "wait ended before the transaction settled", err))
			return
		}
		appErr, ok := errors.As(err)
		if ok && status != nil {
			writeResult(w, status, appErr)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *TransactionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.transactionService.ReconcilePending(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
