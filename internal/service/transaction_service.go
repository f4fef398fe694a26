package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"algo-transfers/internal/builder"
	"algo-transfers/internal/domain"
	"algo-transfers/internal/errors"
	"algo-transfers/internal/metrics"
)

type Options struct {
	// ConfirmationRounds bounds the inline wait after a submission.
	ConfirmationRounds uint64
	// WaitForConfirmation is the default for requests that do not choose.
	WaitForConfirmation bool
	Now                 func() time.Time
}

type TransactionService struct {
	ledger  domain.LedgerClient
	store   domain.TransactionStore
	poller  *ConfirmationPoller
	metrics *metrics.Metrics
	logger  *slog.Logger
	opts    Options
}

func NewTransactionService(
	ledger domain.LedgerClient,
	store domain.TransactionStore,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *TransactionService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &TransactionService{
		ledger:  ledger,
		store:   store,
		poller:  NewConfirmationPoller(ledger, logger),
		metrics: m,
		logger:  logger,
		opts:    opts,
	}
}

type SubmitRequest struct {
	// Sender defaults to the signer's address when empty.
	Sender    string
	Recipient string
	Amount    decimal.Decimal
	Note      []byte
	Signer    domain.Signer
	// WaitForConfirmation overrides Options.WaitForConfirmation when set.
	WaitForConfirmation *bool
}

type SubmitResult struct {
	ID          string              `json:"id"`
	Transaction *domain.Transaction `json:"transaction"`
}

// Submit validates, signs and sends a payment, then records it as pending.
//
// Once the node has accepted the transaction nothing is rolled back: if the
// record cannot be written, the result still carries the id and the error is
// a PersistenceInconsistency.
func (s *TransactionService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	sender := req.Sender
	if sender == "" && req.Signer != nil {
		sender = req.Signer.Address()
	}

	payment, err := builder.Validate(builder.Request{
		Sender:    sender,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		Note:      req.Note,
	})
	if err != nil {
		s.metrics.Submission("invalid")
		// With neither a sender nor a signer the only thing missing is the credential.
		if sender == "" && errors.IsCode(err, errors.InvalidSender) {
			return nil, errors.ErrMissingCredential
		}
		return nil, err
	}
	if req.Signer == nil {
		s.metrics.Submission("invalid")
		return nil, errors.ErrMissingCredential
	}
	if req.Signer.Address() != payment.Sender {
		s.metrics.Submission("invalid")
		return nil, errors.NewAppError(errors.InvalidCredential, "credential does not control the sender address")
	}

	s.logger.Info("Processing payment",
		"sender", payment.Sender,
		"recipient", payment.Recipient,
		"amount", payment.Amount,
		"note_bytes", len(payment.Note))

	params, err := s.ledger.SuggestedParams(ctx)
	if err != nil {
		s.metrics.Submission("network_error")
		s.logger.Error("Failed to fetch network parameters", "error", err)
		return nil, errors.Wrap(errors.NetworkUnavailable, "failed to fetch network parameters", err)
	}

	tx, err := builder.Build(payment, params)
	if err != nil {
		s.metrics.Submission("invalid")
		return nil, err
	}

	id, signed, err := req.Signer.Sign(tx)
	if err != nil {
		s.metrics.Submission("invalid")
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(errors.InvalidCredential, "failed to sign transaction", err)
	}

	nodeID, err := s.ledger.SubmitRaw(ctx, signed)
	if err != nil {
		if reason, ok := rejectionReason(err); ok {
			s.metrics.Submission("rejected")
			s.logger.Warn("Transaction rejected by network", "transaction_id", id, "reason", reason)
			return nil, errors.Wrap(errors.RejectedByNetwork, "transaction rejected by network: "+reason, err)
		}
		s.metrics.Submission("network_error")
		s.logger.Error("Failed to send transaction", "transaction_id", id, "error", err)
		return nil, errors.Wrap(errors.NetworkUnavailable, "failed to send transaction", err)
	}
	if nodeID != "" && nodeID != id {
		s.logger.Warn("Node returned a different transaction id", "computed_id", id, "node_id", nodeID)
		id = nodeID
	}

	now := s.opts.Now()
	record := &domain.Transaction{
		ID:        id,
		Sender:    payment.Sender,
		Recipient: payment.Recipient,
		Amount:    payment.Amount,
		Note:      payment.Note,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result := &SubmitResult{ID: id, Transaction: record}

	if err := s.store.Insert(ctx, record); err != nil {
		s.metrics.Submission("persistence_inconsistency")
		s.logger.Error("Transaction submitted but not recorded", "transaction_id", id, "error", err)
		return result, errors.Wrap(errors.PersistenceInconsistency,
			"transaction "+id+" was submitted but could not be recorded", err)
	}
	s.metrics.Submission("accepted")
	s.logger.Info("Transaction submitted", "transaction_id", id)

	wait := s.opts.WaitForConfirmation
	if req.WaitForConfirmation != nil {
		wait = *req.WaitForConfirmation
	}
	if wait {
		s.confirmInline(ctx, record)
	}
	return result, nil
}

// confirmInline runs one bounded wait and copies its outcome onto record.
// Every inconclusive outcome leaves the record pending for reconciliation.
func (s *TransactionService) confirmInline(ctx context.Context, record *domain.Transaction) {
	res, err := s.settle(ctx, record, s.opts.ConfirmationRounds)
	if err != nil {
		s.logger.Info("Transaction still pending after inline wait", "transaction_id", record.ID, "reason", err)
	}
	if res == nil || res.Status == domain.StatusPending {
		return
	}
	record.Status = res.Status
	record.ConfirmedRound = res.ConfirmedRound
	record.FailureReason = res.FailureReason
	record.UpdatedAt = s.opts.Now()
}

// AwaitConfirmation waits up to maxRounds for a pending record to settle and
// persists the outcome. On timeout the pending status is returned together
// with the ConfirmationTimeout error.
func (s *TransactionService) AwaitConfirmation(ctx context.Context, id string, maxRounds uint64) (*StatusResult, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status.Terminal() {
		return statusOf(record), nil
	}
	return s.settle(ctx, record, maxRounds)
}

func (s *TransactionService) settle(ctx context.Context, record *domain.Transaction, maxRounds uint64) (*StatusResult, error) {
	conf, err := s.poller.WaitForConfirmation(ctx, record.ID, maxRounds)
	switch {
	case err == nil:
		round := conf.ConfirmedRound
		return s.transition(ctx, domain.StatusUpdate{
			ID: record.ID, Expected: domain.StatusPending, New: domain.StatusConfirmed, ConfirmedRound: &round,
		})
	case errors.IsCode(err, errors.RejectedByNetwork):
		reason, _ := rejectionReason(err)
		return s.transition(ctx, domain.StatusUpdate{
			ID: record.ID, Expected: domain.StatusPending, New: domain.StatusFailed, FailureReason: reason,
		})
	}
	return statusOf(record), err
}

type StatusResult struct {
	ID             string        `json:"id"`
	Status         domain.Status `json:"status"`
	ConfirmedRound *uint64       `json:"confirmed_round,omitempty"`
	FailureReason  string        `json:"failure_reason,omitempty"`
}

func statusOf(tx *domain.Transaction) *StatusResult {
	return &StatusResult{
		ID:             tx.ID,
		Status:         tx.Status,
		ConfirmedRound: tx.ConfirmedRound,
		FailureReason:  tx.FailureReason,
	}
}

// CheckStatus asks the node once about a pending record and persists any
// terminal outcome. Terminal records are answered from the store.
func (s *TransactionService) CheckStatus(ctx context.Context, id string) (*StatusResult, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status.Terminal() {
		return statusOf(record), nil
	}

	info, err := s.ledger.PendingInfo(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrLedgerNotFound) {
			return statusOf(record), nil
		}
		s.logger.Warn("Status lookup failed, record left pending", "transaction_id", id, "error", err)
		return nil, errors.Wrap(errors.NetworkUnavailable, "failed to fetch pending transaction", err)
	}

	switch {
	case info.ConfirmedRound > 0:
		round := info.ConfirmedRound
		return s.transition(ctx, domain.StatusUpdate{
			ID: id, Expected: domain.StatusPending, New: domain.StatusConfirmed, ConfirmedRound: &round,
		})
	case info.PoolError != "":
		return s.transition(ctx, domain.StatusUpdate{
			ID: id, Expected: domain.StatusPending, New: domain.StatusFailed, FailureReason: info.PoolError,
		})
	}
	return statusOf(record), nil
}

// transition applies u and, when another caller got there first, reports the
// status that caller stored.
func (s *TransactionService) transition(ctx context.Context, u domain.StatusUpdate) (*StatusResult, error) {
	applied, err := s.store.ConditionalUpdateStatus(ctx, u)
	if err != nil {
		return nil, err
	}
	if applied {
		s.metrics.Transition(string(u.New))
		return &StatusResult{ID: u.ID, Status: u.New, ConfirmedRound: u.ConfirmedRound, FailureReason: u.FailureReason}, nil
	}

	current, err := s.store.Get(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Status already settled by another caller", "transaction_id", u.ID, "status", current.Status)
	return statusOf(current), nil
}

type ReconcileSummary struct {
	Checked      int `json:"checked"`
	Confirmed    int `json:"confirmed"`
	Failed       int `json:"failed"`
	StillPending int `json:"still_pending"`
	Errors       int `json:"errors"`
}

// ReconcilePending re-checks every pending record. A failure on one record is
// logged and counted; only failing to read the pending set is returned.
func (s *TransactionService) ReconcilePending(ctx context.Context) (ReconcileSummary, error) {
	var summary ReconcileSummary

	pending, err := s.store.FindByStatus(ctx, domain.StatusPending)
	if err != nil {
		s.metrics.Reconciled(0, 0, 0, 0, err)
		s.logger.Error("Failed to load pending transactions", "error", err)
		return summary, err
	}

	for _, record := range pending {
		summary.Checked++
		res, err := s.CheckStatus(ctx, record.ID)
		if err != nil {
			summary.Errors++
			s.logger.Warn("Reconciliation skipped transaction", "transaction_id", record.ID, "error", err)
			continue
		}
		switch res.Status {
		case domain.StatusConfirmed:
			summary.Confirmed++
		case domain.StatusFailed:
			summary.Failed++
		default:
			summary.StillPending++
		}
	}

	s.metrics.Reconciled(summary.Confirmed, summary.Failed, summary.StillPending, summary.Errors, nil)
	s.logger.Info("Reconciliation finished",
		"checked", summary.Checked,
		"confirmed", summary.Confirmed,
		"failed", summary.Failed,
		"still_pending", summary.StillPending,
		"errors", summary.Errors)
	return summary, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.store.Get(ctx, id)
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	txs, err := s.store.FindAllSortedByCreatedDesc(ctx)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}
	return txs, nil
}
