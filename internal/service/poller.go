package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"algo-transfers/internal/domain"
	"algo-transfers/internal/errors"
)

// Confirmation is the successful outcome of a round wait.
type Confirmation struct {
	ID             string `json:"id"`
	ConfirmedRound uint64 `json:"confirmed_round"`
}

// ConfirmationPoller waits for a submitted transaction to settle, counting
// network rounds rather than wall-clock time. It keeps no state between calls.
type ConfirmationPoller struct {
	ledger domain.LedgerClient
	logger *slog.Logger
}

func NewConfirmationPoller(ledger domain.LedgerClient, logger *slog.Logger) *ConfirmationPoller {
	return &ConfirmationPoller{
		ledger: ledger,
		logger: logger,
	}
}

// WaitForConfirmation checks id once per round for up to maxRounds round
// advances, so a zero bound performs a single check. It returns
//
//   - the confirmation when the node reports a confirmed round,
//   - a RejectedByNetwork error wrapping *domain.RejectionError when the
//     node evicted the transaction from its pool,
//   - a ConfirmationTimeout error when the bound is exhausted,
//   - ctx.Err() when ctx ends first,
//   - a NetworkUnavailable error for any other node failure.
//
// A lookup that reports the transaction as unknown counts as still waiting.
func (p *ConfirmationPoller) WaitForConfirmation(ctx context.Context, id string, maxRounds uint64) (*Confirmation, error) {
	round, err := p.ledger.CurrentRound(ctx)
	if err != nil {
		return nil, p.networkError(ctx, "failed to fetch current round", err)
	}

	for elapsed := uint64(0); ; elapsed++ {
		info, err := p.ledger.PendingInfo(ctx, id)
		switch {
		case err == nil:
		case stderrors.Is(err, domain.ErrLedgerNotFound):
			p.logger.Debug("Transaction not yet visible", "transaction_id", id, "round", round)
		default:
			return nil, p.networkError(ctx, "failed to fetch pending transaction", err)
		}

		if info.ConfirmedRound > 0 {
			p.logger.Info("Transaction confirmed", "transaction_id", id, "round", info.ConfirmedRound)
			return &Confirmation{ID: id, ConfirmedRound: info.ConfirmedRound}, nil
		}
		if info.PoolError != "" {
			p.logger.Warn("Transaction dropped from pool", "transaction_id", id, "reason", info.PoolError)
			return nil, poolRejection(info.PoolError)
		}

		if elapsed >= maxRounds {
			return nil, errors.Wrap(errors.ConfirmationTimeout,
				fmt.Sprintf("transaction %s not confirmed after %d rounds", id, maxRounds), errors.ErrConfirmationTimeout)
		}

		next, err := p.ledger.WaitForRoundAdvance(ctx, round)
		if err != nil {
			return nil, p.networkError(ctx, fmt.Sprintf("failed waiting for round after %d", round), err)
		}
		round = next
	}
}

func (p *ConfirmationPoller) networkError(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.Wrap(errors.NetworkUnavailable, msg, err)
}

func poolRejection(reason string) error {
	return errors.Wrap(errors.RejectedByNetwork, "transaction rejected by network: "+reason,
		&domain.RejectionError{Reason: reason})
}

// rejectionReason extracts the node's reason from a rejection error.
func rejectionReason(err error) (string, bool) {
	var rejection *domain.RejectionError
	if stderrors.As(err, &rejection) {
		return rejection.Reason, true
	}
	return "", false
}
