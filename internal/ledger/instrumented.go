package ledger

import (
	"context"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-transfers/internal/domain"
	"algo-transfers/internal/metrics"
)

// Instrumented records the latency and result of every call to next.
type Instrumented struct {
	next    domain.LedgerClient
	metrics *metrics.Metrics
}

var _ domain.LedgerClient = (*Instrumented)(nil)

func NewInstrumented(next domain.LedgerClient, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (i *Instrumented) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	start := time.Now()
	params, err := i.next.SuggestedParams(ctx)
	i.metrics.LedgerCall("SuggestedParams", start, err)
	return params, err
}

func (i *Instrumented) SubmitRaw(ctx context.Context, signed []byte) (string, error) {
	start := time.Now()
	id, err := i.next.SubmitRaw(ctx, signed)
	i.metrics.LedgerCall("SubmitRaw", start, err)
	return id, err
}

func (i *Instrumented) PendingInfo(ctx context.Context, id string) (domain.PendingInfo, error) {
	start := time.Now()
	info, err := i.next.PendingInfo(ctx, id)
	i.metrics.LedgerCall("PendingInfo", start, err)
	return info, err
}

func (i *Instrumented) CurrentRound(ctx context.Context) (uint64, error) {
	start := time.Now()
	round, err := i.next.CurrentRound(ctx)
	i.metrics.LedgerCall("CurrentRound", start, err)
	return round, err
}

func (i *Instrumented) WaitForRoundAdvance(ctx context.Context, round uint64) (uint64, error) {
	start := time.Now()
	next, err := i.next.WaitForRoundAdvance(ctx, round)
	i.metrics.LedgerCall("WaitForRoundAdvance", start, err)
	return next, err
}

func (i *Instrumented) AccountInfo(ctx context.Context, address string) (domain.AccountInfo, error) {
	start := time.Now()
	info, err := i.next.AccountInfo(ctx, address)
	i.metrics.LedgerCall("AccountInfo", start, err)
	return info, err
}
