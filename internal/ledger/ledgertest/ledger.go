// Package ledgertest provides an in-memory ledger that behaves like an algod
// node closely enough to drive the transaction lifecycle in tests.
package ledgertest

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-transfers/internal/domain"
)

const (
	MethodSuggestedParams     = "SuggestedParams"
	MethodSubmitRaw           = "SubmitRaw"
	MethodPendingInfo         = "PendingInfo"
	MethodCurrentRound        = "CurrentRound"
	MethodWaitForRoundAdvance = "WaitForRoundAdvance"
	MethodAccountInfo         = "AccountInfo"
)

type entry struct {
	confirmAt uint64
	poolError string
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	round    uint64
	advanced chan struct{}
	txs      map[string]*entry
	order    []string
	accounts map[string]domain.AccountInfo
	calls    map[string]int

	confirmAfter uint64
	autoAdvance  bool
	rejectReason string
	errs         map[string]error
	onAdvance    func(round uint64)
}

var _ domain.LedgerClient = (*Ledger)(nil)

// New returns a ledger at round 1000 that confirms submissions one round after
// they arrive and produces a new round whenever someone waits for one.
func New() *Ledger {
	return &Ledger{
		round:        1000,
		advanced:     make(chan struct{}),
		txs:          make(map[string]*entry),
		accounts:     make(map[string]domain.AccountInfo),
		calls:        make(map[string]int),
		confirmAfter: 1,
		autoAdvance:  true,
		errs:         make(map[string]error),
	}
}

// ConfirmAfter sets how many rounds after submission new transactions confirm.
// Zero leaves them pending until Confirm is called.
func (l *Ledger) ConfirmAfter(rounds uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirmAfter = rounds
}

// AutoAdvance controls whether WaitForRoundAdvance produces the next round
// itself or blocks until Advance is called.
func (l *Ledger) AutoAdvance(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.autoAdvance = on
}

// RejectSubmissions makes SubmitRaw refuse every transaction with reason.
func (l *Ledger) RejectSubmissions(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejectReason = reason
}

// FailMethod makes method return err until cleared with a nil err.
func (l *Ledger) FailMethod(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.errs, method)
		return
	}
	l.errs[method] = err
}

// OnAdvance registers fn to run after each new round, outside the lock.
func (l *Ledger) OnAdvance(fn func(round uint64)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAdvance = fn
}

// Track registers a transaction the ledger knows about but has not settled.
func (l *Ledger) Track(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[id] = &entry{}
}

// Confirm settles id in round.
func (l *Ledger) Confirm(id string, round uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[id] = &entry{confirmAt: round}
}

// Fail evicts id from the pool with reason.
func (l *Ledger) Fail(id, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[id] = &entry{poolError: reason}
}

// Submitted returns the ids accepted by SubmitRaw in arrival order.
func (l *Ledger) Submitted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func (l *Ledger) SetAccount(info domain.AccountInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[info.Address] = info
}

// Calls returns how often method was invoked.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.calls {
		total += n
	}
	return total
}

func (l *Ledger) Round() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.round
}

// Advance produces the next round.
func (l *Ledger) Advance() uint64 {
	l.mu.Lock()
	l.round++
	round := l.round
	close(l.advanced)
	l.advanced = make(chan struct{})
	hook := l.onAdvance
	l.mu.Unlock()

	if hook != nil {
		hook(round)
	}
	return round
}

// record counts the call and returns the injected error, if any. Callers hold l.mu.
func (l *Ledger) record(method string) error {
	l.calls[method]++
	return l.errs[method]
}

func (l *Ledger) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record(MethodSuggestedParams); err != nil {
		return types.SuggestedParams{}, err
	}
	return types.SuggestedParams{
		MinFee:           1000,
		FirstRoundValid:  types.Round(l.round),
		LastRoundValid:   types.Round(l.round + 1000),
		GenesisID:        "ledgertest-v1",
		GenesisHash:      bytes.Repeat([]byte{0xab}, 32),
		ConsensusVersion: "ledgertest",
	}, nil
}

func (l *Ledger) SubmitRaw(ctx context.Context, signed []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record(MethodSubmitRaw); err != nil {
		return "", err
	}
	if l.rejectReason != "" {
		return "", &domain.RejectionError{Reason: l.rejectReason}
	}

	var stx types.SignedTxn
	if err := msgpack.Decode(signed, &stx); err != nil {
		return "", &domain.RejectionError{Reason: fmt.Sprintf("malformed transaction: %v", err)}
	}
	id := crypto.GetTxID(stx.Txn)
	if _, exists := l.txs[id]; exists {
		return "", &domain.RejectionError{Reason: "transaction already in ledger: " + id}
	}

	e := &entry{}
	if l.confirmAfter > 0 {
		e.confirmAt = l.round + l.confirmAfter
	}
	l.txs[id] = e
	l.order = append(l.order, id)
	return id, nil
}

func (l *Ledger) PendingInfo(ctx context.Context, id string) (domain.PendingInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record(MethodPendingInfo); err != nil {
		return domain.PendingInfo{}, err
	}

	e, ok := l.txs[id]
	if !ok {
		return domain.PendingInfo{}, fmt.Errorf("pending info %s: %w", id, domain.ErrLedgerNotFound)
	}
	if e.poolError != "" {
		return domain.PendingInfo{PoolError: e.poolError}, nil
	}
	if e.confirmAt > 0 && l.round >= e.confirmAt {
		return domain.PendingInfo{ConfirmedRound: e.confirmAt}, nil
	}
	return domain.PendingInfo{}, nil
}

func (l *Ledger) CurrentRound(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record(MethodCurrentRound); err != nil {
		return 0, err
	}
	return l.round, nil
}

func (l *Ledger) WaitForRoundAdvance(ctx context.Context, round uint64) (uint64, error) {
	for {
		l.mu.Lock()
		if err := l.record(MethodWaitForRoundAdvance); err != nil {
			l.mu.Unlock()
			return 0, err
		}
		if l.round > round {
			current := l.round
			l.mu.Unlock()
			return current, nil
		}
		auto := l.autoAdvance
		wait := l.advanced
		l.mu.Unlock()

		if auto {
			return l.Advance(), nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-wait:
		}
	}
}

func (l *Ledger) AccountInfo(ctx context.Context, address string) (domain.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.record(MethodAccountInfo); err != nil {
		return domain.AccountInfo{}, err
	}
	info, ok := l.accounts[address]
	if !ok {
		return domain.AccountInfo{Address: address, Round: l.round, Status: "Offline"}, nil
	}
	info.Round = l.round
	return info, nil
}
