package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

//go:generate go tool go.uber.org/mock/mockgen -destination=../ledger/mock/ledger.mock.go -package=mock -source ledger.go

// ErrLedgerNotFound means the node does not (yet) know about the requested object.
var ErrLedgerNotFound = errors.New("ledger: not found")

// RejectionError is returned when the node explicitly refuses a transaction.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("transaction rejected by network: %s", e.Reason)
}

// PendingInfo is the node's view of a submitted transaction. Both fields are
// zero while the transaction is still in the pool.
type PendingInfo struct {
	ConfirmedRound uint64
	PoolError      string
}

type AccountInfo struct {
	Address    string
	Amount     uint64
	MinBalance uint64
	Round      uint64
	Status     string
}

type LedgerClient interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	SubmitRaw(ctx context.Context, signed []byte) (string, error)
	PendingInfo(ctx context.Context, id string) (PendingInfo, error)
	CurrentRound(ctx context.Context) (uint64, error)
	// WaitForRoundAdvance blocks until the node reports a round greater than round.
	WaitForRoundAdvance(ctx context.Context, round uint64) (uint64, error)
	AccountInfo(ctx context.Context, address string) (AccountInfo, error)
}

// Signer is the opaque credential used to sign a built payment.
type Signer interface {
	Address() string
	Sign(tx types.Transaction) (id string, signed []byte, err error)
}
