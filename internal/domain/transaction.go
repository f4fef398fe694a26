package domain

import (
	"context"
	"fmt"
	"time"
)

//go:generate go tool go.uber.org/mock/mockgen -destination=../repository/mock/store.mock.go -package=mock -source transaction.go

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Transaction is the locally persisted record of a submitted payment.
// Amount is denominated in microAlgos.
type Transaction struct {
	ID             string    `json:"id"`
	Sender         string    `json:"sender"`
	Recipient      string    `json:"recipient"`
	Amount         uint64    `json:"amount"`
	Note           []byte    `json:"note,omitempty"`
	Status         Status    `json:"status"`
	ConfirmedRound *uint64   `json:"confirmed_round,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers never share the note or round pointer.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Note != nil {
		c.Note = append([]byte(nil), t.Note...)
	}
	if t.ConfirmedRound != nil {
		r := *t.ConfirmedRound
		c.ConfirmedRound = &r
	}
	return &c
}

// StatusUpdate is a compare-and-set transition: it applies only while the
// stored status still equals Expected.
type StatusUpdate struct {
	ID             string
	Expected       Status
	New            Status
	ConfirmedRound *uint64
	FailureReason  string
}

// Validate rejects transitions that would break the record invariants.
func (u StatusUpdate) Validate() error {
	if !u.Expected.Valid() || !u.New.Valid() {
		return fmt.Errorf("invalid status transition %q -> %q", u.Expected, u.New)
	}
	if u.Expected != StatusPending || u.New == StatusPending {
		return fmt.Errorf("status may only move from pending to a terminal state, got %q -> %q", u.Expected, u.New)
	}
	if u.New == StatusConfirmed && u.ConfirmedRound == nil {
		return fmt.Errorf("confirmed transition for %s requires a confirmed round", u.ID)
	}
	if u.New == StatusFailed && u.ConfirmedRound != nil {
		return fmt.Errorf("failed transition for %s must not carry a confirmed round", u.ID)
	}
	return nil
}

// Apply writes the transition onto t. The caller has already checked the precondition.
func (u StatusUpdate) Apply(t *Transaction, now time.Time) {
	t.Status = u.New
	t.UpdatedAt = now
	if u.New == StatusConfirmed {
		r := *u.ConfirmedRound
		t.ConfirmedRound = &r
		t.FailureReason = ""
		return
	}
	t.ConfirmedRound = nil
	t.FailureReason = u.FailureReason
}

type TransactionStore interface {
	// Insert fails with ErrDuplicateTransaction when the id already exists.
	Insert(ctx context.Context, tx *Transaction) error
	// ConditionalUpdateStatus reports false when the stored status no longer matches u.Expected.
	ConditionalUpdateStatus(ctx context.Context, u StatusUpdate) (bool, error)
	Get(ctx context.Context, id string) (*Transaction, error)
	FindByStatus(ctx context.Context, status Status) ([]*Transaction, error)
	FindAllSortedByCreatedDesc(ctx context.Context) ([]*Transaction, error)
}
