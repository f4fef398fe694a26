package repository

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"algo-transfers/internal/domain"
	"algo-transfers/internal/errors"
)

// MemoryStore is a TransactionStore held in process memory. Records are
// copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	txs    map[string]*domain.Transaction
	logger *slog.Logger
}

var _ domain.TransactionStore = (*MemoryStore)(nil)

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		txs:    make(map[string]*domain.Transaction),
		logger: logger,
	}
}

func (s *MemoryStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txs[tx.ID]; exists {
		s.logger.Warn("Duplicate transaction insert", "transaction_id", tx.ID)
		return errors.ErrDuplicateTransaction
	}
	s.txs[tx.ID] = tx.Clone()
	return nil
}

func (s *MemoryStore) ConditionalUpdateStatus(ctx context.Context, u domain.StatusUpdate) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, errors.Wrap(errors.InvalidInput, "invalid status transition", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[u.ID]
	if !ok || tx.Status != u.Expected {
		return false, nil
	}
	u.Apply(tx, time.Now().UTC())
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	return tx.Clone(), nil
}

func (s *MemoryStore) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Transaction, error) {
	s.mu.RLock()
	var txs []*domain.Transaction
	for _, tx := range s.txs {
		if tx.Status == status {
			txs = append(txs, tx.Clone())
		}
	}
	s.mu.RUnlock()

	sortByCreated(txs, false)
	return txs, nil
}

func (s *MemoryStore) FindAllSortedByCreatedDesc(ctx context.Context) ([]*domain.Transaction, error) {
	s.mu.RLock()
	txs := make([]*domain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		txs = append(txs, tx.Clone())
	}
	s.mu.RUnlock()

	sortByCreated(txs, true)
	return txs, nil
}

// sortByCreated orders by creation time, breaking ties on id so listings are stable.
func sortByCreated(txs []*domain.Transaction, desc bool) {
	sort.Slice(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if desc {
			a, b = b, a
		}
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
