package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"algo-transfers/internal/domain"
	"algo-transfers/internal/errors"
)

var bucketTransactions = []byte("transactions")

// BoltStore keeps transaction records in a single bbolt file, one JSON value
// per id. Every write runs in one bolt update transaction.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

var _ domain.TransactionStore = (*BoltStore)(nil)

func NewBoltStore(path string, logger *slog.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTransactions); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketTransactions, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}

	err := s.db.Update(func(btx *bolt.Tx) error {
		b := btx.Bucket(bucketTransactions)
		key := []byte(tx.ID)
		if b.Get(key) != nil {
			return errors.ErrDuplicateTransaction
		}

		data, err := json.Marshal(tx)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	if err != nil {
		if errors.IsCode(err, errors.DuplicateTransaction) {
			s.logger.Warn("Duplicate transaction insert", "transaction_id", tx.ID)
			return err
		}
		s.logger.Error("Failed to insert transaction", "transaction_id", tx.ID, "error", err)
		return errors.Wrap(errors.InternalError, "failed to insert transaction", err)
	}

	s.logger.Info("Transaction recorded", "transaction_id", tx.ID, "status", tx.Status)
	return nil
}

func (s *BoltStore) ConditionalUpdateStatus(ctx context.Context, u domain.StatusUpdate) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, errors.Wrap(errors.InvalidInput, "invalid status transition", err)
	}

	applied := false
	err := s.db.Update(func(btx *bolt.Tx) error {
		b := btx.Bucket(bucketTransactions)
		data := b.Get([]byte(u.ID))
		if data == nil {
			return nil
		}

		var tx domain.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return err
		}
		if tx.Status != u.Expected {
			return nil
		}

		u.Apply(&tx, time.Now().UTC())
		updated, err := json.Marshal(&tx)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(u.ID), updated); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update transaction status",
			"transaction_id", u.ID, "status", u.New, "error", err)
		return false, errors.Wrap(errors.InternalError, "failed to update transaction status", err)
	}

	if applied {
		s.logger.Info("Transaction status updated", "transaction_id", u.ID, "status", u.New)
	}
	return applied, nil
}

func (s *BoltStore) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.db.View(func(btx *bolt.Tx) error {
		data := btx.Bucket(bucketTransactions).Get([]byte(id))
		if data == nil {
			return nil
		}
		tx = &domain.Transaction{}
		return json.Unmarshal(data, tx)
	})
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to get transaction", err)
	}
	if tx == nil {
		return nil, errors.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *BoltStore) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Transaction, error) {
	txs, err := s.list(func(tx *domain.Transaction) bool { return tx.Status == status })
	if err != nil {
		return nil, err
	}
	sortByCreated(txs, false)
	return txs, nil
}

func (s *BoltStore) FindAllSortedByCreatedDesc(ctx context.Context) ([]*domain.Transaction, error) {
	txs, err := s.list(func(*domain.Transaction) bool { return true })
	if err != nil {
		return nil, err
	}
	sortByCreated(txs, true)
	return txs, nil
}

func (s *BoltStore) list(keep func(*domain.Transaction) bool) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	err := s.db.View(func(btx *bolt.Tx) error {
		return btx.Bucket(bucketTransactions).ForEach(func(k, v []byte) error {
			var tx domain.Transaction
			if err := json.Unmarshal(v, &tx); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			if keep(&tx) {
				txs = append(txs, &tx)
			}
			return nil
		})
	})
	if err != nil {
		s.logger.Error("Failed to list transactions", "error", err)
		return nil, errors.Wrap(errors.InternalError, "failed to list transactions", err)
	}
	return txs, nil
}
