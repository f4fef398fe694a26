package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"algo-transfers/internal/domain"
	"algo-transfers/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

// NewTransactionRepository returns the PostgreSQL-backed TransactionStore.
func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionStore {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

const selectTransactionColumns = `
	SELECT id, sender, recipient, amount, note, status, confirmed_round, failure_reason, created_at, updated_at
	FROM transactions`

func (r *transactionRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, sender, recipient, amount, note, status, confirmed_round, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}

	var confirmedRound interface{}
	if tx.ConfirmedRound != nil {
		confirmedRound = int64(*tx.ConfirmedRound)
	}

	_, err := r.db.ExecContext(ctx,
		query,
		tx.ID,
		tx.Sender,
		tx.Recipient,
		strconv.FormatUint(tx.Amount, 10),
		tx.Note,
		tx.Status,
		confirmedRound,
		tx.FailureReason,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			r.logger.Warn("Duplicate transaction insert", "transaction_id", tx.ID)
			return errors.ErrDuplicateTransaction
		}
		r.logger.Error("Failed to insert transaction", "transaction_id", tx.ID, "error", err)
		return errors.Wrap(errors.InternalError, "failed to insert transaction", err)
	}

	r.logger.Info("Transaction recorded", "transaction_id", tx.ID, "status", tx.Status)
	return nil
}

func (r *transactionRepository) ConditionalUpdateStatus(ctx context.Context, u domain.StatusUpdate) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, errors.Wrap(errors.InvalidInput, "invalid status transition", err)
	}

	query := `
		UPDATE transactions
		SET status = $1, confirmed_round = $2, failure_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	var confirmedRound interface{}
	failureReason := u.FailureReason
	if u.ConfirmedRound != nil {
		confirmedRound = int64(*u.ConfirmedRound)
		failureReason = ""
	}

	result, err := r.db.ExecContext(ctx, query, u.New, confirmedRound, failureReason, time.Now().UTC(), u.ID, u.Expected)
	if err != nil {
		r.logger.Error("Failed to update transaction status",
			"transaction_id", u.ID, "status", u.New, "error", err)
		return false, errors.Wrap(errors.InternalError, "failed to update transaction status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(errors.InternalError, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		r.logger.Debug("Status precondition no longer holds", "transaction_id", u.ID, "expected", u.Expected)
		return false, nil
	}

	r.logger.Info("Transaction status updated", "transaction_id", u.ID, "status", u.New)
	return true, nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransactionColumns+` WHERE id = $1`, id)

	tx, err := scanTransaction(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.Wrap(errors.InternalError, "failed to get transaction", err)
	}
	return tx, nil
}

func (r *transactionRepository) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Transaction, error) {
	return r.query(ctx, selectTransactionColumns+` WHERE status = $1 ORDER BY created_at ASC, id ASC`, status)
}

func (r *transactionRepository) FindAllSortedByCreatedDesc(ctx context.Context) ([]*domain.Transaction, error) {
	return r.query(ctx, selectTransactionColumns+` ORDER BY created_at DESC, id DESC`)
}

func (r *transactionRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, errors.Wrap(errors.InternalError, "failed to list transactions", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.Wrap(errors.InternalError, "failed to scan transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.InternalError, "failed to iterate transactions", err)
	}
	return txs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var amountStr string
	var confirmedRound sql.NullInt64

	err := row.Scan(
		&transaction.ID,
		&transaction.Sender,
		&transaction.Recipient,
		&amountStr,
		&transaction.Note,
		&transaction.Status,
		&confirmedRound,
		&transaction.FailureReason,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	if !amount.BigInt().IsUint64() {
		return nil, errors.NewAppErrorf(errors.InternalError, "stored amount %s does not fit in microAlgos", amountStr)
	}
	transaction.Amount = amount.BigInt().Uint64()

	if confirmedRound.Valid {
		round := uint64(confirmedRound.Int64)
		transaction.ConfirmedRound = &round
	}
	if len(transaction.Note) == 0 {
		transaction.Note = nil
	}
	return &transaction, nil
}
