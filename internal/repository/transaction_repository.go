package repository

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, account_number, transaction_type, amount, description, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()

	_, err := r.db.Exec(
		query,
		tx.ID,
		tx.AccountNumber,
		string(tx.Type),
		tx.Amount.String(),
		tx.Description,
		tx.BalanceAfter.String(),
		now,
	)

	if err != nil {
		r.logger.Error("Failed to create transaction",
			"account_number", tx.AccountNumber,
			"transaction_type", tx.Type,
			"amount", tx.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	tx.CreatedAt = now
	r.logger.Info("Transaction recorded", "transaction_id", tx.ID, "account_number", tx.AccountNumber, "transaction_type", tx.Type)
	return nil
}

// Ties on created_at are broken by seq, the insertion order.
const transactionSelect = `
	SELECT id, account_number, transaction_type, amount, description, balance_after, created_at
	FROM transactions
`

func (r *transactionRepository) ListTransactions(accountNumber string, limit int) ([]*domain.Transaction, error) {
	query := transactionSelect + `
		WHERE account_number = $1
		ORDER BY created_at DESC, seq DESC
	`

	args := []interface{}{accountNumber}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	return r.queryTransactions(query, args...)
}

func (r *transactionRepository) ListRecentByAccounts(accountNumbers []string, limit int) ([]*domain.Transaction, error) {
	if len(accountNumbers) == 0 {
		return nil, nil
	}

	query := transactionSelect + `
		WHERE account_number = ANY($1)
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`

	return r.queryTransactions(query, pq.Array(accountNumbers), limit)
}

func (r *transactionRepository) queryTransactions(query string, args ...interface{}) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var txType, amountStr, balanceAfterStr string

		err := rows.Scan(
			&tx.ID,
			&tx.AccountNumber,
			&txType,
			&amountStr,
			&tx.Description,
			&balanceAfterStr,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan transaction").WithDetails(err.Error())
		}

		tx.Type = domain.TransactionType(txType)
		if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
		}
		if tx.BalanceAfter, err = decimal.NewFromString(balanceAfterStr); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse balance snapshot").WithDetails(err.Error())
		}

		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}

	return transactions, nil
}

func (r *transactionRepository) RelabelTransaction(id uuid.UUID, txType domain.TransactionType, description string) error {
	query := `UPDATE transactions SET transaction_type = $1, description = $2 WHERE id = $3`

	result, err := r.db.Exec(query, string(txType), description, id)
	if err != nil {
		r.logger.Error("Failed to relabel transaction",
			"transaction_id", id, "transaction_type", txType, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to relabel transaction").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.NewAppError(errors.InternalError, "transaction to relabel does not exist")
	}

	r.logger.Info("Transaction relabeled", "transaction_id", id, "transaction_type", txType)
	return nil
}
