package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// All lookups are restricted to active rows: a deactivated account is
// invisible to every ledger operation.
type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `account_number, customer_id, account_type, balance, minimum_balance, is_active, created_at, updated_at`

func (r *accountRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (account_number, customer_id, account_type, balance, minimum_balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
	`

	now := time.Now().UTC()
	_, err := r.db.Exec(
		query,
		account.AccountNumber,
		account.CustomerID,
		string(account.Type),
		account.Balance.String(),
		account.MinimumBalance.String(),
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				r.logger.Warn("Duplicate account number", "account_number", account.AccountNumber)
				return errors.ErrDuplicateAccount
			}
		}
		r.logger.Error("Failed to create account", "account_number", account.AccountNumber, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.IsActive = true
	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created", "account_number", account.AccountNumber, "account_type", account.Type)
	return nil
}

func (r *accountRepository) GetAccount(accountNumber string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE account_number = $1 AND is_active
	`

	return r.scanAccount(query, accountNumber)
}

// GetAccountForUpdate locks the row for the rest of the enclosing
// transaction. Callers locking more than one account must do so in
// ascending account-number order.
func (r *accountRepository) GetAccountForUpdate(accountNumber string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE account_number = $1 AND is_active FOR UPDATE
	`

	return r.scanAccount(query, accountNumber)
}

func (r *accountRepository) scanAccount(query string, accountNumber string) (*domain.Account, error) {
	row := r.db.QueryRow(query, accountNumber)

	account, err := scanAccountRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_number", accountNumber)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_number", accountNumber, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	return account, nil
}

func scanAccountRow(scan func(dest ...interface{}) error) (*domain.Account, error) {
	var account domain.Account
	var accountType, balanceStr, minimumStr string

	err := scan(
		&account.AccountNumber,
		&account.CustomerID,
		&accountType,
		&balanceStr,
		&minimumStr,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Type = domain.AccountType(accountType)

	if account.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return nil, err
	}
	if account.MinimumBalance, err = decimal.NewFromString(minimumStr); err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) GetCustomerAccounts(customerID string) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE customer_id = $1 AND is_active
		ORDER BY created_at, account_number
	`

	rows, err := r.db.Query(query, customerID)
	if err != nil {
		r.logger.Error("Failed to list customer accounts", "customer_id", customerID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccountRow(rows.Scan)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account").WithDetails(err.Error())
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}

	return accounts, nil
}

func (r *accountRepository) UpdateAccountBalance(accountNumber string, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE account_number = $3 AND is_active
	`

	result, err := r.db.Exec(query, newBalance.String(), time.Now().UTC(), accountNumber)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_number", accountNumber, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_number", accountNumber)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account balance updated", "account_number", accountNumber, "new_balance", newBalance)
	return nil
}

func (r *accountRepository) DeactivateAccount(accountNumber string) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, updated_at = $1
		WHERE account_number = $2 AND is_active
	`

	result, err := r.db.Exec(query, time.Now().UTC(), accountNumber)
	if err != nil {
		r.logger.Error("Failed to deactivate account", "account_number", accountNumber, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to deactivate account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account deactivated", "account_number", accountNumber)
	return nil
}
