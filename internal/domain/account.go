package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/internal/errors"
)

// AccountType discriminates the two account variants. The variant only
// changes the minimum-balance policy applied on withdrawal.
type AccountType string

const (
	AccountSavings AccountType = "savings"
	AccountCurrent AccountType = "current"
)

func (t AccountType) Valid() bool {
	return t == AccountSavings || t == AccountCurrent
}

// Account is a single bank account row. Balance is mutated only through
// Deposit and Withdraw; every completed mutation must leave
// Balance >= MinimumBalance.
type Account struct {
	AccountNumber  string          `json:"account_number"`
	CustomerID     string          `json:"customer_id"`
	Type           AccountType     `json:"account_type"`
	Balance        decimal.Decimal `json:"balance"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Deposit credits the account. Amount must be positive; there is no upper
// bound.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw debits the account, enforcing the variant's floor. Savings
// accounts carry a positive floor, current accounts a zero or negative
// (overdraft) one; the check is the same either way.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if a.Balance.Sub(amount).LessThan(a.MinimumBalance) {
		return errors.ErrInsufficientFunds.WithDetails(
			"available balance " + a.Available().String())
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Available is the amount withdrawable without breaching the floor.
func (a *Account) Available() decimal.Decimal {
	return a.Balance.Sub(a.MinimumBalance)
}

type AccountRepository interface {
	CreateAccount(account *Account) error
	GetAccount(accountNumber string) (*Account, error)
	GetAccountForUpdate(accountNumber string) (*Account, error)
	GetCustomerAccounts(customerID string) ([]*Account, error)
	UpdateAccountBalance(accountNumber string, newBalance decimal.Decimal) error
	DeactivateAccount(accountNumber string) error
}

// Store is the unit-of-work boundary shared by all ledger operations.
// WithTransaction runs fn against a store view whose mutations commit
// together or not at all.
type Store interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	WithTransaction(fn func(Store) error) error
}
