package service

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// AccountPolicy carries the per-variant minimum-balance floors. The
// current floor may be negative, which grants an overdraft limit.
type AccountPolicy struct {
	SavingsMinimumBalance decimal.Decimal
	CurrentOverdraftFloor decimal.Decimal
}

func (p AccountPolicy) floorFor(accountType domain.AccountType) decimal.Decimal {
	if accountType == domain.AccountSavings {
		return p.SavingsMinimumBalance
	}
	return p.CurrentOverdraftFloor
}

type AccountService struct {
	store  domain.Store
	policy AccountPolicy
	logger *slog.Logger
}

func NewAccountService(store domain.Store, policy AccountPolicy, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		policy: policy,
		logger: logger,
	}
}

// CreateAccount opens an account with zero balance and credits the opening
// deposit through the ledger, so the opening amount is itself a recorded
// DEPOSIT row rather than a silent field assignment.
func (s *AccountService) CreateAccount(customerID string, accountType domain.AccountType, openingDeposit decimal.Decimal) (*domain.Account, error) {
	s.logger.Info("Creating account",
		"customer_id", customerID,
		"account_type", accountType,
		"opening_deposit", openingDeposit)

	if customerID == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "customer_id is required")
	}
	if !accountType.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown account type %q", accountType)
	}
	if openingDeposit.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	account := &domain.Account{
		AccountNumber:  newAccountNumber(),
		CustomerID:     customerID,
		Type:           accountType,
		Balance:        decimal.Zero,
		MinimumBalance: s.policy.floorFor(accountType),
	}

	err := s.store.WithTransaction(func(tx domain.Store) error {
		if err := tx.Accounts().CreateAccount(account); err != nil {
			return err
		}
		if openingDeposit.IsZero() {
			return nil
		}
		if err := account.Deposit(openingDeposit); err != nil {
			return err
		}
		if err := tx.Accounts().UpdateAccountBalance(account.AccountNumber, account.Balance); err != nil {
			return err
		}
		return tx.Transactions().CreateTransaction(&domain.Transaction{
			ID:            uuid.New(),
			AccountNumber: account.AccountNumber,
			Type:          domain.TransactionDeposit,
			Amount:        openingDeposit,
			Description:   "Opening deposit",
			BalanceAfter:  account.Balance,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_number", account.AccountNumber, "account_type", account.Type)
	return account, nil
}

// GetAccount resolves an active account. When owner is non-empty the
// account must belong to that customer; a mismatch is reported as not
// found, same as a miss.
func (s *AccountService) GetAccount(accountNumber, owner string) (*domain.Account, error) {
	account, err := s.store.Accounts().GetAccount(accountNumber)
	if err != nil {
		return nil, err
	}
	if owner != "" && account.CustomerID != owner {
		return nil, errors.ErrAccountNotFound
	}
	return account, nil
}

// CloseAccount soft-deletes: the row stays, every lookup stops seeing it.
func (s *AccountService) CloseAccount(accountNumber, owner string) error {
	return s.store.WithTransaction(func(tx domain.Store) error {
		account, err := tx.Accounts().GetAccountForUpdate(accountNumber)
		if err != nil {
			return err
		}
		if owner != "" && account.CustomerID != owner {
			return errors.ErrAccountNotFound
		}
		return tx.Accounts().DeactivateAccount(accountNumber)
	})
}

// Dashboard aggregates a customer's active accounts: total balance across
// variants plus the most recent transactions merged across all accounts.
type Dashboard struct {
	Accounts           []*domain.Account
	TotalBalance       decimal.Decimal
	RecentTransactions []*domain.Transaction
}

const dashboardRecentLimit = 10

func (s *AccountService) GetDashboard(customerID string) (*Dashboard, error) {
	if customerID == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "customer_id is required")
	}

	accounts, err := s.store.Accounts().GetCustomerAccounts(customerID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	numbers := make([]string, 0, len(accounts))
	for _, account := range accounts {
		total = total.Add(account.Balance)
		numbers = append(numbers, account.AccountNumber)
	}

	recent, err := s.store.Transactions().ListRecentByAccounts(numbers, dashboardRecentLimit)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Accounts:           accounts,
		TotalBalance:       total,
		RecentTransactions: recent,
	}, nil
}

// newAccountNumber returns a 12-digit account number. Uniqueness is
// enforced by the store's primary key; a collision surfaces as
// duplicate_account and the caller may retry.
func newAccountNumber() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand failure means no usable entropy source
	}
	n := binary.BigEndian.Uint64(b[:]) % 1_000_000_000_000
	return fmt.Sprintf("%012d", n)
}
