package repository

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// MemStore is an in-memory domain.Store used by unit tests and the local
// dev backend. A single mutex serializes units of work; WithTransaction
// snapshots the state and restores it when the callback fails, so the
// rollback guarantee matches the Postgres store.
type MemStore struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	ledger   []domain.Transaction
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[string]domain.Account),
	}
}

var _ domain.Store = (*MemStore)(nil)

func (s *MemStore) Accounts() domain.AccountRepository {
	return &memAccountRepo{store: s, lock: true}
}

func (s *MemStore) Transactions() domain.TransactionRepository {
	return &memTransactionRepo{store: s, lock: true}
}

func (s *MemStore) WithTransaction(fn func(domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapAccounts := maps.Clone(s.accounts)
	snapLedger := slices.Clone(s.ledger)

	if err := fn(memTxStore{store: s}); err != nil {
		s.accounts = snapAccounts
		s.ledger = snapLedger
		return err
	}
	return nil
}

// memTxStore is the view handed to WithTransaction callbacks: the mutex is
// already held, so its repositories skip locking and a nested
// WithTransaction joins the unit of work in flight.
type memTxStore struct {
	store *MemStore
}

func (t memTxStore) Accounts() domain.AccountRepository {
	return &memAccountRepo{store: t.store}
}

func (t memTxStore) Transactions() domain.TransactionRepository {
	return &memTransactionRepo{store: t.store}
}

func (t memTxStore) WithTransaction(fn func(domain.Store) error) error {
	return fn(t)
}

type memAccountRepo struct {
	store *MemStore
	lock  bool
}

func (r *memAccountRepo) locked(fn func() error) error {
	if r.lock {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	return fn()
}

func (r *memAccountRepo) CreateAccount(account *domain.Account) error {
	return r.locked(func() error {
		if _, exists := r.store.accounts[account.AccountNumber]; exists {
			return errors.ErrDuplicateAccount
		}
		now := time.Now().UTC()
		account.IsActive = true
		account.CreatedAt = now
		account.UpdatedAt = now
		r.store.accounts[account.AccountNumber] = *account
		return nil
	})
}

func (r *memAccountRepo) getActive(accountNumber string) (domain.Account, error) {
	account, ok := r.store.accounts[accountNumber]
	if !ok || !account.IsActive {
		return domain.Account{}, errors.ErrAccountNotFound
	}
	return account, nil
}

func (r *memAccountRepo) GetAccount(accountNumber string) (*domain.Account, error) {
	var out *domain.Account
	err := r.locked(func() error {
		account, err := r.getActive(accountNumber)
		if err != nil {
			return err
		}
		out = &account
		return nil
	})
	return out, err
}

// The store mutex already serializes units of work, so a lock-for-update
// is just a read here.
func (r *memAccountRepo) GetAccountForUpdate(accountNumber string) (*domain.Account, error) {
	return r.GetAccount(accountNumber)
}

func (r *memAccountRepo) GetCustomerAccounts(customerID string) ([]*domain.Account, error) {
	var out []*domain.Account
	err := r.locked(func() error {
		for _, account := range r.store.accounts {
			if account.CustomerID == customerID && account.IsActive {
				a := account
				out = append(out, &a)
			}
		}
		slices.SortFunc(out, func(a, b *domain.Account) int {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Compare(b.CreatedAt)
			}
			return strings.Compare(a.AccountNumber, b.AccountNumber)
		})
		return nil
	})
	return out, err
}

func (r *memAccountRepo) UpdateAccountBalance(accountNumber string, newBalance decimal.Decimal) error {
	return r.locked(func() error {
		account, err := r.getActive(accountNumber)
		if err != nil {
			return err
		}
		account.Balance = newBalance
		account.UpdatedAt = time.Now().UTC()
		r.store.accounts[accountNumber] = account
		return nil
	})
}

func (r *memAccountRepo) DeactivateAccount(accountNumber string) error {
	return r.locked(func() error {
		account, err := r.getActive(accountNumber)
		if err != nil {
			return err
		}
		account.IsActive = false
		account.UpdatedAt = time.Now().UTC()
		r.store.accounts[accountNumber] = account
		return nil
	})
}

type memTransactionRepo struct {
	store *MemStore
	lock  bool
}

func (r *memTransactionRepo) locked(fn func() error) error {
	if r.lock {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	return fn()
}

func (r *memTransactionRepo) CreateTransaction(tx *domain.Transaction) error {
	return r.locked(func() error {
		tx.CreatedAt = time.Now().UTC()
		r.store.ledger = append(r.store.ledger, *tx)
		return nil
	})
}

func (r *memTransactionRepo) ListTransactions(accountNumber string, limit int) ([]*domain.Transaction, error) {
	return r.list([]string{accountNumber}, limit)
}

func (r *memTransactionRepo) ListRecentByAccounts(accountNumbers []string, limit int) ([]*domain.Transaction, error) {
	return r.list(accountNumbers, limit)
}

func (r *memTransactionRepo) list(accountNumbers []string, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	err := r.locked(func() error {
		// The slice is in insertion order; walk it backwards for
		// most-recent-first with insertion-order tie-break.
		for i := len(r.store.ledger) - 1; i >= 0; i-- {
			tx := r.store.ledger[i]
			if !slices.Contains(accountNumbers, tx.AccountNumber) {
				continue
			}
			out = append(out, &tx)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *memTransactionRepo) RelabelTransaction(id uuid.UUID, txType domain.TransactionType, description string) error {
	return r.locked(func() error {
		for i := range r.store.ledger {
			if r.store.ledger[i].ID == id {
				r.store.ledger[i].Type = txType
				r.store.ledger[i].Description = description
				return nil
			}
		}
		return errors.NewAppError(errors.InternalError, "transaction to relabel does not exist")
	})
}
