package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/events"
)

// LedgerService owns the balance-mutating operations. Deposit, Withdraw
// and Transfer each run inside one store unit of work; a failure anywhere
// inside rolls back every row the operation touched.
type LedgerService struct {
	store     domain.Store
	publisher events.Publisher
	logger    *slog.Logger
}

func NewLedgerService(store domain.Store, publisher events.Publisher, logger *slog.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *LedgerService) Deposit(accountNumber string, amount decimal.Decimal) (*domain.Transaction, error) {
	s.logger.Info("Processing deposit", "account_number", accountNumber, "amount", amount)

	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var tx *domain.Transaction
	err := s.store.WithTransaction(func(uow domain.Store) error {
		var err error
		tx, err = applyDeposit(uow, accountNumber, amount, "Deposit")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deposit completed", "transaction_id", tx.ID, "account_number", accountNumber)
	return tx, nil
}

func (s *LedgerService) Withdraw(accountNumber string, amount decimal.Decimal) (*domain.Transaction, error) {
	s.logger.Info("Processing withdrawal", "account_number", accountNumber, "amount", amount)

	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var tx *domain.Transaction
	err := s.store.WithTransaction(func(uow domain.Store) error {
		var err error
		tx, err = applyWithdrawal(uow, accountNumber, amount, "Withdrawal")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal completed", "transaction_id", tx.ID, "account_number", accountNumber)
	return tx, nil
}

type TransferRequest struct {
	FromAccountNumber string
	ToAccountNumber   string
	Amount            decimal.Decimal
	Description       string
	// CustomerID, when set, must own the source account. The destination
	// may belong to anyone.
	CustomerID string
}

const defaultTransferDescription = "Fund Transfer"

// Transfer moves amount between two accounts as one atomic unit: withdraw
// from the source, deposit to the destination, then relabel the two ledger
// rows as TRANSFER_OUT / TRANSFER_IN with descriptions referencing the
// counterparty. Any failure rolls the whole unit back, so a debit is never
// durable without its matching credit.
func (s *LedgerService) Transfer(req *TransferRequest) (*domain.Transaction, *domain.Transaction, error) {
	s.logger.Info("Processing transfer",
		"from_account", req.FromAccountNumber,
		"to_account", req.ToAccountNumber,
		"amount", req.Amount)

	if req.FromAccountNumber == req.ToAccountNumber {
		return nil, nil, errors.ErrSelfTransfer
	}
	if !req.Amount.IsPositive() {
		return nil, nil, errors.ErrInvalidAmount
	}

	description := req.Description
	if description == "" {
		description = defaultTransferDescription
	}

	var outTx, inTx *domain.Transaction
	err := s.store.WithTransaction(func(uow domain.Store) error {
		// Lock both rows before touching either balance, in ascending
		// account-number order so opposite-direction transfers cannot
		// deadlock.
		locked := make(map[string]*domain.Account, 2)
		for _, number := range lockOrder(req.FromAccountNumber, req.ToAccountNumber) {
			account, err := uow.Accounts().GetAccountForUpdate(number)
			if err != nil {
				return err
			}
			locked[number] = account
		}

		from := locked[req.FromAccountNumber]
		if req.CustomerID != "" && from.CustomerID != req.CustomerID {
			return errors.ErrAccountNotFound
		}

		var err error
		if outTx, err = applyWithdrawalTo(uow, from, req.Amount, "Withdrawal"); err != nil {
			return err
		}
		if inTx, err = applyDepositTo(uow, locked[req.ToAccountNumber], req.Amount, "Deposit"); err != nil {
			return err
		}

		// Relabel the two rows just written; the sole post-creation
		// mutation a transaction ever receives.
		outTx.Type = domain.TransactionTransferOut
		outTx.Description = "Transfer to " + req.ToAccountNumber + ": " + description
		if err := uow.Transactions().RelabelTransaction(outTx.ID, outTx.Type, outTx.Description); err != nil {
			return err
		}

		inTx.Type = domain.TransactionTransferIn
		inTx.Description = "Transfer from " + req.FromAccountNumber + ": " + description
		return uow.Transactions().RelabelTransaction(inTx.ID, inTx.Type, inTx.Description)
	})
	if err != nil {
		s.logger.Error("Transfer failed",
			"from_account", req.FromAccountNumber,
			"to_account", req.ToAccountNumber,
			"error", err)
		return nil, nil, err
	}

	s.logger.Info("Transfer completed",
		"transfer_out_id", outTx.ID,
		"transfer_in_id", inTx.ID,
		"amount", req.Amount)

	// Best-effort notification; the transfer is already durable.
	event := events.TransferCompleted{
		TransferOutID: outTx.ID.String(),
		TransferInID:  inTx.ID.String(),
		FromAccount:   req.FromAccountNumber,
		ToAccount:     req.ToAccountNumber,
		Amount:        req.Amount,
		Description:   description,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(events.TopicTransferCompleted, event); err != nil {
		s.logger.Warn("Failed to publish transfer event", "transfer_out_id", outTx.ID, "error", err)
	}

	return outTx, inTx, nil
}

// ListTransactions returns the account's ledger most-recent-first,
// verifying the account exists (and optionally its owner) first.
func (s *LedgerService) ListTransactions(accountNumber, owner string, limit int) ([]*domain.Transaction, error) {
	account, err := s.store.Accounts().GetAccount(accountNumber)
	if err != nil {
		return nil, err
	}
	if owner != "" && account.CustomerID != owner {
		return nil, errors.ErrAccountNotFound
	}
	return s.store.Transactions().ListTransactions(accountNumber, limit)
}

func lockOrder(a, b string) []string {
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}

func applyDeposit(uow domain.Store, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	account, err := uow.Accounts().GetAccountForUpdate(accountNumber)
	if err != nil {
		return nil, err
	}
	return applyDepositTo(uow, account, amount, description)
}

func applyDepositTo(uow domain.Store, account *domain.Account, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if err := account.Deposit(amount); err != nil {
		return nil, err
	}
	return recordMutation(uow, account, domain.TransactionDeposit, amount, description)
}

func applyWithdrawal(uow domain.Store, accountNumber string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	account, err := uow.Accounts().GetAccountForUpdate(accountNumber)
	if err != nil {
		return nil, err
	}
	return applyWithdrawalTo(uow, account, amount, description)
}

func applyWithdrawalTo(uow domain.Store, account *domain.Account, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if err := account.Withdraw(amount); err != nil {
		return nil, err
	}
	return recordMutation(uow, account, domain.TransactionWithdrawal, amount, description)
}

func recordMutation(uow domain.Store, account *domain.Account, txType domain.TransactionType, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if err := uow.Accounts().UpdateAccountBalance(account.AccountNumber, account.Balance); err != nil {
		return nil, err
	}
	tx := &domain.Transaction{
		ID:            uuid.New(),
		AccountNumber: account.AccountNumber,
		Type:          txType,
		Amount:        amount,
		Description:   description,
		BalanceAfter:  account.Balance,
	}
	if err := uow.Transactions().CreateTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}
