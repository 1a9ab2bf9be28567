package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit     TransactionType = "DEPOSIT"
	TransactionWithdrawal  TransactionType = "WITHDRAWAL"
	TransactionTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTransferOut TransactionType = "TRANSFER_OUT"
)

// Transaction is one ledger row: a single balance-affecting event against
// a single account. Rows are append-only; the only permitted update is the
// relabel a transfer performs on the two rows it just wrote.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	AccountNumber string          `json:"account_number"`
	Type          TransactionType `json:"transaction_type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

type TransactionRepository interface {
	CreateTransaction(tx *Transaction) error
	// ListTransactions returns the account's ledger most-recent-first.
	// limit <= 0 means no limit.
	ListTransactions(accountNumber string, limit int) ([]*Transaction, error)
	// ListRecentByAccounts merges the ledgers of several accounts,
	// most-recent-first, truncated to limit.
	ListRecentByAccounts(accountNumbers []string, limit int) ([]*Transaction, error)
	// RelabelTransaction rewrites type and description of a just-created
	// row. Used exclusively by the transfer protocol.
	RelabelTransaction(id uuid.UUID, txType TransactionType, description string) error
}
