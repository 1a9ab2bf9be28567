package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/events"
	"bank-ledger/internal/repository"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.TransferCompleted
}

func (p *capturingPublisher) Publish(topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(events.TransferCompleted))
	return nil
}

type ledgerFixture struct {
	store     *repository.MemStore
	accounts  *AccountService
	ledger    *LedgerService
	publisher *capturingPublisher
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := repository.NewMemStore()
	publisher := &capturingPublisher{}
	policy := AccountPolicy{
		SavingsMinimumBalance: dec("500"),
		CurrentOverdraftFloor: dec("0"),
	}
	return &ledgerFixture{
		store:     store,
		accounts:  NewAccountService(store, policy, testLogger()),
		ledger:    NewLedgerService(store, publisher, testLogger()),
		publisher: publisher,
	}
}

func (f *ledgerFixture) mustCreate(t *testing.T, customerID string, accountType domain.AccountType, opening string) *domain.Account {
	t.Helper()
	account, err := f.accounts.CreateAccount(customerID, accountType, dec(opening))
	require.NoError(t, err)
	return account
}

func (f *ledgerFixture) balance(t *testing.T, accountNumber string) decimal.Decimal {
	t.Helper()
	account, err := f.store.Accounts().GetAccount(accountNumber)
	require.NoError(t, err)
	return account.Balance
}

func (f *ledgerFixture) history(t *testing.T, accountNumber string) []*domain.Transaction {
	t.Helper()
	txs, err := f.store.Transactions().ListTransactions(accountNumber, 0)
	require.NoError(t, err)
	return txs
}

func TestDepositRecordsTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.mustCreate(t, "alice", domain.AccountSavings, "1000")

	tx, err := f.ledger.Deposit(account.AccountNumber, dec("250.50"))
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionDeposit, tx.Type)
	assert.True(t, tx.Amount.Equal(dec("250.50")))
	assert.True(t, tx.BalanceAfter.Equal(dec("1250.50")))
	assert.True(t, f.balance(t, account.AccountNumber).Equal(dec("1250.50")))
}

func TestDepositInvalidAmount(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.mustCreate(t, "alice", domain.AccountSavings, "1000")

	_, err := f.ledger.Deposit(account.AccountNumber, dec("0"))
	assert.Equal(t, errors.ErrInvalidAmount, err)
	assert.True(t, f.balance(t, account.AccountNumber).Equal(dec("1000")))
}

func TestDepositUnknownAccount(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.ledger.Deposit("999999999999", dec("10"))
	assert.Equal(t, errors.ErrAccountNotFound, err)
}

func TestWithdrawSavingsMinimumBalance(t *testing.T) {
	// Savings with floor 500, balance 1000: withdrawing 600 fails and
	// leaves 1000; withdrawing 500 succeeds and leaves exactly 500.
	f := newLedgerFixture(t)
	account := f.mustCreate(t, "alice", domain.AccountSavings, "1000")

	_, err := f.ledger.Withdraw(account.AccountNumber, dec("600"))
	require.Error(t, err)
	appErr := err.(*errors.AppError)
	assert.Equal(t, errors.InsufficientFunds, appErr.Code)
	assert.True(t, f.balance(t, account.AccountNumber).Equal(dec("1000")))

	tx, err := f.ledger.Withdraw(account.AccountNumber, dec("500"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionWithdrawal, tx.Type)
	assert.True(t, tx.BalanceAfter.Equal(dec("500")))
	assert.True(t, f.balance(t, account.AccountNumber).Equal(dec("500")))
}

func TestFailedWithdrawalLeavesNoLedgerRow(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.mustCreate(t, "alice", domain.AccountSavings, "1000")
	before := len(f.history(t, account.AccountNumber))

	_, err := f.ledger.Withdraw(account.AccountNumber, dec("600"))
	require.Error(t, err)
	assert.Len(t, f.history(t, account.AccountNumber), before)
}

func TestTransferHappyPath(t *testing.T) {
	// Current account scenario: floor 0, deposit 200, transfer 150.
	f := newLedgerFixture(t)
	src := f.mustCreate(t, "alice", domain.AccountCurrent, "0")
	dst := f.mustCreate(t, "bob", domain.AccountSavings, "1000")

	_, err := f.ledger.Deposit(src.AccountNumber, dec("200"))
	require.NoError(t, err)

	outTx, inTx, err := f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: src.AccountNumber,
		ToAccountNumber:   dst.AccountNumber,
		Amount:            dec("150"),
		Description:       "rent",
		CustomerID:        "alice",
	})
	require.NoError(t, err)

	assert.True(t, f.balance(t, src.AccountNumber).Equal(dec("50")))
	assert.True(t, f.balance(t, dst.AccountNumber).Equal(dec("1150")))

	assert.Equal(t, domain.TransactionTransferOut, outTx.Type)
	assert.Equal(t, domain.TransactionTransferIn, inTx.Type)
	assert.Equal(t, "Transfer to "+dst.AccountNumber+": rent", outTx.Description)
	assert.Equal(t, "Transfer from "+src.AccountNumber+": rent", inTx.Description)
	assert.True(t, outTx.BalanceAfter.Equal(dec("50")))
	assert.True(t, inTx.BalanceAfter.Equal(dec("1150")))

	// Relabeling must be visible in the stored ledger, not only in the
	// returned values.
	srcHistory := f.history(t, src.AccountNumber)
	require.NotEmpty(t, srcHistory)
	assert.Equal(t, domain.TransactionTransferOut, srcHistory[0].Type)
	assert.Equal(t, outTx.Description, srcHistory[0].Description)

	dstHistory := f.history(t, dst.AccountNumber)
	require.NotEmpty(t, dstHistory)
	assert.Equal(t, domain.TransactionTransferIn, dstHistory[0].Type)
}

func TestTransferDefaultDescription(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.mustCreate(t, "alice", domain.AccountCurrent, "300")
	dst := f.mustCreate(t, "bob", domain.AccountCurrent, "0")

	outTx, inTx, err := f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: src.AccountNumber,
		ToAccountNumber:   dst.AccountNumber,
		Amount:            dec("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Transfer to "+dst.AccountNumber+": Fund Transfer", outTx.Description)
	assert.Equal(t, "Transfer from "+src.AccountNumber+": Fund Transfer", inTx.Description)
}

func TestTransferInsufficientFundsRollsBack(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.mustCreate(t, "alice", domain.AccountSavings, "1000")
	dst := f.mustCreate(t, "bob", domain.AccountCurrent, "100")

	srcHistoryBefore := f.history(t, src.AccountNumber)
	dstHistoryBefore := f.history(t, dst.AccountNumber)

	// 600 would drop the savings account below its 500 floor.
	_, _, err := f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: src.AccountNumber,
		ToAccountNumber:   dst.AccountNumber,
		Amount:            dec("600"),
	})
	require.Error(t, err)
	assert.Equal(t, errors.InsufficientFunds, err.(*errors.AppError).Code)

	assert.True(t, f.balance(t, src.AccountNumber).Equal(dec("1000")))
	assert.True(t, f.balance(t, dst.AccountNumber).Equal(dec("100")))
	assert.Equal(t, srcHistoryBefore, f.history(t, src.AccountNumber))
	assert.Equal(t, dstHistoryBefore, f.history(t, dst.AccountNumber))
	assert.Empty(t, f.publisher.events)
}

func TestTransferSelfRejected(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.mustCreate(t, "alice", domain.AccountCurrent, "100")

	_, _, err := f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: account.AccountNumber,
		ToAccountNumber:   account.AccountNumber,
		Amount:            dec("10"),
	})
	assert.Equal(t, errors.ErrSelfTransfer, err)
}

func TestTransferUnknownDestination(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.mustCreate(t, "alice", domain.AccountCurrent, "100")

	_, _, err := f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: src.AccountNumber,
		ToAccountNumber:   "999999999999",
		Amount:            dec("10"),
	})
	assert.Equal(t, errors.ErrAccountNotFound, err)
	assert.True(t, f.balance(t, src.AccountNumber).Equal(dec("100")))
}

func TestTransferOwnershipEnforcedOnSource(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.mustCreate(t, "alice", domain.AccountCurrent, "100")
	dst := f.mustCreate(t, "bob", domain.AccountCurrent, "0")

	_, _, err := f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: src.AccountNumber,
		ToAccountNumber:   dst.AccountNumber,
		Amount:            dec("10"),
		CustomerID:        "mallory",
	})
	assert.Equal(t, errors.ErrAccountNotFound, err)

	// The destination owner is irrelevant: cross-owner transfers are
	// allowed when the caller owns the source.
	_, _, err = f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: src.AccountNumber,
		ToAccountNumber:   dst.AccountNumber,
		Amount:            dec("10"),
		CustomerID:        "alice",
	})
	assert.NoError(t, err)
}

func TestTransferPublishesEvent(t *testing.T) {
	f := newLedgerFixture(t)
	src := f.mustCreate(t, "alice", domain.AccountCurrent, "100")
	dst := f.mustCreate(t, "bob", domain.AccountCurrent, "0")

	outTx, inTx, err := f.ledger.Transfer(&TransferRequest{
		FromAccountNumber: src.AccountNumber,
		ToAccountNumber:   dst.AccountNumber,
		Amount:            dec("25"),
	})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, outTx.ID.String(), event.TransferOutID)
	assert.Equal(t, inTx.ID.String(), event.TransferInID)
	assert.Equal(t, src.AccountNumber, event.FromAccount)
	assert.Equal(t, dst.AccountNumber, event.ToAccount)
	assert.True(t, event.Amount.Equal(dec("25")))
}

func TestBalanceSumInvariantAcrossTransfers(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.mustCreate(t, "alice", domain.AccountCurrent, "1000")
	b := f.mustCreate(t, "bob", domain.AccountCurrent, "1000")

	for i := 0; i < 10; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		_, _, err := f.ledger.Transfer(&TransferRequest{
			FromAccountNumber: from.AccountNumber,
			ToAccountNumber:   to.AccountNumber,
			Amount:            dec("37.50"),
		})
		require.NoError(t, err)
	}

	sum := f.balance(t, a.AccountNumber).Add(f.balance(t, b.AccountNumber))
	assert.True(t, sum.Equal(dec("2000")), "transfers must neither create nor destroy value, got %s", sum)
}

func TestConcurrentOppositeTransfersDoNotDeadlock(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.mustCreate(t, "alice", domain.AccountCurrent, "10000")
	b := f.mustCreate(t, "bob", domain.AccountCurrent, "10000")

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	transferLoop := func(from, to string) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _, err := f.ledger.Transfer(&TransferRequest{
				FromAccountNumber: from,
				ToAccountNumber:   to,
				Amount:            dec("1"),
			})
			assert.NoError(t, err)
		}
	}
	go transferLoop(a.AccountNumber, b.AccountNumber)
	go transferLoop(b.AccountNumber, a.AccountNumber)
	wg.Wait()

	sum := f.balance(t, a.AccountNumber).Add(f.balance(t, b.AccountNumber))
	assert.True(t, sum.Equal(dec("20000")))
}

func TestListTransactionsOrderAndLimit(t *testing.T) {
	f := newLedgerFixture(t)
	account := f.mustCreate(t, "alice", domain.AccountCurrent, "0")

	for _, amount := range []string{"10", "20", "30"} {
		_, err := f.ledger.Deposit(account.AccountNumber, dec(amount))
		require.NoError(t, err)
	}

	txs, err := f.ledger.ListTransactions(account.AccountNumber, "", 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	// Most recent first, insertion order breaking ties.
	assert.True(t, txs[0].Amount.Equal(dec("30")))
	assert.True(t, txs[1].Amount.Equal(dec("20")))
	assert.True(t, txs[2].Amount.Equal(dec("10")))

	limited, err := f.ledger.ListTransactions(account.AccountNumber, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = f.ledger.ListTransactions(account.AccountNumber, "mallory", 0)
	assert.Equal(t, errors.ErrAccountNotFound, err)
}
