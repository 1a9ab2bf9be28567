package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/service"
)

type LedgerHandler struct {
	ledgerService *service.LedgerService
}

func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type TransactionResponse struct {
	TransactionID   string    `json:"transaction_id"`
	AccountNumber   string    `json:"account_number"`
	TransactionType string    `json:"transaction_type"`
	Amount          string    `json:"amount"`
	Description     string    `json:"description"`
	BalanceAfter    string    `json:"balance_after"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:   tx.ID.String(),
		AccountNumber:   tx.AccountNumber,
		TransactionType: string(tx.Type),
		Amount:          tx.Amount.String(),
		Description:     tx.Description,
		BalanceAfter:    tx.BalanceAfter.String(),
		CreatedAt:       tx.CreatedAt,
	}
}

func parseAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return decimal.Zero, false
	}

	return amount, true
}

func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["account_number"]

	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}

	tx, err := h.ledgerService.Deposit(accountNumber, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["account_number"]

	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}

	tx, err := h.ledgerService.Withdraw(accountNumber, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

type TransferRequest struct {
	FromAccountNumber string `json:"from_account_number"`
	ToAccountNumber   string `json:"to_account_number"`
	Amount            string `json:"amount"`
	Description       string `json:"description,omitempty"`
	CustomerID        string `json:"customer_id,omitempty"`
}

type TransferResponse struct {
	TransferOut TransactionResponse `json:"transfer_out"`
	TransferIn  TransactionResponse `json:"transfer_in"`
}

func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return
	}

	outTx, inTx, err := h.ledgerService.Transfer(&service.TransferRequest{
		FromAccountNumber: req.FromAccountNumber,
		ToAccountNumber:   req.ToAccountNumber,
		Amount:            amount,
		Description:       req.Description,
		CustomerID:        req.CustomerID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferResponse{
		TransferOut: toTransactionResponse(outTx),
		TransferIn:  toTransactionResponse(inTx),
	})
}

func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["account_number"]
	owner := r.URL.Query().Get("customer_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, errors.NewAppError(errors.InvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	transactions, err := h.ledgerService.ListTransactions(accountNumber, owner, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		response = append(response, toTransactionResponse(tx))
	}

	writeJSON(w, http.StatusOK, response)
}
