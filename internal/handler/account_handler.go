package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	CustomerID     string `json:"customer_id"`
	AccountType    string `json:"account_type"`
	OpeningDeposit string `json:"opening_deposit"`
}

type AccountResponse struct {
	AccountNumber  string    `json:"account_number"`
	CustomerID     string    `json:"customer_id"`
	AccountType    string    `json:"account_type"`
	Balance        string    `json:"balance"`
	MinimumBalance string    `json:"minimum_balance"`
	CreatedAt      time.Time `json:"created_at"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountNumber:  account.AccountNumber,
		CustomerID:     account.CustomerID,
		AccountType:    string(account.Type),
		Balance:        account.Balance.String(),
		MinimumBalance: account.MinimumBalance.String(),
		CreatedAt:      account.CreatedAt,
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	openingDeposit := decimal.Zero
	if req.OpeningDeposit != "" {
		var err error
		openingDeposit, err = decimal.NewFromString(req.OpeningDeposit)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid opening_deposit format"))
			return
		}
	}

	account, err := h.accountService.CreateAccount(req.CustomerID, domain.AccountType(req.AccountType), openingDeposit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountNumber := vars["account_number"]
	owner := r.URL.Query().Get("customer_id")

	account, err := h.accountService.GetAccount(accountNumber, owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountNumber := vars["account_number"]
	owner := r.URL.Query().Get("customer_id")

	if err := h.accountService.CloseAccount(accountNumber, owner); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"account_number": accountNumber, "status": "closed"})
}

type DashboardResponse struct {
	Accounts           []AccountResponse     `json:"accounts"`
	TotalBalance       string                `json:"total_balance"`
	RecentTransactions []TransactionResponse `json:"recent_transactions"`
}

func (h *AccountHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	customerID := vars["customer_id"]

	dashboard, err := h.accountService.GetDashboard(customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := DashboardResponse{
		Accounts:           make([]AccountResponse, 0, len(dashboard.Accounts)),
		TotalBalance:       dashboard.TotalBalance.String(),
		RecentTransactions: make([]TransactionResponse, 0, len(dashboard.RecentTransactions)),
	}
	for _, account := range dashboard.Accounts {
		response.Accounts = append(response.Accounts, toAccountResponse(account))
	}
	for _, tx := range dashboard.RecentTransactions {
		response.RecentTransactions = append(response.RecentTransactions, toTransactionResponse(tx))
	}

	writeJSON(w, http.StatusOK, response)
}
