package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"algo-transfers/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type AccountResponse struct {
	Address    string `json:"address"`
	Balance    string `json:"balance"`
	MinBalance string `json:"min_balance"`
	MicroAlgos uint64 `json:"micro_algos"`
	Round      uint64 `json:"round"`
	Status     string `json:"status"`
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	address := vars["address"]

	account, err := h.accountService.GetAccount(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := AccountResponse{
		Address:    account.Address,
		Balance:    account.Balance.String(),
		MinBalance: account.MinBalance.String(),
		MicroAlgos: account.MicroAlgos,
		Round:      account.Round,
		Status:     account.Status,
	}

	writeJSON(w, http.StatusOK, response)
}
