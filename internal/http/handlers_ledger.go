package http

import (
	"net/http"

	"finboard/internal/log"
	"finboard/internal/services"
)

// Accounts

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	accounts, err := s.ledger.ListAccounts(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeData(w, http.StatusOK, newAccountsResponse(accounts))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	account, err := s.ledger.GetAccount(r.Context(), owner, pathID(r))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeData(w, http.StatusOK, newAccountResponse(account))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	account, err := s.ledger.CreateAccount(r.Context(), owner, req.Name)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeData(w, http.StatusCreated, newAccountResponse(account))
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	account, err := s.ledger.RenameAccount(r.Context(), owner, pathID(r), req.Name)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeData(w, http.StatusOK, newAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), owner, pathID(r)); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteAccounts(w http.ResponseWriter, r *http.Request) {
	s.bulkDelete(w, r, s.ledger.RequestDeleteAccounts)
}

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	categories, err := s.ledger.ListCategories(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeData(w, http.StatusOK, newCategoriesResponse(categories))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	category, err := s.ledger.GetCategory(r.Context(), owner, pathID(r))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeData(w, http.StatusOK, newCategoryResponse(category))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	category, err := s.ledger.CreateCategory(r.Context(), owner, req.Name)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeData(w, http.StatusCreated, newCategoryResponse(category))
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	category, err := s.ledger.RenameCategory(r.Context(), owner, pathID(r), req.Name)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeData(w, http.StatusOK, newCategoryResponse(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), owner, pathID(r)); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteCategories(w http.ResponseWriter, r *http.Request) {
	s.bulkDelete(w, r, s.ledger.RequestDeleteCategories)
}

// Transactions

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	window, err := s.summary.ResolveWindow(rangeFromQuery(r))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), scopeFromQuery(r, owner), window)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeData(w, http.StatusOK, newTransactionsResponse(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	t, err := s.ledger.GetTransaction(r.Context(), owner, pathID(r))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeData(w, http.StatusOK, newTransactionResponse(t))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var in services.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	t, err := s.ledger.CreateTransaction(r.Context(), owner, in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeData(w, http.StatusCreated, newTransactionResponse(t))
}

func (s *Server) handleBulkCreateTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	var inputs []services.TransactionInput
	if err := decodeJSON(w, r, &inputs); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	txs, err := s.ledger.CreateTransactions(r.Context(), owner, inputs)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeData(w, http.StatusCreated, newTransactionsResponse(txs))
}

// handleUpdateTransaction replaces every editable field of a transaction.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var in services.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	t, err := s.ledger.UpdateTransaction(r.Context(), owner, pathID(r), in)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeData(w, http.StatusOK, newTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), owner, pathID(r)); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	s.bulkDelete(w, r, s.ledger.RequestDeleteTransactions)
}
