package http

import (
	"context"
	"net/http"
)

const entityTransaction = "Transaction"

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	txs, err := s.ledger.ListTransactions(ctx, filter)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newListResponse(txs, newTransactionResponse))
}

// handleTransactionSummary totals the same selection the list endpoint returns.
func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	summary, err := s.reports.Summary(ctx, filter)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}
	s.writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	t, err := s.ledger.GetTransaction(ctx, id)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, id)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newTransactionResponse(t))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	created, err := s.ledger.CreateTransaction(ctx, t)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}
	s.invalidateReports()
	s.writeJSON(w, r, http.StatusCreated, newTransactionResponse(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, entityTransaction, id)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.writeError(w, r, err, entityTransaction, id)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	updated, err := s.ledger.UpdateTransaction(ctx, id, patch)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, id)
		return
	}
	s.invalidateReports()
	s.writeJSON(w, r, http.StatusOK, newTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, entityTransaction, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		s.writeError(w, r, err, entityTransaction, id)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
