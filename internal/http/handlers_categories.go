package http

import (
	"context"
	"net/http"
)

const entityCategory = "Category"

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	categories, err := s.ledger.ListCategories(ctx)
	if err != nil {
		s.writeError(w, r, err, entityCategory, 0)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newListResponse(categories, newCategoryResponse))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, entityCategory, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	c, err := s.ledger.GetCategory(ctx, id)
	if err != nil {
		s.writeError(w, r, err, entityCategory, id)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newCategoryResponse(c))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, entityCategory, 0)
		return
	}
	c, err := req.toCategory()
	if err != nil {
		s.writeError(w, r, err, entityCategory, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	created, err := s.ledger.CreateCategory(ctx, c)
	if err != nil {
		s.writeError(w, r, err, entityCategory, 0)
		return
	}
	s.invalidateReports()
	s.writeJSON(w, r, http.StatusCreated, newCategoryResponse(created))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, entityCategory, 0)
		return
	}
	var req categoryPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, entityCategory, id)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	updated, err := s.ledger.UpdateCategory(ctx, id, req.toPatch())
	if err != nil {
		s.writeError(w, r, err, entityCategory, id)
		return
	}
	s.invalidateReports()
	s.writeJSON(w, r, http.StatusOK, newCategoryResponse(updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, entityCategory, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if err := s.ledger.DeleteCategory(ctx, id); err != nil {
		s.writeError(w, r, err, entityCategory, id)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
