package http

import (
	"time"

	"kakebo/internal/core"
)

type categoryResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	CategoryType string  `json:"category_type"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
	CreatedAt    string  `json:"created_at"`
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		CategoryType: string(c.Type),
		Icon:         c.Icon,
		Color:        c.Color,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type transactionResponse struct {
	ID              int64  `json:"id"`
	Amount          int64  `json:"amount"`
	CategoryID      int64  `json:"category_id"`
	Description     string `json:"description"`
	TransactionDate string `json:"transaction_date"`
	TransactionType string `json:"transaction_type"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		Amount:          t.Amount,
		CategoryID:      t.CategoryID,
		Description:     t.Description,
		TransactionDate: t.Date.String(),
		TransactionType: string(t.Type),
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// listResponse is the envelope of every collection endpoint.
type listResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func newListResponse[S, T any](items []S, convert func(S) T) listResponse[T] {
	results := make([]T, 0, len(items))
	for _, item := range items {
		results = append(results, convert(item))
	}
	return listResponse[T]{Count: len(results), Results: results}
}

type statusResponse struct {
	Status string `json:"status"`
}
