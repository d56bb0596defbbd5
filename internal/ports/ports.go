package ports

import (
	"context"
	"errors"

	"kakebo/internal/core"
)

// ErrNotFound is returned, wrapped, when an id matches no record.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows a transaction listing. The zero value lists everything.
type TransactionFilter struct {
	StartDate  *core.Date // inclusive
	EndDate    *core.Date // inclusive
	CategoryID *int64
	Type       *core.TransactionType
}

// Matches reports whether t passes every set field of f.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	return true
}

// Ports for persistence adapters.
type (
	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
	}

	CategoryWriter interface {
		// CreateCategory assigns the id and returns the stored record.
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// UpdateCategory replaces the record with c.ID.
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	TransactionReader interface {
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		CategoryReader
		CategoryWriter
	}

	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	// SnapshotReader is everything the report engine needs.
	SnapshotReader interface {
		CategoryReader
		TransactionReader
	}

	Store interface {
		CategoryStore
		TransactionStore
		Ping(ctx context.Context) error
		Close() error
	}
)
