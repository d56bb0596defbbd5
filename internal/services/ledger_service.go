package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kakebo/internal/core"
	"kakebo/internal/events"
	"kakebo/internal/log"
	"kakebo/internal/ports"
)

// LedgerStore is what LedgerService writes through.
type LedgerStore interface {
	ports.CategoryStore
	ports.TransactionStore
}

// LedgerService validates ledger writes, persists them and announces each
// successful change on the event publisher.
type LedgerService struct {
	store      LedgerStore
	publisher  events.Publisher
	logger     *log.Logger
	structured *log.StructuredLogger
	now        func() time.Time
}

func NewLedgerService(store LedgerStore, publisher events.Publisher, logger *log.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	l := logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:      store,
		publisher:  publisher,
		logger:     l,
		structured: log.NewStructuredLogger(l),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *LedgerService) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = 0
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = s.now()

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.structured.LogLedgerChange(ctx, log.OpCreate, string(events.KindCategory), created.ID, nil)
	s.publish(ctx, events.New(events.KindCategory, events.ActionCreated, created.ID, 0, 0))
	return created, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, id int64, patch core.CategoryPatch) (core.Category, error) {
	current, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}

	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return core.Category{}, err
	}

	updated, err := s.store.UpdateCategory(ctx, next)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}

	s.structured.LogLedgerChange(ctx, log.OpUpdate, string(events.KindCategory), id, nil)
	s.publish(ctx, events.New(events.KindCategory, events.ActionUpdated, id, 0, 0))
	return updated, nil
}

// DeleteCategory leaves the category's transactions in place; reports show
// them under the unknown category.
func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.structured.LogLedgerChange(ctx, log.OpDelete, string(events.KindCategory), id, nil)
	s.publish(ctx, events.New(events.KindCategory, events.ActionDeleted, id, 0, 0))
	return nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.structured.LogLedgerChange(ctx, log.OpCreate, string(events.KindTransaction), created.ID, transactionFields(created))
	s.publish(ctx, transactionEvent(events.ActionCreated, created))
	return created, nil
}

// UpdateTransaction applies patch; the transaction type cannot change.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}
	next.UpdatedAt = s.now()

	updated, err := s.store.UpdateTransaction(ctx, next)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.structured.LogLedgerChange(ctx, log.OpUpdate, string(events.KindTransaction), id, transactionFields(updated))
	s.publish(ctx, transactionEvent(events.ActionUpdated, updated))
	// Moving a transaction across years changes both yearly reports.
	if current.Date.Year() != updated.Date.Year() {
		s.publish(ctx, transactionEvent(events.ActionUpdated, current))
	}
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.structured.LogLedgerChange(ctx, log.OpDelete, string(events.KindTransaction), id, transactionFields(current))
	s.publish(ctx, transactionEvent(events.ActionDeleted, current))
	return nil
}

// Close closes the event publisher.
func (s *LedgerService) Close() error {
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}

// publish never fails the write that triggered it.
func (s *LedgerService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		fields := log.NewFields().WithEntity(string(e.Kind), e.EntityID).WithPeriod(e.Year, e.Month)
		fields[log.FieldEventID] = e.ID
		s.structured.LogError(ctx, "Failed to publish ledger event", err, log.OpPublish, fields)
	}
}

func transactionEvent(action events.Action, t core.Transaction) events.Event {
	return events.New(events.KindTransaction, action, t.ID, t.Date.Year(), t.Date.Month())
}

func transactionFields(t core.Transaction) log.LogFields {
	f := log.NewFields().WithPeriod(t.Date.Year(), t.Date.Month())
	f[log.FieldAmount] = t.Amount
	f[log.FieldTransactionType] = string(t.Type)
	f[log.FieldCategoryID] = t.CategoryID
	return f
}
