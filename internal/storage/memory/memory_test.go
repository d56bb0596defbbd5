package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"kakebo/internal/core"
	"kakebo/internal/ports"
)

func TestDefaultsSeeded(t *testing.T) {
	s, err := NewFromFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cats, _ := s.ListCategories(context.Background())
	if len(cats) == 0 {
		t.Fatalf("expected default categories")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	seed := `{
		"categories": [
			{"name": "Salary", "category_type": "income"},
			{"name": "Odd", "category_type": "gift"}
		],
		"transactions": [
			{"amount": 300000, "category_id": 1, "description": "January pay", "transaction_date": "2025-01-25", "transaction_type": "income"}
		]
	}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	cats, _ := s.ListCategories(ctx)
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	odd, _ := s.GetCategory(ctx, 2)
	if odd.Type != core.CategoryExpense {
		t.Fatalf("expected unknown type to fall back to expense, got %q", odd.Type)
	}
	txs, _ := s.ListTransactions(ctx, ports.TransactionFilter{})
	if len(txs) != 1 || txs[0].Amount != 300000 || txs[0].Date != core.NewDate(2025, 1, 25) {
		t.Fatalf("unexpected transactions %+v", txs)
	}
}

func TestNewFromFileMissingUsesDefaults(t *testing.T) {
	s, err := NewFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cats, _ := s.ListCategories(context.Background())
	if len(cats) == 0 {
		t.Fatalf("expected default categories")
	}
}

func TestNewFromFileRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	_ = os.WriteFile(path, []byte("{"), 0o644)
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCategoryCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	c, err := s.CreateCategory(ctx, core.Category{Name: "Food", Type: core.CategoryExpense})
	if err != nil || c.ID != 1 || c.CreatedAt.IsZero() {
		t.Fatalf("unexpected create result %+v err=%v", c, err)
	}

	c.Name = "Groceries"
	if _, err := s.UpdateCategory(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetCategory(ctx, c.ID)
	if got.Name != "Groceries" {
		t.Fatalf("expected updated name, got %q", got.Name)
	}

	if err := s.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetCategory(ctx, c.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCategory(ctx, c.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.UpdateCategory(ctx, core.Category{ID: 42}); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestListTransactionsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, tx := range []core.Transaction{
		{Amount: 1, CategoryID: 1, Date: core.NewDate(2025, 1, 10), Type: core.Expense},
		{Amount: 2, CategoryID: 2, Date: core.NewDate(2025, 2, 10), Type: core.Income},
		{Amount: 3, CategoryID: 1, Date: core.NewDate(2025, 3, 10), Type: core.Expense},
	} {
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := s.ListTransactions(ctx, ports.TransactionFilter{})
	if len(all) != 3 || all[0].Amount != 3 || all[2].Amount != 1 {
		t.Fatalf("expected newest first, got %+v", all)
	}

	cat := int64(1)
	start := core.NewDate(2025, 2, 1)
	got, _ := s.ListTransactions(ctx, ports.TransactionFilter{CategoryID: &cat, StartDate: &start})
	if len(got) != 1 || got[0].Amount != 3 {
		t.Fatalf("unexpected filtered result %+v", got)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.CreateTransaction(ctx, core.Transaction{Amount: 10, Date: core.NewDate(2025, 1, 1), Type: core.Expense})

	txs, _ := s.ListTransactions(ctx, ports.TransactionFilter{})
	txs[0].Amount = 999

	again, _ := s.GetTransaction(ctx, txs[0].ID)
	if again.Amount != 10 {
		t.Fatalf("store was mutated through a returned slice")
	}
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.CreateTransaction(ctx, core.Transaction{Amount: 1, Date: core.NewDate(2025, 1, 1), Type: core.Expense})
		}()
	}
	wg.Wait()
	txs, _ := s.ListTransactions(ctx, ports.TransactionFilter{})
	if len(txs) != 50 {
		t.Fatalf("expected 50 transactions, got %d", len(txs))
	}
}
