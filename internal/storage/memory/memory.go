package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"kakebo/internal/core"
	"kakebo/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store keeps the ledger in process memory. Reads return copies.
type Store struct {
	mu     sync.RWMutex
	cats   map[int64]core.Category
	txs    map[int64]core.Transaction
	nextID struct{ cat, tx int64 }
	now    func() time.Time
}

func New() *Store {
	return &Store{
		cats: map[int64]core.Category{},
		txs:  map[int64]core.Transaction{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type seedFile struct {
	Categories []struct {
		Name  string  `json:"name"`
		Type  string  `json:"category_type"`
		Icon  *string `json:"icon"`
		Color *string `json:"color"`
	} `json:"categories"`
	Transactions []struct {
		Amount      int64  `json:"amount"`
		CategoryID  int64  `json:"category_id"`
		Description string `json:"description"`
		Date        string `json:"transaction_date"`
		Type        string `json:"transaction_type"`
	} `json:"transactions"`
}

// NewFromFile builds a store seeded from a JSON file. A missing or empty
// path yields the default categories.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		s.seedDefaults()
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Seed file not found, using default categories", "path", path)
			s.seedDefaults()
			return s, nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	ctx := context.Background()
	for _, c := range seed.Categories {
		ct, ok := core.CategoryTypeOrExpense(c.Type)
		if !ok {
			slog.Warn("Unknown category type in seed, using expense", "name", c.Name, "category_type", c.Type)
		}
		if _, err := s.CreateCategory(ctx, core.Category{Name: c.Name, Type: ct, Icon: c.Icon, Color: c.Color}); err != nil {
			return nil, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}
	for i, t := range seed.Transactions {
		d, err := core.ParseDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("seed transaction %d: %w", i, err)
		}
		tt, ok := core.TransactionTypeOrExpense(t.Type)
		if !ok {
			slog.Warn("Unknown transaction type in seed, using expense", "index", i, "transaction_type", t.Type)
		}
		tx := core.Transaction{Amount: t.Amount, CategoryID: t.CategoryID, Description: t.Description, Date: d, Type: tt}
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("seed transaction %d: %w", i, err)
		}
	}
	slog.Info("Memory store seeded", "path", path, "categories", len(seed.Categories), "transactions", len(seed.Transactions))
	return s, nil
}

func (s *Store) seedDefaults() {
	defaults := []struct {
		name  string
		ct    core.CategoryType
		icon  string
		color string
	}{
		{"Salary", core.CategoryIncome, "💴", "#4CAF50"},
		{"Bonus", core.CategoryIncome, "🎁", "#8BC34A"},
		{"Food", core.CategoryExpense, "🍙", "#FF5733"},
		{"Housing", core.CategoryExpense, "🏠", "#795548"},
		{"Utilities", core.CategoryExpense, "💡", "#FFC107"},
		{"Transport", core.CategoryExpense, "🚃", "#2196F3"},
		{"Entertainment", core.CategoryExpense, "🎮", "#9C27B0"},
	}
	for _, d := range defaults {
		icon, color := d.icon, d.color
		_, _ = s.CreateCategory(context.Background(), core.Category{Name: d.name, Type: d.ct, Icon: &icon, Color: &color})
	}
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, ports.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID.cat++
	c.ID = s.nextID.cat
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[c.ID]; !ok {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, ports.ErrNotFound)
	}
	s.cats[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return fmt.Errorf("delete category %d: %w", id, ports.ErrNotFound)
	}
	delete(s.cats, id)
	return nil
}

// ListTransactions returns matches newest first.
func (s *Store) ListTransactions(_ context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, ports.ErrNotFound)
	}
	return t, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID.tx++
	t.ID = s.nextID.tx
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	s.txs[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[t.ID]; !ok {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, ports.ErrNotFound)
	}
	s.txs[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("delete transaction %d: %w", id, ports.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
