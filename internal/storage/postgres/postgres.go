// Package postgres stores the ledger in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kakebo/internal/core"
	"kakebo/internal/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ ports.Store = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

// New connects, pings and migrates.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the embedded migrations through the pgx/v5 driver.
func RunMigrations(databaseURL string) error {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(databaseURL string) error {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("rollback migration: %w", err)
		}
		return nil
	})
}

// MigrationVersion reports the applied schema version, 0 for a fresh database.
func MigrationVersion(databaseURL string) (version uint, dirty bool, err error) {
	err = withMigrator(databaseURL, func(m *migrate.Migrate) error {
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			version, dirty, err = 0, false, nil
		}
		return err
	})
	return version, dirty, err
}

func withMigrator(databaseURL string, fn func(*migrate.Migrate) error) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, MigrationURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()
	return fn(m)
}

// MigrationURL rewrites a postgres:// URL to the scheme the pgx/v5 migrate driver registers.
func MigrationURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const categoryColumns = `id, name, category_type, icon, color, created_at`

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(ctx, r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, category_type, icon, color, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.Name, string(c.Type), c.Icon, c.Color, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	slog.DebugContext(ctx, "Category saved to PostgreSQL", "id", c.ID, "name", c.Name)
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $1, icon = $2, color = $3 WHERE id = $4`,
		c.Name, c.Icon, c.Color, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if err := expectOneRow(tag); err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if err := expectOneRow(tag); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

const transactionColumns = `id, amount, category_id, description, transaction_date, transaction_type, created_at, updated_at`

// BuildTransactionQuery renders the listing query with positional parameters.
func BuildTransactionQuery(f ports.TransactionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, clause+" $"+strconv.Itoa(len(args)))
	}
	if f.StartDate != nil {
		add("transaction_date >=", f.StartDate.Time)
	}
	if f.EndDate != nil {
		add("transaction_date <=", f.EndDate.Time)
	}
	if f.CategoryID != nil {
		add("category_id =", *f.CategoryID)
	}
	if f.Type != nil {
		add("transaction_type =", string(*f.Type))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY transaction_date DESC, id DESC", args
}

func (r *Repository) ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	query, args := BuildTransactionQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(ctx, r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (amount, category_id, description, transaction_date, transaction_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		t.Amount, t.CategoryID, t.Description, t.Date.Time, string(t.Type), t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved to PostgreSQL",
		"id", t.ID,
		"amount", t.Amount,
		"transaction_type", t.Type)
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions SET amount = $1, category_id = $2, description = $3, transaction_date = $4, updated_at = $5
		 WHERE id = $6`,
		t.Amount, t.CategoryID, t.Description, t.Date.Time, t.UpdatedAt, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if err := expectOneRow(tag); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if err := expectOneRow(tag); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func scanCategory(ctx context.Context, row pgx.Row) (core.Category, error) {
	var (
		c  core.Category
		ct string
	)
	if err := row.Scan(&c.ID, &c.Name, &ct, &c.Icon, &c.Color, &c.CreatedAt); err != nil {
		return core.Category{}, err
	}
	var ok bool
	if c.Type, ok = core.CategoryTypeOrExpense(ct); !ok {
		slog.WarnContext(ctx, "Unknown stored category type, using expense", "id", c.ID, "category_type", ct)
	}
	return c, nil
}

func scanTransaction(ctx context.Context, row pgx.Row) (core.Transaction, error) {
	var (
		t    core.Transaction
		date time.Time
		tt   string
	)
	if err := row.Scan(&t.ID, &t.Amount, &t.CategoryID, &t.Description, &date, &tt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Date = core.DateOf(date)
	var ok bool
	if t.Type, ok = core.TransactionTypeOrExpense(tt); !ok {
		slog.WarnContext(ctx, "Unknown stored transaction type, using expense", "id", t.ID, "transaction_type", tt)
	}
	return t, nil
}

func expectOneRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
