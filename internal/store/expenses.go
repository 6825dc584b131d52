// internal/store/expenses.go
package store

import (
	"context"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/kor4soft/teamsync/internal/types"
	"github.com/shopspring/decimal"
)

// ExpensesStore caches team expenses and their categories.
type ExpensesStore struct {
	*Store[types.Expense]
	categories *Store[expenseCategoryItem]
}

// expenseCategoryItem adapts ExpenseCategory to the cache item interface;
// categories have no creator, so deletes are open to anyone signed in.
type expenseCategoryItem struct {
	types.ExpenseCategory
}

func (c expenseCategoryItem) GetID() string        { return c.ID }
func (c expenseCategoryItem) GetCreatedBy() string { return "" }

func NewExpensesStore(provider backend.Provider, sess *session.Session) *ExpensesStore {
	return &ExpensesStore{
		Store: New[types.Expense](provider, sess, Config{
			Table: backend.TableExpenses,
			Query: func() backend.Query {
				return backend.Query{OrderBy: "incurred_on", Desc: true}
			},
			TouchUpdatedAt: true,
		}),
		categories: New[expenseCategoryItem](provider, sess, Config{
			Table: backend.TableExpenseCategories,
			Query: func() backend.Query {
				return backend.Query{OrderBy: "name"}
			},
		}),
	}
}

// Fetch loads expenses and, on the first call, the category list.
func (es *ExpensesStore) Fetch(ctx context.Context, force bool) error {
	if err := es.categories.Fetch(ctx, false); err != nil {
		return err
	}
	return es.Store.Fetch(ctx, force)
}

func (es *ExpensesStore) Create(ctx context.Context, row backend.Row) (types.Expense, error) {
	if row.String("incurred_on") == "" {
		row["incurred_on"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return es.Store.Create(ctx, row)
}

// Categories returns the cached category list.
func (es *ExpensesStore) Categories() []types.ExpenseCategory {
	items := es.categories.Items()
	out := make([]types.ExpenseCategory, len(items))
	for i, it := range items {
		out[i] = it.ExpenseCategory
	}
	return out
}

// Category resolves a category by id.
func (es *ExpensesStore) Category(id string) (types.ExpenseCategory, bool) {
	it, ok := es.categories.Get(id)
	return it.ExpenseCategory, ok
}

// Total sums every cached expense.
func (es *ExpensesStore) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range es.Items() {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalByCategory sums cached expenses per category id.
func (es *ExpensesStore) TotalByCategory() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range es.Items() {
		totals[e.CategoryID] = totals[e.CategoryID].Add(e.Amount)
	}
	return totals
}
