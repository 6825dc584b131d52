// internal/store/expenses_test.go
package store

import (
	"context"
	"testing"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseTotals(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")
	es := NewExpensesStore(provider, sess)

	require.NoError(t, es.Fetch(ctx, false))
	assert.Len(t, es.Categories(), 3)

	_, err := es.Create(ctx, backend.Row{
		"description": "Team lunch",
		"amount":      "62.50",
		"category_id": "demo-cat-3",
	})
	require.NoError(t, err)

	assert.True(t, es.Total().Equal(decimal.RequireFromString("111.50")), "got %s", es.Total())

	byCat := es.TotalByCategory()
	assert.True(t, byCat["demo-cat-1"].Equal(decimal.RequireFromString("49.00")))
	assert.True(t, byCat["demo-cat-3"].Equal(decimal.RequireFromString("62.50")))
}

func TestExpenseDefaultsIncurredOn(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")
	es := NewExpensesStore(provider, sess)
	require.NoError(t, es.Fetch(ctx, false))

	e, err := es.Create(ctx, backend.Row{"description": "Domain renewal", "amount": "12.00"})
	require.NoError(t, err)
	assert.False(t, e.IncurredOn.IsZero())

	cat, ok := es.Category("demo-cat-2")
	require.True(t, ok)
	assert.Equal(t, "Travel", cat.Name)
}
