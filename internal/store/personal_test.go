// internal/store/personal_test.go
package store

import (
	"context"
	"testing"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalFetchMergesOwnedAndShared(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	ana := signedInSession(t, provider, "ana@demo.team")
	anaStore := NewPersonalStore(provider, ana, notify.NewService(provider, ana))
	_, err := anaStore.Create(ctx, backend.Row{
		"title":       "Interview notes",
		"shared_with": []string{memory.UserCarlos},
	})
	require.NoError(t, err)

	carlos := signedInSession(t, provider, "carlos@demo.team")
	carlosStore := NewPersonalStore(provider, carlos, notify.NewService(provider, carlos))
	_, err = carlosStore.Create(ctx, backend.Row{"title": "1:1 agenda"})
	require.NoError(t, err)

	require.NoError(t, carlosStore.Fetch(ctx, true))
	titles := make([]string, 0, carlosStore.Len())
	for _, n := range carlosStore.Items() {
		titles = append(titles, n.Title)
	}
	assert.ElementsMatch(t, []string{"Interview notes", "1:1 agenda"}, titles)

	// Ana only sees her own note.
	require.NoError(t, anaStore.Fetch(ctx, true))
	require.Equal(t, 1, anaStore.Len())
	assert.Equal(t, "Interview notes", anaStore.Items()[0].Title)
}

func TestShareNotifiesOnlyNewUsers(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := signedInSession(t, provider, "carlos@demo.team")
	ps := NewPersonalStore(provider, carlos, notify.NewService(provider, carlos))

	note, err := ps.Create(ctx, backend.Row{
		"title":       "Roadmap draft",
		"shared_with": []string{memory.UserAna},
	})
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, provider, memory.UserAna), 1)

	shared, err := ps.Share(ctx, note.ID, []string{memory.UserAna, memory.UserLuis})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{memory.UserAna, memory.UserLuis}, shared.SharedWith)

	assert.Len(t, notificationsFor(t, provider, memory.UserAna), 1, "already-shared users are not re-notified")
	assert.Len(t, notificationsFor(t, provider, memory.UserLuis), 1)
}
