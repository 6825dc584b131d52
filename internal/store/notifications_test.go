// internal/store/notifications_test.go
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

func TestNotificationsFetchOnlyMine(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := signedInSession(t, provider, "carlos@demo.team")
	notifier := notify.NewService(provider, carlos)
	notes := NewNotesStore(provider, carlos, notifier)
	_, err := notes.Create(ctx, backend.Row{
		"title":       "Prep the demo env",
		"assigned_to": []string{memory.UserAna, memory.UserLuis},
	})
	require.NoError(t, err)

	ana := signedInSession(t, provider, "ana@demo.team")
	inbox := NewNotificationsStore(provider, ana)
	require.NoError(t, inbox.Fetch(ctx, false))
	require.Equal(t, 1, inbox.Len(), "only Ana's own notifications")
	assert.Equal(t, memory.UserAna, inbox.Items()[0].UserID)
	assert.Equal(t, 1, inbox.UnreadCount())
}

func TestMarkReadAndRemove(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := signedInSession(t, provider, "carlos@demo.team")
	notifier := notify.NewService(provider, carlos)
	notes := NewNotesStore(provider, carlos, notifier)
	for _, title := range []string{"one", "two"} {
		_, err := notes.Create(ctx, backend.Row{
			"title":       title,
			"assigned_to": []string{memory.UserAna},
		})
		require.NoError(t, err)
	}

	ana := signedInSession(t, provider, "ana@demo.team")
	inbox := NewNotificationsStore(provider, ana)
	require.NoError(t, inbox.Fetch(ctx, false))
	require.Equal(t, 2, inbox.UnreadCount())

	require.NoError(t, inbox.MarkRead(ctx, inbox.Items()[0].ID))
	assert.Equal(t, 1, inbox.UnreadCount())

	require.NoError(t, inbox.MarkAllRead(ctx))
	assert.Equal(t, 0, inbox.UnreadCount())

	// Recipients can remove notifications someone else created.
	first := inbox.Items()[0].ID
	require.NoError(t, inbox.Remove(ctx, first))
	assert.Equal(t, 1, inbox.Len())
}
