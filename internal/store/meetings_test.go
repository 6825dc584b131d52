// internal/store/meetings_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingInviteNotifiesNewParticipants(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")
	ms := NewMeetingsStore(provider, sess, notify.NewService(provider, sess))

	meeting, err := ms.Create(ctx, backend.Row{
		"title":        "Retro",
		"starts_at":    time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339Nano),
		"duration_min": 30,
		"participants": []string{memory.UserAna},
	})
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, provider, memory.UserAna), 1)

	_, err = ms.Update(ctx, meeting.ID, backend.Row{
		"participants": []string{memory.UserAna, memory.UserLuis},
	})
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, provider, memory.UserAna), 1, "existing participant is not re-invited")
	assert.Len(t, notificationsFor(t, provider, memory.UserLuis), 1)
}

func TestUpcomingMeetings(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess := signedInSession(t, provider, "carlos@demo.team")
	ms := NewMeetingsStore(provider, sess, notify.NewService(provider, sess))

	_, err := ms.Create(ctx, backend.Row{
		"title":     "Last week's sync",
		"starts_at": time.Now().Add(-72 * time.Hour).UTC().Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	require.NoError(t, ms.Fetch(ctx, true))

	upcoming := ms.Upcoming(time.Now())
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Sprint review", upcoming[0].Title)
}
