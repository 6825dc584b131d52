// internal/realtime/unread_test.go
package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/kor4soft/teamsync/internal/store"
	"github.com/kor4soft/teamsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreadCheckCountsOthersMessages(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := signedIn(t, provider, "carlos@demo.team")
	counter := NewUnreadCounter(provider, carlos)

	// Seed has one message by Carlos and one by Ana; only Ana's counts.
	require.NoError(t, counter.Check(ctx, false))
	assert.Equal(t, 1, counter.Unread())
	assert.True(t, counter.HasUnread())

	// Checks are deduplicated like fetches.
	require.NoError(t, counter.Check(ctx, false))
	assert.Equal(t, 1, counter.Unread())
}

func TestUnreadHonorsLastRead(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := signedIn(t, provider, "carlos@demo.team")
	counter := NewUnreadCounter(provider, carlos)

	require.NoError(t, carlos.SetLastRead(time.Now().UTC()))
	require.NoError(t, counter.Check(ctx, true))
	assert.Equal(t, 0, counter.Unread(), "nothing newer than the mark")

	ana := signedIn(t, provider, "ana@demo.team")
	anaChat := store.NewChatStore(provider, ana)
	require.NoError(t, anaChat.FetchChannels(ctx, false))
	_, err := anaChat.SendMessage(ctx, "ping", types.MessageText, "")
	require.NoError(t, err)

	require.NoError(t, counter.Check(ctx, true))
	assert.Equal(t, 1, counter.Unread())
}

func TestUnreadWatchIgnoresOwnMessages(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	carlos := signedIn(t, provider, "carlos@demo.team")
	counter := NewUnreadCounter(provider, carlos)
	stop := counter.Watch(ctx)
	defer stop()

	chat := store.NewChatStore(provider, carlos)
	require.NoError(t, chat.FetchChannels(ctx, false))
	_, err := chat.SendMessage(ctx, "talking to myself", types.MessageText, "")
	require.NoError(t, err)
	assert.Equal(t, 0, counter.Unread())

	ana := signedIn(t, provider, "ana@demo.team")
	anaChat := store.NewChatStore(provider, ana)
	require.NoError(t, anaChat.FetchChannels(ctx, false))
	_, err = anaChat.SendMessage(ctx, "hey", types.MessageType("text"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, counter.Unread())

	require.NoError(t, counter.MarkAsRead(ctx))
	assert.Equal(t, 0, counter.Unread())
	assert.False(t, carlos.LastRead().IsZero())
}
