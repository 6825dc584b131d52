// internal/store/comments_test.go
package store

import (
	"context"
	"testing"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/kor4soft/teamsync/internal/notify"
	"github.com/kor4soft/teamsync/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommentsEnv(t *testing.T, provider backend.Provider, email string) (*session.Session, *NotesStore, *CommentsStore) {
	t.Helper()
	sess := signedInSession(t, provider, email)
	notifier := notify.NewService(provider, sess)
	notes := NewNotesStore(provider, sess, notifier)
	require.NoError(t, notes.Fetch(context.Background(), false))
	return sess, notes, NewCommentsStore(provider, sess, notes, notifier)
}

func TestCommentsFetchPerNote(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	_, _, comments := newCommentsEnv(t, provider, "carlos@demo.team")

	require.NoError(t, comments.FetchFor(ctx, "demo-note-1"))
	require.Equal(t, 1, comments.Len())
	c := comments.Items()[0]
	assert.Equal(t, "demo-note-1", c.NoteID)
	require.NotNil(t, c.User, "comments carry author join data")
	assert.Equal(t, "Ana Torres", c.User.FullName)

	require.NoError(t, comments.FetchFor(ctx, "demo-note-2"))
	assert.Equal(t, 0, comments.Len(), "switching notes replaces the thread")

	comments.Clear()
	assert.Equal(t, "", comments.NoteID())
	_, err := comments.Add(ctx, "orphan")
	assert.Error(t, err, "no thread loaded")
}

func TestCommentsReadOldestFirst(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	_, _, comments := newCommentsEnv(t, provider, "carlos@demo.team")
	require.NoError(t, comments.FetchFor(ctx, "demo-note-1"))

	added, err := comments.Add(ctx, "On it.")
	require.NoError(t, err)

	require.Equal(t, 2, comments.Len())
	assert.Equal(t, "demo-comment-1", comments.Items()[0].ID)
	assert.Equal(t, added.ID, comments.Items()[1].ID, "new comments append to the thread")
}

func TestCommentNotifiesCreatorAndAssignees(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()

	// demo-note-1: created by Carlos, assigned to Ana. Luis comments.
	_, _, comments := newCommentsEnv(t, provider, "luis@demo.team")
	require.NoError(t, comments.FetchFor(ctx, "demo-note-1"))
	_, err := comments.Add(ctx, "Should this block the release?")
	require.NoError(t, err)

	carlosRows := notificationsFor(t, provider, memory.UserCarlos)
	require.Len(t, carlosRows, 1)
	assert.Equal(t, "comment", carlosRows[0].String("type"))
	assert.Equal(t, "demo-note-1", carlosRows[0].String("note_id"))
	assert.Len(t, notificationsFor(t, provider, memory.UserAna), 1)
	assert.Empty(t, notificationsFor(t, provider, memory.UserLuis), "the commenter is never notified")
}

func TestCommentEditAndRemoveOwnOnly(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	_, _, comments := newCommentsEnv(t, provider, "carlos@demo.team")
	require.NoError(t, comments.FetchFor(ctx, "demo-note-1"))

	mine, err := comments.Add(ctx, "draft")
	require.NoError(t, err)

	edited, err := comments.Edit(ctx, mine.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)

	// demo-comment-1 belongs to Ana.
	err = comments.Remove(ctx, "demo-comment-1")
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, comments.Remove(ctx, mine.ID))
	assert.Equal(t, 1, comments.Len())
}
