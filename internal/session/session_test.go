// internal/session/session_test.go
package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/backend/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInAndRequire(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess, err := New(provider, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	assert.ErrorIs(t, sess.Require(), backend.ErrNotSignedIn)
	assert.Nil(t, sess.CurrentUser())
	assert.Empty(t, sess.UserID())

	user, err := sess.SignIn(ctx, "carlos@demo.team", "anything", false)
	require.NoError(t, err)
	assert.Equal(t, "Carlos Mendoza", user.FullName)
	assert.NoError(t, sess.Require())
	assert.Equal(t, memory.UserCarlos, sess.UserID())
}

func TestRememberedSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	path := filepath.Join(t.TempDir(), "session.json")

	sess, err := New(provider, path)
	require.NoError(t, err)
	_, err = sess.SignIn(ctx, "ana@demo.team", "pw", true)
	require.NoError(t, err)

	// A fresh client process against the same backend.
	restarted, err := New(provider, path)
	require.NoError(t, err)
	user, err := restarted.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, memory.UserAna, user.ID)
}

func TestUnrememberedSessionDoesNotPersistToken(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	path := filepath.Join(t.TempDir(), "session.json")

	sess, err := New(provider, path)
	require.NoError(t, err)
	_, err = sess.SignIn(ctx, "ana@demo.team", "pw", false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "demo-token", "token must not hit disk without remember-me")

	restarted, err := New(provider, path)
	require.NoError(t, err)
	user, err := restarted.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestRestoreClearsDeadToken(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	provider := memory.New()
	sess, err := New(provider, path)
	require.NoError(t, err)
	_, err = sess.SignIn(ctx, "ana@demo.team", "pw", true)
	require.NoError(t, err)

	// The account is gone on the next start.
	fresh := memory.NewBare()
	restarted, err := New(fresh, path)
	require.NoError(t, err)
	user, err := restarted.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "demo-token", "a dead token is wiped from disk")
}

func TestSignOutClearsEverythingButLastRead(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	path := filepath.Join(t.TempDir(), "session.json")

	sess, err := New(provider, path)
	require.NoError(t, err)
	_, err = sess.SignIn(ctx, "ana@demo.team", "pw", true)
	require.NoError(t, err)

	mark := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sess.SetLastRead(mark))
	require.NoError(t, sess.SignOut(ctx))

	assert.Nil(t, sess.CurrentUser())
	assert.ErrorIs(t, sess.Require(), backend.ErrNotSignedIn)

	restarted, err := New(provider, path)
	require.NoError(t, err)
	user, err := restarted.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.True(t, restarted.LastRead().Equal(mark), "the chat last-read mark outlives the login")
}

func TestSignUpTakenEmail(t *testing.T) {
	ctx := context.Background()
	provider := memory.New()
	sess, err := New(provider, filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	_, err = sess.SignUp(ctx, "carlos@demo.team", "pw", "Impostor", false)
	assert.ErrorIs(t, err, backend.ErrEmailTaken)
}
